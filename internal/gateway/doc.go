// Package gateway はバックエンドAPIへの認証付きアクセスを一手に引き受けるクライアントを提供する。
//
// フロントエンドからバックエンドへの全てのHTTP通信はこのクライアントを通る。
// 送信前にセッションストレージのBearerトークンを付与し、401を受け取ったら
// 資格情報を破棄してログイン画面へ遷移させる。画面側のロジックは
// 認証やセッション切れの処理を繰り返し書かずに済む。
package gateway
