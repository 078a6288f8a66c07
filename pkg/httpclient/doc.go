// Package httpclient はバックエンドAPIとのHTTP通信を行うクライアントを提供する。
//
// リクエスト段（送信前の加工）とレスポンス段（受信後の検査）を登録順に
// 適用するパイプラインを持つ。認証ヘッダーの付与や認証失敗時の
// セッション破棄などの横断的な処理はパイプライン段として差し込む。
package httpclient
