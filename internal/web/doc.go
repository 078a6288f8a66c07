// Package web はダビングWebアプリの画面をサーバー側で描画するHTTPサーバーを提供する。
//
// ブラウザごとにセッションCookieを発行し、トークンとユーザー情報をSQLiteに保存する。
// バックエンドへの呼び出しはすべてgatewayパッケージのクライアントを経由し、
// 401応答によるセッション破棄とログイン画面への遷移は303リダイレクトとして返す。
package web
