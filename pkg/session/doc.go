// Package session はセッション資格情報（Bearerトークンとユーザー情報）の保存先を提供する。
//
// 認証クライアントはStorageインターフェースを注入されて動作する。
// 実装はテスト用のMemoryStorage、CLI用のFileStorage、
// Webフロントエンド用のSQLiteStore（ブラウザごとにセッションIDで分離）の3種類。
package session
