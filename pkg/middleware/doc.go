// Package middleware はGinベースのHTTPサーバーで使用する共通ミドルウェアを提供する。
//
// アクセストークンの発行と検証、Bearer認証、パニックリカバリ、
// CORS設定を含む。開発用バックエンドとWebサーバーの両方で使用する。
package middleware
