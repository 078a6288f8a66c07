// Package devserver はダビングWebアプリのバックエンドAPIを再現する開発用サーバーを提供する。
//
// ログイン・ユーザー登録・プロジェクトの一覧・作成・削除をSQLiteで実装する。
// 文字起こしや翻訳などのダビング処理は行わない。
package devserver
