// Package model はフロントエンドとバックエンドの間でやり取りする型を定義する。
//
// プロジェクトの状態列挙、ユーザー情報、各エンドポイントのレスポンス形式を含む。
package model
