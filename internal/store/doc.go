// Package store はユーザーと会話履歴を保持するSQLiteストアを提供する。
//
// 認証ゲートが依存するユーザー存在確認と、メッセージパイプラインが使う
// メッセージの追記・時系列取得だけを扱う。スキーマはgooseのマイグレーションで管理する。
package store
