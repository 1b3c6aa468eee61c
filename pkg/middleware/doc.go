// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 認証ゲートによるBearerトークンの検証、パニックリカバリ、
// CORS設定など、サーバーが共通して使用するミドルウェアを含む。
package middleware
