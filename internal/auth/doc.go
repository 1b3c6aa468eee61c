// Package auth はBearerトークンによるリクエスト認証ゲートを提供する。
//
// Gate は Authorization ヘッダーの抽出、署名鍵の確認、HS256署名と有効期限の検証、
// クレーム形状の確認、ユーザー存在確認を固定の順序で1回だけ実行する。
// 最初に失敗した段階が Kind として呼び出し元に返される。
// セッションやトークンキャッシュは持たず、リクエストをまたぐ状態は存在しない。
package auth
