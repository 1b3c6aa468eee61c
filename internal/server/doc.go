// Package server はchimeriaゲートウェイのHTTPサーバーを提供する。
//
// 認証ゲートを通過したリクエストに対し、Mission Control AIへの質問、
// プロフィールの取得、会話履歴の取得を提供する。
// 添付画像は添付ファイルストアに保存し、履歴ではデータURLとして返す。
package server
