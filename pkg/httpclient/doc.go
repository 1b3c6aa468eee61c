// Package httpclient は外部APIとJSONでやり取りするHTTPクライアントを提供する。
//
// 生成AIのREST APIなど、固定の認証ヘッダーを伴うJSON通信に使用する。
// 2xx以外のレスポンスはステータスと本文を持つ *StatusError として返す。
package httpclient
