package auth

import (
	"errors"
	"net/http"
)

// Kind は認証失敗の種類を表す。
// 呼び出し元はこの値だけでレスポンスのステータスコードを決定する。
type Kind string

const (
	// KindMissingCredential はAuthorizationヘッダーが無いか "Bearer " で始まらないことを表す。
	KindMissingCredential Kind = "missing_credential"
	// KindServerMisconfigured はサーバーに署名鍵が設定されていないことを表す。
	KindServerMisconfigured Kind = "server_misconfigured"
	// KindCredentialExpired は署名は正しいが有効期限が切れていることを表す。
	KindCredentialExpired Kind = "credential_expired"
	// KindCredentialInvalid はトークンの形式・署名・アルゴリズム・クレームが不正であることを表す。
	// 予期しない内部エラーもこの種類に集約する。
	KindCredentialInvalid Kind = "credential_invalid"
	// KindSubjectNotFound はトークンの主体に対応するユーザーが存在しないことを表す。
	KindSubjectNotFound Kind = "subject_not_found"
)

// HTTPStatus は種類に対応するHTTPステータスコードを返す。
// KindServerMisconfigured のみ運用側の問題として500を返し、それ以外は401を返す。
func (k Kind) HTTPStatus() int {
	if k == KindServerMisconfigured {
		return http.StatusInternalServerError
	}
	return http.StatusUnauthorized
}

// Error はGateが返す認証エラー。
// Message はクライアントに返してよい文言で、Err は運用者向けの原因を保持する。
type Error struct {
	// Kind は失敗の種類。
	Kind Kind
	// Message は失敗内容の説明。
	Message string
	// Err は失敗の原因。無い場合はnil。
	Err error
}

// Error はエラーメッセージを返す。
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap は原因のエラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf はerrに含まれる認証エラーの種類を返す。
// 認証エラー以外のエラーは KindCredentialInvalid として扱う。
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindCredentialInvalid
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
