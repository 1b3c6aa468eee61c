package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/chimeria/internal/auth"
)

// コンテキストキー。
const (
	contextKeyUserID   = "user_id"
	contextKeyEmail    = "email"
	contextKeyIdentity = "identity"
)

// Verifier はリクエストヘッダーから呼び出し元を特定する。
// *auth.Gate が実装する。
type Verifier interface {
	Verify(ctx context.Context, header http.Header) (auth.Identity, error)
}

// Authenticate はverifierでリクエストを認証するGinミドルウェアを返す。
// 認証に成功した場合、コンテキストに "user_id"、"email"、"identity" を設定する。
// 失敗した場合は種類に応じたステータスでJSONのエラーを返し、
// 401の場合は WWW-Authenticate: Bearer を付与する。
func Authenticate(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := verifier.Verify(c.Request.Context(), c.Request.Header)
		if err != nil {
			status, message := describeAuthError(err)
			if status == http.StatusUnauthorized {
				c.Header("WWW-Authenticate", "Bearer")
			}
			c.AbortWithStatusJSON(status, gin.H{"error": message})
			return
		}

		c.Set(contextKeyUserID, identity.ID)
		c.Set(contextKeyEmail, identity.Email)
		c.Set(contextKeyIdentity, identity)
		c.Next()
	}
}

func describeAuthError(err error) (int, string) {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		return authErr.Kind.HTTPStatus(), authErr.Message
	}
	return auth.KindCredentialInvalid.HTTPStatus(), "認証情報を検証できませんでした"
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// Authenticateミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(contextKeyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetIdentity はGinコンテキストから認証済みの呼び出し元を取得する。
func GetIdentity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(contextKeyIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := v.(auth.Identity)
	return identity, ok
}
