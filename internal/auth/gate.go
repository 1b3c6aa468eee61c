package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/chimeria/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// bearerPrefix はAuthorizationヘッダーに必要な接頭辞。
const bearerPrefix = "Bearer "

var tracer = otel.Tracer("github.com/nao1215/chimeria/internal/auth")

// Claims はアクセストークンのペイロード。
type Claims struct {
	jwt.RegisteredClaims
	// UserID はトークンの主体となるユーザーID。
	UserID string `json:"id"`
	// Email は主体のメールアドレス。
	Email string `json:"email"`
}

// Identity は検証済みの主体。リクエストの間だけ使われ、保存もキャッシュもしない。
type Identity struct {
	// ID はユーザーID。
	ID string `json:"id"`
	// Email はメールアドレス。
	Email string `json:"email"`
}

// UserFinder はユーザーの存在確認に使うストア。
type UserFinder interface {
	FindUserByID(ctx context.Context, id string) (store.User, error)
}

// Gate はBearerトークンを検証して主体を解決する。
type Gate struct {
	secret []byte
	users  UserFinder
	now    func() time.Time
	logger *slog.Logger
}

// Option はGateの設定を変更する。
type Option func(*Gate)

// WithClock は有効期限の判定に使う現在時刻を差し替える。
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithLogger は認証失敗を記録するロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) { g.logger = logger }
}

// NewGate は署名鍵とユーザーストアを受け取ってGateを生成する。
// secretが空でも生成でき、その場合Verifyは常に KindServerMisconfigured を返す。
func NewGate(secret string, users UserFinder, opts ...Option) *Gate {
	g := &Gate{
		secret: []byte(secret),
		users:  users,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Verify はリクエストヘッダーのBearerトークンを検証し、トークンに含まれる主体を返す。
// 失敗した場合は *Error を返す。
func (g *Gate) Verify(ctx context.Context, header http.Header) (Identity, error) {
	ctx, span := tracer.Start(ctx, "auth.Verify")
	defer span.End()

	identity, err := g.evaluate(ctx, header)
	if err != nil {
		kind := KindOf(err)
		span.SetAttributes(attribute.String("auth.result", string(kind)))
		span.SetStatus(codes.Error, string(kind))
		g.logger.WarnContext(ctx, "認証に失敗", "kind", kind, "error", err)
		return Identity{}, err
	}

	span.SetAttributes(attribute.String("auth.result", "ok"))
	return identity, nil
}

// evaluate は検証の各段階を順に実行し、最初に失敗した段階のエラーを返す。
// 途中でパニックが起きた場合も KindCredentialInvalid として返す。
func (g *Gate) evaluate(ctx context.Context, header http.Header) (identity Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			identity = Identity{}
			err = newError(KindCredentialInvalid, "認証情報を検証できませんでした", fmt.Errorf("panic: %v", r))
		}
	}()

	token, found := strings.CutPrefix(header.Get("Authorization"), bearerPrefix)
	if !found || token == "" {
		return Identity{}, newError(KindMissingCredential, "Authorizationヘッダーにアクセストークンがありません", nil)
	}

	if len(g.secret) == 0 {
		return Identity{}, newError(KindServerMisconfigured, "アクセストークンの署名鍵が設定されていません", nil)
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(token, claims, func(_ *jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.now),
	)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}

	if claims.UserID == "" || claims.Email == "" {
		return Identity{}, newError(KindCredentialInvalid, "トークンのペイロードが不正です", nil)
	}

	if _, err := g.users.FindUserByID(ctx, claims.UserID); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return Identity{}, newError(KindSubjectNotFound, "ユーザーが見つかりません", nil)
		}
		return Identity{}, newError(KindCredentialInvalid, "認証情報を検証できませんでした", err)
	}

	return Identity{ID: claims.UserID, Email: claims.Email}, nil
}

// mapJWTError はjwtライブラリのエラーを認証エラーに変換する。
// 署名が正しく期限だけが切れている場合のみ KindCredentialExpired になる。
func mapJWTError(err error) *Error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return newError(KindCredentialExpired, "トークンの有効期限が切れています", err)
	}
	return newError(KindCredentialInvalid, "認証トークンが無効です", err)
}
