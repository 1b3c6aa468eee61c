package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/chimeria/internal/assistant"
	"github.com/nao1215/chimeria/internal/store"
	"github.com/nao1215/chimeria/pkg/middleware"
)

// 既定値。
const (
	serviceName           = "chimeria"
	defaultMaxUploadBytes = 10 << 20
	// formOverhead は画像以外のフォーム要素に許容するバイト数。
	formOverhead       = 1 << 20
	historyConcurrency = 8
	readHeaderTimeout  = 10 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// MessageStore はサーバーが使うユーザーと会話履歴の永続化操作。
// *store.Store が実装する。
type MessageStore interface {
	FindUserByID(ctx context.Context, id string) (store.User, error)
	CreateMessage(ctx context.Context, m store.Message) (store.Message, error)
	ListMessagesByUser(ctx context.Context, userID string) ([]store.Message, error)
}

// Attachments は添付画像の保存とデータURL化。
// *attachment.Store が実装する。
type Attachments interface {
	Save(ctx context.Context, data []byte, ownerID, originalFilename string) (string, error)
	InlineView(ctx context.Context, relPath string) (string, bool)
}

// Config はサーバーの設定。
type Config struct {
	// Port はリッスンポート。
	Port string
	// FrontendURL はCORSで許可するオリジン。
	FrontendURL string
	// MaxUploadBytes はアップロード画像の最大サイズ。0以下の場合は10MB。
	MaxUploadBytes int64
}

// Dependencies はサーバーが呼び出す外部の部品。
type Dependencies struct {
	Verifier    middleware.Verifier
	Store       MessageStore
	Attachments Attachments
	Assistant   assistant.Assistant
	Logger      *slog.Logger
}

// Server はchimeriaゲートウェイのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// maxUploadBytes はアップロード画像の最大サイズ。
	maxUploadBytes int64

	verifier    middleware.Verifier
	store       MessageStore
	attachments Attachments
	assistant   assistant.Assistant
	logger      *slog.Logger
}

// NewServer は新しいサーバーを生成し、ルーティングを設定する。
func NewServer(cfg Config, deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	router := gin.New()
	// Recoveryが書いた500をTracingが記録できるよう、Tracingを外側に置く
	router.Use(middleware.Tracing())
	router.Use(middleware.Recovery(logger))
	router.Use(gin.Logger())
	router.Use(middleware.CORS(cfg.FrontendURL))

	s := &Server{
		router:         router,
		port:           cfg.Port,
		maxUploadBytes: maxUpload,
		verifier:       deps.Verifier,
		store:          deps.Store,
		attachments:    deps.Attachments,
		assistant:      deps.Assistant,
		logger:         logger,
	}
	s.setupRoutes()

	return s
}

// Handler はルーティング済みのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTPサーバーを起動", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("HTTPサーバーを停止")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック（認証不要）
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	authed := s.router.Group("/")
	authed.Use(middleware.Authenticate(s.verifier))
	{
		authed.POST("/gemini/ask", s.handleAsk())
		authed.GET("/user/profile", s.handleProfile())
		authed.GET("/user/messages", s.handleMessages())
	}
}
