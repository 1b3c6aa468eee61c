package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/chimeria/internal/assistant"
	"github.com/nao1215/chimeria/internal/attachment"
	"github.com/nao1215/chimeria/internal/auth"
	"github.com/nao1215/chimeria/internal/config"
	"github.com/nao1215/chimeria/internal/server"
	"github.com/nao1215/chimeria/internal/store"
	"github.com/nao1215/chimeria/pkg/httpclient"
	"github.com/nao1215/chimeria/pkg/telemetry"
	"github.com/spf13/cobra"
)

const serviceName = "chimeria"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		shutdownTelemetry, err := telemetry.Setup(ctx, serviceName, cfg.Telemetry.Endpoint, cfg.Telemetry.Enabled)
		if err != nil {
			return fmt.Errorf("トレースの初期化に失敗: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				logger.Warn("トレースの停止に失敗", "error", err)
			}
		}()

		st, err := store.Open(ctx, cfg.DatabasePath, store.WithLogger(logger))
		if err != nil {
			return err
		}
		defer st.Close()

		backend, closeBackend, err := newAttachmentBackend(ctx, cfg.Attachment)
		if err != nil {
			return err
		}
		defer closeBackend()

		if cfg.AccessTokenSecret == "" {
			logger.Warn("ACCESS_TOKEN_SECRET が未設定のため、認証が必要なリクエストはすべて失敗します")
		}

		gemini := assistant.NewGemini(cfg.Gemini.BaseURL, cfg.Gemini.APIKey, cfg.Gemini.Model,
			httpclient.WithTimeout(cfg.Gemini.Timeout))
		checkModel(ctx, gemini)

		srv := server.NewServer(server.Config{
			Port:           cfg.Port,
			FrontendURL:    cfg.FrontendURL,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}, server.Dependencies{
			Verifier:    auth.NewGate(cfg.AccessTokenSecret, st, auth.WithLogger(logger)),
			Store:       st,
			Attachments: attachment.New(backend, attachment.WithLogger(logger)),
			Assistant:   gemini,
			Logger:      logger,
		})

		return srv.Run(ctx)
	},
}

// checkModel は起動時にモデル設定を確認する。
// 生成AIが一時的に使えなくても認証や履歴は提供できるため、失敗は警告にとどめる。
func checkModel(ctx context.Context, g *assistant.Gemini) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	info, err := g.Model(ctx)
	if err != nil {
		logger.Warn("生成AIのモデルを確認できません", "error", err)
		return
	}
	logger.Info("生成AIのモデルを確認しました", "model", info.Name, "input_token_limit", info.InputTokenLimit)
}

// newAttachmentBackend は設定に応じた添付ファイルの保存先を生成する。
func newAttachmentBackend(ctx context.Context, c config.AttachmentConfig) (attachment.Backend, func(), error) {
	switch c.Backend {
	case config.AttachmentBackendS3:
		client, err := attachment.NewS3Client(ctx, attachment.S3Config{
			Bucket:    c.S3Bucket,
			Region:    c.S3Region,
			Endpoint:  c.S3Endpoint,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			Prefix:    c.S3Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("添付ファイルをS3に保存します", "bucket", c.S3Bucket, "prefix", c.S3Prefix)
		return attachment.NewS3Backend(client, c.S3Bucket, c.S3Prefix), func() {}, nil
	default:
		backend, err := attachment.NewLocalBackend(c.ImageDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("添付ファイルをローカルに保存します", "dir", backend.Dir())
		return backend, func() { _ = backend.Close() }, nil
	}
}
