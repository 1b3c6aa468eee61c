// Package config は環境変数からゲートウェイの実行時設定を読み込む。
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// AttachmentBackend は添付ファイルの保存先の種類。
type AttachmentBackend string

const (
	// AttachmentBackendLocal はローカルディスクに保存する。
	AttachmentBackendLocal AttachmentBackend = "local"
	// AttachmentBackendS3 はS3互換ストレージに保存する。
	AttachmentBackendS3 AttachmentBackend = "s3"
)

// Config はゲートウェイの実行時設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `env:"PORT" envDefault:"8080"`
	// DatabasePath はSQLiteデータベースファイルのパス。
	DatabasePath string `env:"DATABASE_PATH" envDefault:"/data/chimeria.db"`
	// AccessTokenSecret はアクセストークンのHS256署名鍵。
	// 空の場合も起動はするが、認証が必要なリクエストはすべて500になる。
	AccessTokenSecret string `env:"ACCESS_TOKEN_SECRET"`
	// FrontendURL はCORSで許可するフロントエンドのオリジン。
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	// MaxUploadBytes はアップロード画像の最大サイズ（バイト）。
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	// LogLevel はログレベル（debug, info, warn, error）。
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFormat はログ形式（json, text）。
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Gemini は生成AIの接続設定。
	Gemini GeminiConfig
	// Attachment は添付ファイルの保存先設定。
	Attachment AttachmentConfig
	// Telemetry はトレースの送信設定。
	Telemetry TelemetryConfig
}

// GeminiConfig は生成AIの接続設定。
type GeminiConfig struct {
	APIKey  string `env:"GEMINI_API_KEY"`
	Model   string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	BaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	// Timeout は1回の問い合わせの上限時間。画像付きの生成は30秒を超えることがある。
	Timeout time.Duration `env:"GEMINI_TIMEOUT" envDefault:"120s"`
}

// AttachmentConfig は添付ファイルの保存先設定。
type AttachmentConfig struct {
	Backend AttachmentBackend `env:"ATTACHMENT_BACKEND" envDefault:"local"`
	// ImageDir はlocal保存時のルートディレクトリ。
	ImageDir string `env:"IMAGE_DIR" envDefault:"/app/images"`

	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Prefix    string `env:"S3_PREFIX"`
}

// TelemetryConfig はOpenTelemetryの設定。
type TelemetryConfig struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Load は環境変数から設定を読み込み、値の組み合わせを検証する。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("環境変数の読み込みに失敗: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Gemini.Timeout <= 0 {
		return fmt.Errorf("GEMINI_TIMEOUT は正の値である必要があります: %s", c.Gemini.Timeout)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES は正の値である必要があります: %d", c.MaxUploadBytes)
	}
	switch c.Attachment.Backend {
	case AttachmentBackendLocal:
		if c.Attachment.ImageDir == "" {
			return fmt.Errorf("IMAGE_DIR が設定されていません")
		}
	case AttachmentBackendS3:
		if c.Attachment.S3Bucket == "" {
			return fmt.Errorf("ATTACHMENT_BACKEND=s3 の場合は S3_BUCKET が必要です")
		}
	default:
		return fmt.Errorf("ATTACHMENT_BACKEND が不正です: %q", c.Attachment.Backend)
	}
	return nil
}
