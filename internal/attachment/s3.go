package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API はS3Backendが使うS3クライアントの操作。
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config はS3互換ストレージへの接続設定。
type S3Config struct {
	// Bucket は保存先のバケット名。
	Bucket string
	// Region はリージョン。
	Region string
	// Endpoint はMinIO等のS3互換エンドポイント。空ならAWSの既定エンドポイントを使う。
	Endpoint string
	// AccessKey と SecretKey は静的な認証情報。空なら既定の認証情報チェーンを使う。
	AccessKey string
	SecretKey string
	// Prefix はオブジェクトキーの前に付ける接頭辞。
	Prefix string
}

// NewS3Client は設定からS3クライアントを生成する。
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Backend はS3互換ストレージを保存先とするBackend。
// オブジェクトキーは {Prefix}/{相対パス} になる。ディレクトリの作成は不要。
type S3Backend struct {
	client S3API
	bucket string
	prefix string
}

// NewS3Backend はclientを使ってbucketに保存するS3Backendを生成する。
func NewS3Backend(client S3API, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}
}

// Put はオブジェクトを条件付き書き込み（If-None-Match: *）で作成し、既存のキーを上書きしない。
func (b *S3Backend) Put(ctx context.Context, ownerID, name string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(b.key(relativePath(ownerID, name))),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		IfNoneMatch:   aws.String("*"),
	}
	if mimeType := mimeTypeOf(name); mimeType != "" {
		input.ContentType = aws.String(mimeType)
	}

	if _, err := b.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("オブジェクトの書き込みに失敗: %w", err)
	}
	return nil
}

// Get はオブジェクトの内容を読み込む。キーが無い場合は fs.ErrNotExist を返す。
func (b *S3Backend) Get(ctx context.Context, relPath string) ([]byte, error) {
	if !fs.ValidPath(relPath) {
		return nil, fmt.Errorf("%s: %w", relPath, fs.ErrNotExist)
	}

	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(relPath)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%s: %w", relPath, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("オブジェクトの取得に失敗: %w", err)
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (b *S3Backend) key(relPath string) string {
	if b.prefix == "" {
		return relPath
	}
	return path.Join(b.prefix, relPath)
}
