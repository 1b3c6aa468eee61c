package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/nao1215/chimeria/internal/attachment")

// ErrInvalidOwner は所有者IDが保存先のディレクトリ名として使えないことを表す。
var ErrInvalidOwner = errors.New("所有者IDが不正です")

// Backend は添付ファイルの保存先。
type Backend interface {
	// Put はownerID配下のnameにdataを新規に書き込む。既存のファイルは上書きしない。
	// ownerIDの保存領域が無ければ作成する。
	Put(ctx context.Context, ownerID, name string, data []byte) error
	// Get は相対パスのファイル内容を読み込む。
	// ファイルが無い場合は fs.ErrNotExist を満たすエラーを返す。
	Get(ctx context.Context, relPath string) ([]byte, error)
}

// Store は添付ファイルの保存とデータURL化を行う。
type Store struct {
	backend Backend
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// Option はStoreの設定を変更する。
type Option func(*Store)

// WithClock はファイル名の日時部分に使う現在時刻を差し替える。
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator はファイル名のランダム部分の生成方法を差し替える。
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithLogger は読み出し失敗を記録するロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New はbackendに保存するStoreを生成する。
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save はdataをownerIDの領域に新しいファイル名で保存し、保存先の相対パスを返す。
// 相対パスは保存先のルートに依存しないため、そのままメッセージに記録できる。
func (s *Store) Save(ctx context.Context, data []byte, ownerID, originalFilename string) (string, error) {
	ctx, span := tracer.Start(ctx, "attachment.Save")
	defer span.End()

	if !validOwnerID(ownerID) {
		span.SetStatus(codes.Error, "invalid owner")
		return "", fmt.Errorf("%w: %q", ErrInvalidOwner, ownerID)
	}

	name := uniqueFilename(s.now(), s.newID(), originalFilename)
	rel := relativePath(ownerID, name)
	span.SetAttributes(
		attribute.String("attachment.path", rel),
		attribute.Int("attachment.size", len(data)),
	)

	if err := s.backend.Put(ctx, ownerID, name, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "put failed")
		return "", fmt.Errorf("添付ファイルの保存に失敗: %w", err)
	}
	return rel, nil
}

// InlineView は保存済みファイルを "data:{MIMEタイプ};base64,{内容}" 形式の文字列にする。
// パスが空、ファイルが無い、拡張子からMIMEタイプが判定できない、読み込みに失敗した
// 場合はいずれもfalseを返し、エラーにはしない。
func (s *Store) InlineView(ctx context.Context, relPath string) (string, bool) {
	if relPath == "" {
		return "", false
	}

	ctx, span := tracer.Start(ctx, "attachment.InlineView")
	defer span.End()
	span.SetAttributes(attribute.String("attachment.path", relPath))

	mimeType := mimeTypeOf(relPath)
	if mimeType == "" {
		s.logger.DebugContext(ctx, "MIMEタイプを判定できない添付ファイル", "path", relPath)
		span.SetAttributes(attribute.Bool("attachment.found", false))
		return "", false
	}

	data, err := s.backend.Get(ctx, relPath)
	if err != nil {
		// ファイルが無い場合も読み込み障害の場合も「画像なし」として扱う
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.DebugContext(ctx, "添付ファイルが見つかりません", "path", relPath)
		} else {
			s.logger.WarnContext(ctx, "添付ファイルの読み込みに失敗", "path", relPath, "error", err)
		}
		span.SetAttributes(attribute.Bool("attachment.found", false))
		return "", false
	}

	span.SetAttributes(attribute.Bool("attachment.found", true))
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

// mimeTypeOf はファイル名の拡張子からMIMEタイプを返す。パラメータ部分は取り除く。
// 内容からの推定は行わない。
func mimeTypeOf(name string) string {
	mediaType, _, _ := strings.Cut(mime.TypeByExtension(path.Ext(name)), ";")
	return strings.TrimSpace(mediaType)
}
