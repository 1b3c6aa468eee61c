package attachment

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// savedNamePattern は保存ファイル名の形式。
var savedNamePattern = regexp.MustCompile(`^user-1/\d{8}_\d{6}_[0-9a-f-]{36}\.jpg$`)

func newLocalStore(t *testing.T, opts ...Option) (*Store, *LocalBackend) {
	t.Helper()

	backend, err := NewLocalBackend(filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}, opts...)
	return New(backend, opts...), backend
}

func TestSave(t *testing.T) {
	t.Parallel()

	t.Run("相対パスが所有者IDと日時とUUIDと拡張子から作られること", func(t *testing.T) {
		t.Parallel()

		s, backend := newLocalStore(t)

		rel, err := s.Save(context.Background(), []byte("jpeg-bytes"), "user-1", "photo.jpg")
		require.NoError(t, err)
		assert.Regexp(t, savedNamePattern, rel)

		got, err := os.ReadFile(filepath.Join(backend.Dir(), filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg-bytes"), got)
	})

	t.Run("日時部分がUTCの秒単位になること", func(t *testing.T) {
		t.Parallel()

		jst := time.FixedZone("JST", 9*60*60)
		s, _ := newLocalStore(t,
			WithClock(func() time.Time { return time.Date(2026, 10, 17, 9, 30, 15, 999, jst) }),
			WithIDGenerator(func() string { return "fixed-id" }),
		)

		rel, err := s.Save(context.Background(), []byte("x"), "user-1", "shot.PNG")
		require.NoError(t, err)
		assert.Equal(t, "user-1/20261017_003015_fixed-id.PNG", rel)
	})

	t.Run("拡張子が無いファイル名でも保存できること", func(t *testing.T) {
		t.Parallel()

		s, _ := newLocalStore(t, WithIDGenerator(func() string { return "id" }))

		rel, err := s.Save(context.Background(), []byte("x"), "user-1", "image")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(rel, "_id"), rel)
	})

	t.Run("同じ内容を2回保存すると別のパスになること", func(t *testing.T) {
		t.Parallel()

		s, _ := newLocalStore(t)

		first, err := s.Save(context.Background(), []byte("same"), "user-1", "a.png")
		require.NoError(t, err)
		second, err := s.Save(context.Background(), []byte("same"), "user-1", "a.png")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("同じパスが生成された場合は上書きせずエラーになること", func(t *testing.T) {
		t.Parallel()

		s, backend := newLocalStore(t,
			WithClock(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }),
			WithIDGenerator(func() string { return "collide" }),
		)

		rel, err := s.Save(context.Background(), []byte("original"), "user-1", "a.png")
		require.NoError(t, err)

		_, err = s.Save(context.Background(), []byte("overwrite"), "user-1", "a.png")
		require.Error(t, err)

		got, err := os.ReadFile(filepath.Join(backend.Dir(), filepath.FromSlash(rel)))
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), got)
	})

	t.Run("ディレクトリとして使えない所有者IDは拒否されること", func(t *testing.T) {
		t.Parallel()

		s, _ := newLocalStore(t)

		for _, owner := range []string{"", ".", "..", "../etc", "a/b", `a\b`} {
			_, err := s.Save(context.Background(), []byte("x"), owner, "a.png")
			require.ErrorIs(t, err, ErrInvalidOwner, owner)
		}
	})

	t.Run("保存先に書き込めない場合はエラーが返ること", func(t *testing.T) {
		t.Parallel()

		s, backend := newLocalStore(t)
		// 所有者ディレクトリと同名のファイルを置いて書き込みを失敗させる
		require.NoError(t, os.WriteFile(filepath.Join(backend.Dir(), "user-1"), []byte("file"), 0o644))

		_, err := s.Save(context.Background(), []byte("x"), "user-1", "a.png")
		require.Error(t, err)
	})

	t.Run("同一所有者への並行保存がすべて別パスで読み出せること", func(t *testing.T) {
		t.Parallel()

		s, _ := newLocalStore(t)
		const n = 32

		paths := make([]string, n)
		var g errgroup.Group
		for i := range n {
			g.Go(func() error {
				rel, err := s.Save(context.Background(), []byte(fmt.Sprintf("content-%d", i)), "user-1", "photo.png")
				paths[i] = rel
				return err
			})
		}
		require.NoError(t, g.Wait())

		seen := make(map[string]struct{}, n)
		for i, rel := range paths {
			_, dup := seen[rel]
			require.False(t, dup, "重複したパス: %s", rel)
			seen[rel] = struct{}{}

			view, ok := s.InlineView(context.Background(), rel)
			require.True(t, ok)
			assert.Equal(t, []byte(fmt.Sprintf("content-%d", i)), decodeDataURL(t, view, "image/png"))
		}
	})
}

func TestInlineView(t *testing.T) {
	t.Parallel()

	t.Run("PNGファイルがimage/pngのデータURLになること", func(t *testing.T) {
		t.Parallel()

		s, backend := newLocalStore(t)
		payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0xff}
		require.NoError(t, os.MkdirAll(filepath.Join(backend.Dir(), "user-1"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(backend.Dir(), "user-1", "x.png"), payload, 0o644))

		got, ok := s.InlineView(context.Background(), "user-1/x.png")
		require.True(t, ok)
		assert.True(t, strings.HasPrefix(got, "data:image/png;base64,"), got)
		assert.Equal(t, payload, decodeDataURL(t, got, "image/png"))
	})

	t.Run("保存したJPEGが元のバイト列に戻ること", func(t *testing.T) {
		t.Parallel()

		s, _ := newLocalStore(t)
		blob := bytes.Repeat([]byte{0xff, 0xd8, 0x00, 0x42}, 1024)

		rel, err := s.Save(context.Background(), blob, "user-1", "photo.jpg")
		require.NoError(t, err)

		got, ok := s.InlineView(context.Background(), rel)
		require.True(t, ok)
		assert.Equal(t, blob, decodeDataURL(t, got, "image/jpeg"))
	})

	t.Run("空のバイト列も空のペイロードとして返ること", func(t *testing.T) {
		t.Parallel()

		s, _ := newLocalStore(t)

		rel, err := s.Save(context.Background(), []byte{}, "user-1", "empty.gif")
		require.NoError(t, err)

		got, ok := s.InlineView(context.Background(), rel)
		require.True(t, ok)
		assert.Equal(t, "data:image/gif;base64,", got)
	})

	t.Run("取得できない場合はすべて値なしになること", func(t *testing.T) {
		t.Parallel()

		s, backend := newLocalStore(t)
		require.NoError(t, os.MkdirAll(filepath.Join(backend.Dir(), "user-1", "dir.png"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(backend.Dir(), "user-1", "notes.unknownext"), []byte("x"), 0o644))
		outside := filepath.Join(filepath.Dir(backend.Dir()), "secret.png")
		require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

		for _, rel := range []string{
			"",
			"user-1/missing.png",
			"nobody/missing.png",
			"user-1/notes.unknownext",
			"user-1/dir.png",
			"../secret.png",
		} {
			got, ok := s.InlineView(context.Background(), rel)
			assert.False(t, ok, rel)
			assert.Empty(t, got, rel)
		}
	})

	t.Run("読み込み障害も値なしとして扱われること", func(t *testing.T) {
		t.Parallel()

		s := New(failingBackend{err: errors.New("input/output error")},
			WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))

		got, ok := s.InlineView(context.Background(), "user-1/x.png")
		assert.False(t, ok)
		assert.Empty(t, got)
	})
}

func TestExtension(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"photo.jpg":              ".jpg",
		"archive.tar.gz":         ".gz",
		"noext":                  "",
		"trailing.":              "",
		"../../etc/pw.png":       ".png",
		"weird.p n g":            "",
		"long.abcdefghijklmnopq": "",
	}
	for in, want := range tests {
		assert.Equal(t, want, extension(in), in)
	}
}

// failingBackend は常に失敗するBackend。
type failingBackend struct {
	err error
}

func (f failingBackend) Put(context.Context, string, string, []byte) error { return f.err }

func (f failingBackend) Get(context.Context, string) ([]byte, error) { return nil, f.err }

// decodeDataURL はデータURLのMIMEタイプを検証し、ペイロードを復号する。
func decodeDataURL(t *testing.T, dataURL, wantMIME string) []byte {
	t.Helper()

	payload, found := strings.CutPrefix(dataURL, "data:"+wantMIME+";base64,")
	require.True(t, found, dataURL)
	decoded, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	return decoded
}
