package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalBackend はローカルディスクのディレクトリを保存先とするBackend。
// 所有者ごとのサブディレクトリにファイルを置き、ルートの外側にはアクセスしない。
type LocalBackend struct {
	// dir は保存先のルートディレクトリ。
	dir string
	// root はdir配下に操作を閉じ込めるためのハンドル。
	root *os.Root
}

// NewLocalBackend はdirを保存先とするLocalBackendを生成する。
// ディレクトリが無ければ作成する。
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("画像保存ディレクトリの作成に失敗: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("画像保存ディレクトリのオープンに失敗: %w", err)
	}
	return &LocalBackend{dir: dir, root: root}, nil
}

// Dir は保存先のルートディレクトリを返す。
func (b *LocalBackend) Dir() string {
	return b.dir
}

// Close はルートディレクトリのハンドルを閉じる。
func (b *LocalBackend) Close() error {
	return b.root.Close()
}

// Put は所有者ディレクトリを作成（既にあれば何もしない）し、nameに新規ファイルとして書き込む。
// 同名のファイルが既にある場合は上書きせずエラーを返す。
func (b *LocalBackend) Put(ctx context.Context, ownerID, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.root.Mkdir(ownerID, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("ユーザーディレクトリの作成に失敗: %w", err)
	}

	target := filepath.Join(ownerID, name)
	f, err := b.root.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("ファイルの作成に失敗: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = b.root.Remove(target)
		return fmt.Errorf("ファイルの書き込みに失敗: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = b.root.Remove(target)
		return fmt.Errorf("ファイルのクローズに失敗: %w", err)
	}
	return nil
}

// Get は相対パスのファイル内容を読み込む。
func (b *LocalBackend) Get(ctx context.Context, relPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := b.root.Open(filepath.FromSlash(relPath))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}
