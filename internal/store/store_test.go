package store

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore はテストごとに独立したSQLiteファイルでStoreを開く。
func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "chimeria.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFindUserByID(t *testing.T) {
	t.Parallel()

	t.Run("登録済みユーザーを取得できること", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateUser(ctx, User{ID: "user-1", Email: "astro@example.com", Name: "Astro"}))

		got, err := s.FindUserByID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.ID)
		assert.Equal(t, "astro@example.com", got.Email)
		assert.Equal(t, "Astro", got.Name)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("存在しないIDではErrUserNotFoundが返ること", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)

		_, err := s.FindUserByID(context.Background(), "missing")
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestMessages(t *testing.T) {
	t.Parallel()

	t.Run("追記順に履歴が返り画像パスが保持されること", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateUser(ctx, User{ID: "user-1", Email: "a@example.com"}))
		require.NoError(t, s.CreateUser(ctx, User{ID: "user-2", Email: "b@example.com"}))

		first, err := s.CreateMessage(ctx, Message{UserID: "user-1", Content: "酸素が漏れている", Image: "user-1/20261017_120000_x.png", Role: RoleUser})
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)

		_, err = s.CreateMessage(ctx, Message{UserID: "user-1", Content: "落ち着いてください", Role: RoleAssistant})
		require.NoError(t, err)
		_, err = s.CreateMessage(ctx, Message{UserID: "user-2", Content: "別ユーザー", Role: RoleUser})
		require.NoError(t, err)

		got, err := s.ListMessagesByUser(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, got, 2)

		assert.Equal(t, first.ID, got[0].ID)
		assert.Equal(t, "酸素が漏れている", got[0].Content)
		assert.Equal(t, "user-1/20261017_120000_x.png", got[0].Image)
		assert.Equal(t, RoleUser, got[0].Role)

		assert.Equal(t, "落ち着いてください", got[1].Content)
		assert.Empty(t, got[1].Image)
		assert.Equal(t, RoleAssistant, got[1].Role)
	})

	t.Run("履歴が無い場合は空スライスが返ること", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)

		got, err := s.ListMessagesByUser(context.Background(), "nobody")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("マイグレーションを再実行しても失敗しないこと", func(t *testing.T) {
		t.Parallel()

		s := openTestStore(t)
		require.NoError(t, s.Migrate(context.Background()))
	})
}

func TestOpenWithLogger(t *testing.T) {
	t.Parallel()

	t.Run("マイグレーションの適用が指定したロガーに記録されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		s, err := Open(context.Background(), filepath.Join(t.TempDir(), "chimeria.db"),
			WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		assert.Contains(t, buf.String(), "マイグレーションを適用しました")
		assert.Contains(t, buf.String(), "version=1")
	})
}
