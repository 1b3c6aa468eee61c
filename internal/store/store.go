package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/chimeria/pkg/migration"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrationsFS embed.FS

// ErrUserNotFound は指定したIDのユーザーが存在しないことを表す。
var ErrUserNotFound = errors.New("ユーザーが見つかりません")

// Store はSQLiteに対するクエリを実行する。
type Store struct {
	// db はSQLiteデータベース接続。
	db *sql.DB
	// logger はマイグレーションの適用結果を記録する。
	logger *slog.Logger
}

// Option はStoreの設定を変更する関数。
type Option func(*Store)

// WithLogger はマイグレーションの適用結果を記録するロガーを設定する。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open はpathのSQLiteデータベースを開き、マイグレーションを適用したStoreを返す。
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	s := New(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New は既存の接続からStoreを生成する。スキーマは適用しない。
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate は未適用のマイグレーションを適用する。
func (s *Store) Migrate(ctx context.Context) error {
	if err := migration.Run(ctx, s.db, migrationsFS, "migrations", s.logger); err != nil {
		return fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// FindUserByID はIDでユーザーを取得する。
// 該当するユーザーがいない場合は ErrUserNotFound を返す。
func (s *Store) FindUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// CreateUser はユーザーを登録する。CreatedAtがゼロ値の場合は現在時刻を使う。
func (s *Store) CreateUser(ctx context.Context, u User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.CreatedAt,
	); err != nil {
		return fmt.Errorf("ユーザーの登録に失敗: %w", err)
	}
	return nil
}

// CreateMessage はメッセージを追記し、採番したIDと作成日時を設定して返す。
func (s *Store) CreateMessage(ctx context.Context, m Message) (Message, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	var image sql.NullString
	if m.Image != "" {
		image = sql.NullString{String: m.Image, Valid: true}
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, content, image, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.UserID, m.Content, image, string(m.Role), m.CreatedAt,
	); err != nil {
		return Message{}, fmt.Errorf("メッセージの保存に失敗: %w", err)
	}
	return m, nil
}

// ListMessagesByUser はユーザーの会話履歴を古い順に返す。
// 同時刻のメッセージは追記順に並ぶ。
func (s *Store) ListMessagesByUser(ctx context.Context, userID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, content, image, role, created_at
		 FROM messages WHERE user_id = ? ORDER BY seq ASC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("メッセージ一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	messages := make([]Message, 0)
	for rows.Next() {
		var (
			m     Message
			image sql.NullString
			role  string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Content, &image, &role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("メッセージの読み取りに失敗: %w", err)
		}
		m.Image = image.String
		m.Role = Role(role)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("メッセージ一覧の走査に失敗: %w", err)
	}
	return messages, nil
}
