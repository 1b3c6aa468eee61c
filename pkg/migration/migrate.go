// Package migration はSQLiteデータベースのマイグレーションを管理する。
// embed.FSからgoose形式のSQLファイルを読み込み、未適用のものだけを順に適用する。
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// Run はfsys配下のdirにあるマイグレーションファイルをバージョン順に適用する。
// 適用済みのバージョンはgooseのバージョン管理テーブルで追跡され、スキップされる。
// ファイル名形式: 00001_description.sql
// 適用結果はloggerに記録する。loggerがnilの場合は記録しない。
func Run(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}


	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return fmt.Errorf("マイグレーションディレクトリの参照に失敗: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("マイグレーションプロバイダの作成に失敗: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("マイグレーションの適用に失敗: %w", err)
	}

	for _, r := range results {
		logger.InfoContext(ctx, "マイグレーションを適用しました",
			"version", r.Source.Version,
			"path", r.Source.Path,
			"duration", r.Duration,
		)
	}
	return nil
}
