package main

import (
	"github.com/nao1215/chimeria/internal/store"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := store.Open(cmd.Context(), cfg.DatabasePath, store.WithLogger(logger))
		if err != nil {
			return err
		}
		logger.Info("マイグレーションが完了しました", "database", cfg.DatabasePath)
		return st.Close()
	},
}
