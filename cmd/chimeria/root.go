package main

import (
	"log/slog"
	"os"

	"github.com/nao1215/chimeria/internal/config"
	"github.com/nao1215/chimeria/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "chimeria",
	Short:         "Mission Control AI gateway",
	Long:          `chimeria は認証済みの乗組員からの質問と画像を受け付け、Mission Control AIの応答と会話履歴を提供するゲートウェイです。`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(userCmd)
}
