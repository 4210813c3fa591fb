package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cds-backfill/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cds-backfill",
	Short: "Backfill a daily CDS spread series from public swap disclosures",
	Long:  "Pulls daily security-based swap disclosures, picks out prints for one CDS reference (entity, currency, tenor) and collapses them to a gap-aware daily spread series.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional and only for local runs.
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
