package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/TheRealTwizzy/poker-api/internal/docstore"
	"github.com/spf13/cobra"
)

var (
	databaseURLFlag string
	timeoutFlag     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "pokerctl",
	Short: "Operate the poker-api document store",
	Long: `pokerctl seeds and inspects the document store behind poker-api.

The database defaults to $DATABASE_URL and accepts the same URLs as the
server (postgres://..., sqlite://<path>, sqlite::memory:).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&databaseURLFlag, "database-url", os.Getenv("DATABASE_URL"),
		"Document store URL (default: $DATABASE_URL)")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 5*time.Second,
		"Timeout for each store operation")
}

func openStore(ctx context.Context) (*docstore.Store, error) {
	if databaseURLFlag == "" {
		return nil, errors.New("no database configured: set --database-url or DATABASE_URL")
	}
	return docstore.Open(ctx, docstore.Config{
		URL:          databaseURLFlag,
		MaxOpenConns: 1,
		Timeout:      timeoutFlag,
	})
}
