package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheuskafuri/hyperdesk/internal/feed"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the configured RSS/Atom sources into the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
		defer cancel()
		result := syncSources(ctx, e)

		out := cmd.OutOrStdout()
		for _, err := range result.Errors {
			fmt.Fprintf(out, "  [warn] %v\n", err)
		}
		fmt.Fprintf(out, "Synced %d item(s) from %d source(s).\n", result.Files, result.Sites)
		return nil
	},
}

// syncSources mirrors every enabled source, records the sync time and prunes
// what fell out of the retention window.
func syncSources(ctx context.Context, e *env) feed.SyncResult {
	fetcher := feed.NewRSSFetcher(e.cfg.RetentionDuration())
	result := feed.Sync(ctx, e.idx, fetcher, e.cfg.EnabledSources())
	if err := e.idx.SetLastRefresh(); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("recording sync time: %w", err))
	}

	// Auto-prune old items after a sync
	if _, err := e.idx.Prune(e.cfg.RetentionDuration()); err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("pruning: %w", err))
	}

	e.logger.Info("sync finished",
		zap.Int("sites", result.Sites),
		zap.Int("files", result.Files),
		zap.Int("errors", len(result.Errors)))
	for _, err := range result.Errors {
		e.logger.Warn("sync", zap.Error(err))
	}
	return result
}
