package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/hyperdesk/internal/config"
	"github.com/matheuskafuri/hyperdesk/internal/feed"
	"github.com/matheuskafuri/hyperdesk/internal/tui"
	"github.com/matheuskafuri/hyperdesk/internal/update"
)

func runTUI(cmd *cobra.Command, args []string) error {
	switch flagTab {
	case "", "feed", "sites":
	default:
		return fmt.Errorf("unknown tab %q (valid: feed, sites)", flagTab)
	}
	return runApp(flagTab)
}

func runApp(tab string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if flagRefresh || e.idx.NeedsRefresh(e.cfg.RefreshDuration()) {
		fmt.Println("Syncing feeds...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		result := syncSources(ctx, e)
		cancel()

		for _, err := range result.Errors {
			fmt.Printf("  [warn] %v\n", err)
		}
	}

	var updateVersion string
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if r := update.Check(ctx, version); r != nil {
		updateVersion = r.LatestVersion
	}
	cancel()

	configPath := flagConfig
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	return tui.Run(tui.RunOpts{
		Cfg:           e.cfg,
		ConfigPath:    configPath,
		Index:         e.idx,
		Fetcher:       feed.NewRSSFetcher(e.cfg.RetentionDuration()),
		Logger:        e.logger,
		StartTab:      tab,
		UpdateVersion: updateVersion,
	})
}

func parseSince(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
