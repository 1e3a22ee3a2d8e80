package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheuskafuri/hyperdesk/internal/config"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/index"
	"github.com/matheuskafuri/hyperdesk/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagRefresh bool
	flagConfig  string
	flagVerbose bool
	flagHTML    bool
	flagTab     string
)

var rootCmd = &cobra.Command{
	Use:   "hyperdesk",
	Short: "Terminal desk for hyper:// sites, feeds and social signals",
	Long: `hyperdesk keeps a local index of hyper:// sites and the RSS/Atom sources you
follow, and shows them as a sites list and a filterable activity feed.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log at debug level")
	rootCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "force a feed sync before launching")
	rootCmd.Flags().StringVar(&flagTab, "tab", "", "open directly on a tab (feed, sites)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(sitesCmd)
	rootCmd.AddCommand(signalsCmd)
	rootCmd.AddCommand(subscribeCmd)
	rootCmd.AddCommand(unsubscribeCmd)
	rootCmd.AddCommand(bookmarkCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(removeCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "hyperdesk %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// env is what every command works with: the loaded config, the index and a
// logger.
type env struct {
	cfg    *config.Config
	idx    *index.Index
	logger *zap.Logger
}

func openEnv() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(config.LogPath(), cfg.Log.Level, flagVerbose)
	if err != nil {
		return nil, err
	}

	idx, err := index.Open(config.IndexPath())
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}

	// The profile drive is the user's own and always writable.
	if err := idx.UpsertSite(hyper.Site{URL: cfg.Profile.URL, Title: cfg.Profile.Title, Writable: true}); err != nil {
		idx.Close()
		return nil, fmt.Errorf("registering profile: %w", err)
	}
	return &env{cfg: cfg, idx: idx, logger: logger}, nil
}

func (e *env) Close() {
	e.idx.Close()
	_ = e.logger.Sync()
}
