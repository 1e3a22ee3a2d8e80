package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/config"
	"github.com/matheuskafuri/hyperdesk/internal/feed"
	"github.com/matheuskafuri/hyperdesk/internal/feedview"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/markdown"
)

var (
	flagQueryType       string
	flagQuerySources    []string
	flagQueryFilter     string
	flagQuerySort       string
	flagQueryLimit      int
	flagQueryOffset     int
	flagQueryMode       string
	flagQueryDateTitles bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the activity feed",
	Long: `Query drive files of one content type across your sources and print them,
newest first. With --html the feed is written as the HTML fragment a page embeds.

Content types: all, bookmarks, blogposts, microblogposts, comments, images, pages.
Sources are source names from the config or hyper:// drive URLs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		qc := e.cfg.FeedQuery()
		if cmd.Flags().Changed("type") {
			if qc.ContentType, err = classify.ResolveAlias(flagQueryType); err != nil {
				return err
			}
		}
		if qc.Sources, err = resolveSources(e.cfg, flagQuerySources); err != nil {
			return err
		}
		if cmd.Flags().Changed("sort") {
			qc.Sort = hyper.Sort(flagQuerySort)
		}
		if cmd.Flags().Changed("limit") {
			qc.Limit = flagQueryLimit
		}
		qc.Filter = flagQueryFilter
		qc.Offset = flagQueryOffset

		mode := e.cfg.RenderMode()
		if cmd.Flags().Changed("mode") {
			if mode, err = feedview.ParseRenderMode(flagQueryMode); err != nil {
				return err
			}
		}

		q := feedview.NewQuerier(e.idx, markdown.New(), e.logger.Named("feed"))
		w := feedview.NewWidget(q, e.logger, nil)
		defer w.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		w.SetConfig(qc)
		if err := w.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for feed: %w", err)
		}
		if err := w.Err(); err != nil {
			return fmt.Errorf("querying feed: %w", err)
		}

		out := cmd.OutOrStdout()
		if flagHTML {
			return feedview.Render(out, w.View(feedview.View{
				Title:          classify.Title(qc.ContentType),
				Mode:           mode,
				ShowDateTitles: flagQueryDateTitles || e.cfg.Feed.ShowDateTitles,
			}))
		}
		results, _ := w.Results()
		printResults(out, results, time.Now())
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVarP(&flagQueryType, "type", "t", "all", "content type to show")
	queryCmd.Flags().StringSliceVarP(&flagQuerySources, "source", "s", nil, "restrict to these sources (repeatable)")
	queryCmd.Flags().StringVarP(&flagQueryFilter, "filter", "f", "", "only show entries matching this pattern")
	queryCmd.Flags().StringVar(&flagQuerySort, "sort", "ctime", "sort by ctime or mtime")
	queryCmd.Flags().IntVarP(&flagQueryLimit, "limit", "n", 0, "maximum number of entries (0 for no limit)")
	queryCmd.Flags().IntVar(&flagQueryOffset, "offset", 0, "skip this many entries")
	queryCmd.Flags().StringVar(&flagQueryMode, "mode", "row", "HTML render mode ("+renderModeNames()+")")
	queryCmd.Flags().BoolVar(&flagQueryDateTitles, "date-titles", false, "group HTML output under date headings")
	queryCmd.Flags().BoolVar(&flagHTML, "html", false, "write an HTML fragment instead of text")
}

func renderModeNames() string {
	var names []string
	for _, m := range feedview.AllRenderModes() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

// resolveSources maps source names from the config to the drives they are
// mirrored to. hyper:// URLs are passed through as drives.
func resolveSources(cfg *config.Config, names []string) ([]string, error) {
	var drives []string
	for _, name := range names {
		if origin := hyper.Origin(name); strings.HasPrefix(name, "hyper://") && origin != "" {
			drives = append(drives, origin+"/")
			continue
		}
		found := false
		for _, s := range cfg.Sources {
			if strings.EqualFold(s.Name, name) {
				drives = append(drives, feed.DriveURL(s.URL))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return drives, nil
}

func printResults(w io.Writer, results []feedview.Result, now time.Time) {
	if len(results) == 0 {
		fmt.Fprintln(w, "Nothing found.")
		return
	}
	for _, r := range results {
		author := r.Author.Title
		if author == "" {
			author = hyper.ToNiceURL(r.Author.URL)
		}
		fmt.Fprintf(w, "%-16s %-10s %s\n", feedview.RelativeDate(r.Ctime, now), author, r.PlainTitle())
		link := r.Href
		if link == "" {
			link = r.URL
		}
		fmt.Fprintf(w, "%16s %s\n", "", link)
	}
}
