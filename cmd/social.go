package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/index"
	"github.com/matheuskafuri/hyperdesk/internal/signal"
	"github.com/matheuskafuri/hyperdesk/internal/sites"
)

var (
	flagSignalAuthors []string
	flagBookmarkTitle string
	flagBookmarkDesc  string
)

var signalsCmd = &cobra.Command{
	Use:   "signals <url>",
	Short: "Show comments and annotations left on a URL",
	Long: `Count the comments replying to a URL and tally the annotations left on it.

Only your own drive and the sites you subscribe to are counted unless
--author is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		authors := flagSignalAuthors
		if len(authors) == 0 {
			if authors, err = followedAuthors(ctx, e); err != nil {
				return err
			}
		}

		s, err := signal.Load(ctx, e.idx, args[0], authors)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flagHTML {
			return signal.Render(out, signal.View{UserURL: e.cfg.Profile.URL, Authors: authors, Signals: s})
		}
		fmt.Fprintln(out, s.Summary())
		for _, t := range s.Annotations {
			var who []string
			for _, a := range t.Authors {
				who = append(who, a.Title)
			}
			fmt.Fprintf(out, "  %s  %s\n", t.Value, strings.Join(who, ", "))
		}
		return nil
	},
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <url>",
	Short: "Subscribe to a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSubscription(cmd, args[0], true)
	},
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe <url>",
	Short: "Stop subscribing to a site",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setSubscription(cmd, args[0], false)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <url>",
	Short: "Forget a site and everything indexed from it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		site, _, err := lookupSite(ctx, e, args[0])
		if err != nil {
			return err
		}
		if ident := sites.Ident(site, e.cfg.Profile.URL); ident != "" {
			return fmt.Errorf("the %s drive cannot be removed", ident)
		}
		if err := e.idx.RemoveSite(ctx, site.URL); err != nil {
			return err
		}
		e.logger.Info("removed site", zap.String("origin", site.Origin))
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s.\n", site.Origin)
		return nil
	},
}

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark <url>",
	Short: "Bookmark a URL on your profile drive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		href, err := checkHref(args[0])
		if err != nil {
			return err
		}
		title := flagBookmarkTitle
		if title == "" {
			title = hyper.ToNiceURL(href)
		}
		meta := map[string]string{"href": href, "title": title}
		if flagBookmarkDesc != "" {
			meta["description"] = flagBookmarkDesc
		}
		return writeProfileFile(cmd, "bookmarks", ".goto", meta, "")
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <url> <text>",
	Short: "Comment on a URL",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		href, err := checkHref(args[0])
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		return writeProfileFile(cmd, "comments", ".md", map[string]string{"href": href}, text+"\n")
	},
}

var postCmd = &cobra.Command{
	Use:   "post <text>",
	Short: "Write a microblog post",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeProfileFile(cmd, "microblog", ".md", nil, strings.Join(args, " ")+"\n")
	},
}

var annotateCmd = &cobra.Command{
	Use:   "annotate <url> <value>",
	Short: "Annotate a URL, e.g. with +1",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		href, err := checkHref(args[0])
		if err != nil {
			return err
		}
		value := strings.TrimSpace(args[1])
		if value == "" {
			return errors.New("annotation value is empty")
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		err = e.idx.PutRecord(cmd.Context(), hyper.Record{
			Index: hyper.AnnotationsIndex,
			Site:  hyper.SiteRef{URL: e.cfg.Profile.URL, Title: e.cfg.Profile.Title},
			Href:  href,
			Value: value,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Annotated %s with %s.\n", href, value)
		return nil
	},
}

func init() {
	signalsCmd.Flags().StringSliceVar(&flagSignalAuthors, "author", nil, "only count these drives (repeatable)")
	signalsCmd.Flags().BoolVar(&flagHTML, "html", false, "write an HTML fragment instead of text")
	bookmarkCmd.Flags().StringVar(&flagBookmarkTitle, "title", "", "bookmark title")
	bookmarkCmd.Flags().StringVar(&flagBookmarkDesc, "description", "", "bookmark description")
}

func checkHref(raw string) (string, error) {
	if hyper.Origin(raw) == "" {
		return "", fmt.Errorf("not a URL: %q", raw)
	}
	return raw, nil
}

// lookupSite finds the site serving rawURL along with its subscriptions. A
// site the index has never seen is returned as a bare origin and known is
// false.
func lookupSite(ctx context.Context, e *env, rawURL string) (site hyper.Site, known bool, err error) {
	origin := hyper.Origin(rawURL)
	if origin == "" {
		return hyper.Site{}, false, fmt.Errorf("not a URL: %q", rawURL)
	}
	site, err = e.idx.GetSite(ctx, origin)
	switch {
	case errors.Is(err, index.ErrNotFound):
		site = hyper.Site{URL: origin + "/", Origin: origin}
	case err != nil:
		return hyper.Site{}, false, err
	default:
		known = true
	}
	site.Subscriptions, err = e.idx.ListRecords(ctx, hyper.RecordFilter{Index: hyper.SubscriptionsIndex, Href: origin}, 0)
	if err != nil {
		return hyper.Site{}, false, err
	}
	return site, known, nil
}

func setSubscription(cmd *cobra.Command, rawURL string, subscribe bool) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	site, known, err := lookupSite(ctx, e, rawURL)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	profile := e.cfg.SitesProfile()
	if sites.IsSubscribed(site, profile.URL) == subscribe {
		if subscribe {
			fmt.Fprintf(out, "Already subscribed to %s.\n", site.Origin)
		} else {
			fmt.Fprintf(out, "Not subscribed to %s.\n", site.Origin)
		}
		return nil
	}

	// A newly followed site is added to the index so it shows up in listings.
	if subscribe && !known {
		site.Title = hyper.ToNiceURL(site.Origin)
		if err := e.idx.UpsertSite(site); err != nil {
			return err
		}
	}
	if _, err := sites.ToggleSubscribe(ctx, e.idx, site, profile); err != nil {
		return err
	}
	e.logger.Info("subscription changed", zap.String("origin", site.Origin), zap.Bool("subscribed", subscribe))
	if subscribe {
		fmt.Fprintf(out, "Subscribed to %s.\n", site.Origin)
	} else {
		fmt.Fprintf(out, "Unsubscribed from %s.\n", site.Origin)
	}
	return nil
}

// followedAuthors is the profile drive plus every site it subscribes to.
func followedAuthors(ctx context.Context, e *env) ([]string, error) {
	subs, err := e.idx.ListRecords(ctx, hyper.RecordFilter{Index: hyper.SubscriptionsIndex}, 0)
	if err != nil {
		return nil, err
	}
	authors := []string{e.cfg.Profile.URL}
	for _, s := range subs {
		if hyper.IsSameOrigin(s.Site.URL, e.cfg.Profile.URL) {
			authors = append(authors, s.Href)
		}
	}
	return authors, nil
}

// writeProfileFile stores a new file under /dir/ on the profile drive, named
// by the current time in milliseconds.
func writeProfileFile(cmd *cobra.Command, dir, ext string, meta map[string]string, content string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	now := time.Now()
	f := index.File{
		Drive:    e.cfg.Profile.URL,
		Path:     fmt.Sprintf("/%s/%d%s", dir, now.UnixMilli(), ext),
		Ctime:    now,
		Mtime:    now,
		Metadata: meta,
		Content:  content,
	}
	if err := e.idx.PutFiles([]index.File{f}); err != nil {
		return err
	}
	e.logger.Info("wrote file", zap.String("url", f.URL()))
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", f.URL())
	return nil
}
