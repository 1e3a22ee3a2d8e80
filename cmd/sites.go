package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/sites"
)

var (
	flagSitesListing   string
	flagSitesFilter    string
	flagSitesSingleRow bool
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List sites",
	Long: `List the sites in the index: your own (mine), the ones you subscribe to,
the ones people you follow subscribe to (suggested), or all of them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		sc := e.cfg.SitesQuery()
		if cmd.Flags().Changed("listing") {
			if sc.Listing, err = sites.ParseListing(flagSitesListing); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("single-row") {
			sc.SingleRow = flagSitesSingleRow
		}
		sc.Filter = flagSitesFilter

		profile := e.cfg.SitesProfile()
		w := sites.NewWidget(e.idx, profile, e.logger.Named("sites"), nil)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		w.SetConfig(sc)
		err = w.Wait(ctx)
		// Close waits for placeholder lookups, so Sites includes them.
		w.Close()
		if err != nil {
			return fmt.Errorf("waiting for sites: %w", err)
		}
		if err := w.Err(); err != nil {
			return fmt.Errorf("listing sites: %w", err)
		}

		list, _ := w.Sites()
		out := cmd.OutOrStdout()
		if flagHTML {
			return sites.Render(out, sites.View{
				Sites:      list,
				Listing:    sc.Listing,
				SingleRow:  sc.SingleRow,
				ProfileURL: profile.URL,
			})
		}
		printSites(out, list, sc.Listing, profile.URL)
		return nil
	},
}

func init() {
	sitesCmd.Flags().StringVarP(&flagSitesListing, "listing", "l", "all", "all, mine, subscribed or suggested")
	sitesCmd.Flags().StringVarP(&flagSitesFilter, "filter", "f", "", "only list sites matching this text")
	sitesCmd.Flags().BoolVar(&flagSitesSingleRow, "single-row", false, "show only the first few sites")
	sitesCmd.Flags().BoolVar(&flagHTML, "html", false, "write an HTML fragment instead of text")
}

func printSites(w io.Writer, list []hyper.Site, l sites.Listing, profileURL string) {
	if h := sites.Header(l); h != "" {
		fmt.Fprintln(w, h)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No sites.")
		return
	}
	for _, s := range list {
		mark := " "
		switch {
		case s.Writable:
			mark = "*"
		case sites.IsSubscribed(s, profileURL):
			mark = "+"
		}
		n := s.SubscriberCount()
		fmt.Fprintf(w, "%s %-30s %3d %-11s %s\n", mark, hyper.Shorten(s.Title, 30), n, hyper.Pluralize(n, "subscriber"), s.Origin)
		if who := sites.SubscriberTitles(s); who != "" {
			fmt.Fprintf(w, "  %s\n", who)
		}
	}
}
