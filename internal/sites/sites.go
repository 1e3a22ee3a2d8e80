// Package sites loads and renders the sites list: the user's own sites, the
// sites they subscribe to, or suggestions drawn from other people's
// subscriptions.
package sites

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

type Listing string

const (
	ListingAll        Listing = ""
	ListingMine       Listing = "mine"
	ListingSubscribed Listing = "subscribed"
	ListingSuggested  Listing = "suggested"
)

// ParseListing accepts the listing names used in config files and flags.
func ParseListing(s string) (Listing, error) {
	switch l := Listing(strings.ToLower(strings.TrimSpace(s))); l {
	case ListingAll, ListingMine, ListingSubscribed, ListingSuggested:
		return l, nil
	case "all":
		return ListingAll, nil
	}
	return "", fmt.Errorf("unknown listing %q (valid: all, mine, subscribed, suggested)", s)
}

// singleRowLimit is how many sites a single-row list fetches.
const singleRowLimit = 3

// Config selects which sites are listed.
type Config struct {
	Listing   Listing
	Filter    string
	SingleRow bool
}

func (c Config) Equal(o Config) bool {
	return c.Listing == o.Listing && c.Filter == o.Filter && c.SingleRow == o.SingleRow
}

// Profile is the user's own site.
type Profile struct {
	URL   string
	Title string
}

const loadingTitle = "Loading..."

// Load lists sites and attaches every known subscription to the site it
// points at.
func Load(ctx context.Context, db hyper.Database, profile Profile, cfg Config) ([]hyper.Site, error) {
	writable := cfg.Listing == ListingMine
	limit := 0
	if cfg.SingleRow {
		limit = singleRowLimit
	}

	var (
		sites []hyper.Site
		subs  []hyper.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sites, err = db.ListSites(gctx, hyper.SiteFilter{Search: cfg.Filter, Writable: &writable}, limit)
		if err != nil {
			return fmt.Errorf("listing sites: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		subs, err = db.ListRecords(gctx, hyper.RecordFilter{Index: hyper.SubscriptionsIndex}, 0)
		if err != nil {
			return fmt.Errorf("listing subscriptions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	unknown := join(sites, subs, profile.URL)

	switch cfg.Listing {
	case ListingSubscribed:
		out := sites[:0:0]
		for _, s := range sites {
			if IsSubscribed(s, profile.URL) {
				out = append(out, s)
			}
		}
		sortByTitle(out)
		return out, nil
	case ListingSuggested:
		var out []hyper.Site
		for _, s := range append(sites, unknown...) {
			if !IsSubscribed(s, profile.URL) {
				out = append(out, s)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].SubscriberCount() > out[j].SubscriberCount()
		})
		return out, nil
	}
	sortByTitle(sites)
	return sites, nil
}

// join appends each subscription to the site on its href's origin and returns
// placeholders for origins that are not in sites. Subscriptions to the
// profile itself never produce a placeholder.
func join(sites []hyper.Site, subs []hyper.Record, profileURL string) []hyper.Site {
	byOrigin := make(map[string]int, len(sites))
	for i, s := range sites {
		byOrigin[s.Origin] = i
	}

	var unknown []hyper.Site
	unknownIdx := map[string]int{}
	for _, sub := range subs {
		origin := hyper.Origin(sub.Href)
		if origin == "" {
			continue
		}
		if i, ok := byOrigin[origin]; ok {
			sites[i].Subscriptions = append(sites[i].Subscriptions, sub)
			continue
		}
		if hyper.IsSameOrigin(origin, profileURL) {
			continue
		}
		i, ok := unknownIdx[origin]
		if !ok {
			i = len(unknown)
			unknownIdx[origin] = i
			unknown = append(unknown, hyper.Site{
				URL:     origin + "/",
				Origin:  origin,
				Title:   loadingTitle,
				Unknown: true,
			})
		}
		unknown[i].Subscriptions = append(unknown[i].Subscriptions, sub)
	}
	return unknown
}

func sortByTitle(sites []hyper.Site) {
	sort.SliceStable(sites, func(i, j int) bool {
		return strings.ToLower(sites[i].Title) < strings.ToLower(sites[j].Title)
	})
}

// ResolveUnknown looks up the title and description of placeholder sites.
// Sites the database does not know stay as they are. The input is not modified.
func ResolveUnknown(ctx context.Context, db hyper.Database, sites []hyper.Site, logger *zap.Logger) ([]hyper.Site, error) {
	out := make([]hyper.Site, len(sites))
	copy(out, sites)
	for i, s := range out {
		if !s.Unknown {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		info, err := db.GetSite(ctx, s.Origin)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			logger.Debug("unknown site not resolved", zap.String("origin", s.Origin), zap.Error(err))
			continue
		}
		out[i].Title = info.Title
		out[i].Description = info.Description
		out[i].Unknown = false
	}
	return out, nil
}

// IsSubscribed reports whether profileURL has a subscription to site.
func IsSubscribed(site hyper.Site, profileURL string) bool {
	for _, sub := range site.Subscriptions {
		if hyper.IsSameOrigin(sub.Site.URL, profileURL) {
			return true
		}
	}
	return false
}

// Ident names special sites: "profile" for the user's own, "private" for the
// private drive, "" otherwise.
func Ident(site hyper.Site, profileURL string) string {
	switch {
	case hyper.IsSameOrigin(site.Origin, profileURL):
		return "profile"
	case hyper.IsSameOrigin(site.Origin, hyper.PrivateURL):
		return "private"
	}
	return ""
}

var ErrWritable = errors.New("cannot subscribe to a writable site")

// ToggleSubscribe subscribes profile to site or removes the subscription. The
// returned site already reflects the change, even when the store call fails.
func ToggleSubscribe(ctx context.Context, api hyper.Subscriptions, site hyper.Site, profile Profile) (hyper.Site, error) {
	if site.Writable {
		return site, ErrWritable
	}
	if IsSubscribed(site, profile.URL) {
		var kept []hyper.Record
		for _, sub := range site.Subscriptions {
			if !hyper.IsSameOrigin(sub.Site.URL, profile.URL) {
				kept = append(kept, sub)
			}
		}
		site.Subscriptions = kept
		if err := api.Remove(ctx, site.URL, profile.URL); err != nil {
			return site, fmt.Errorf("unsubscribing from %s: %w", site.Origin, err)
		}
		return site, nil
	}

	subs := make([]hyper.Record, len(site.Subscriptions), len(site.Subscriptions)+1)
	copy(subs, site.Subscriptions)
	site.Subscriptions = append(subs, hyper.Record{
		Index: hyper.SubscriptionsIndex,
		Site:  hyper.SiteRef{URL: profile.URL, Title: profile.Title},
		Href:  site.Origin,
		Title: site.Title,
	})
	err := api.Add(ctx, hyper.Subscription{
		Href:  site.Origin,
		Title: site.Title,
		Site:  profile.URL,
	})
	if err != nil {
		return site, fmt.Errorf("subscribing to %s: %w", site.Origin, err)
	}
	return site, nil
}

// MenuItem is an entry of a writable site's context menu.
type MenuItem struct {
	Label     string
	Disabled  bool
	Separator bool
}

// Menu lists the actions offered for a writable site. Removing the profile or
// the private drive is not allowed.
func Menu(site hyper.Site, profileURL string) []MenuItem {
	remove := "Stop hosting"
	if site.Writable {
		remove = "Remove from My Library"
	}
	return []MenuItem{
		{Label: "Open in a New Tab"},
		{Label: "Copy Site Link"},
		{Separator: true},
		{Label: "Explore Files"},
		{Label: "Fork this Site"},
		{Separator: true},
		{Label: "Edit Properties"},
		{Label: remove, Disabled: Ident(site, profileURL) != ""},
	}
}

// ExplorerURL is where a site's files can be browsed.
func ExplorerURL(site hyper.Site) string {
	return "beaker://explorer/" + strings.TrimPrefix(site.URL, "hyper://")
}
