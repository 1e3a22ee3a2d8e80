package sites

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

//go:embed templates/sites.html
var templateFS embed.FS

var tmpl = template.Must(template.ParseFS(templateFS, "templates/sites.html"))

const (
	descriptionLen = 200
	tooltipLen     = 100
)

// View is everything needed to render a sites list.
type View struct {
	Sites      []hyper.Site
	Listing    Listing
	SingleRow  bool
	ProfileURL string
}

type page struct {
	Header    string
	SingleRow bool
	ShowMore  bool
	Cards     []card
}

type card struct {
	Origin           string
	Href             template.URL
	Thumb            template.URL
	Title            string
	Description      string
	Writable         bool
	Subscribed       bool
	Menu             []MenuItem
	ShowSubscribers  bool
	Subscribers      int
	SubscribersLabel string
	Tooltip          string
}

// Header is the heading shown above a listing, or "" for none.
func Header(l Listing) string {
	switch l {
	case ListingMine:
		return "My Sites"
	case ListingSubscribed:
		return "Subscribed Sites"
	case ListingSuggested:
		return "Suggested Sites"
	}
	return ""
}

// Render writes the list as an HTML fragment. Nothing is written when there
// are no sites.
func Render(w io.Writer, v View) error {
	if len(v.Sites) == 0 {
		return nil
	}
	p := page{
		Header:    Header(v.Listing),
		SingleRow: v.SingleRow,
		ShowMore:  v.SingleRow && len(v.Sites) >= singleRowLimit,
	}
	for _, s := range v.Sites {
		p.Cards = append(p.Cards, newCard(s, v.ProfileURL))
	}
	if err := tmpl.ExecuteTemplate(w, "sites", p); err != nil {
		return fmt.Errorf("rendering sites: %w", err)
	}
	return nil
}

func newCard(s hyper.Site, profileURL string) card {
	n := s.SubscriberCount()
	c := card{
		Origin:           s.Origin,
		Href:             template.URL(s.Origin),
		Thumb:            template.URL("asset:thumb:" + s.Origin),
		Title:            s.Title,
		Description:      hyper.Shorten(s.Description, descriptionLen),
		Writable:         s.Writable,
		Subscribed:       IsSubscribed(s, profileURL),
		ShowSubscribers:  !hyper.IsSameOrigin(s.Origin, hyper.PrivateURL) && (!s.Writable || n > 0),
		Subscribers:      n,
		SubscribersLabel: hyper.Pluralize(n, "subscriber"),
		Tooltip:          SubscriberTitles(s),
	}
	if s.Writable {
		c.Menu = Menu(s, profileURL)
	}
	return c
}

// SubscriberTitles is the short comma separated list of who subscribes to s.
func SubscriberTitles(s hyper.Site) string {
	if len(s.Subscriptions) == 0 {
		return ""
	}
	titles := make([]string, len(s.Subscriptions))
	for i, sub := range s.Subscriptions {
		titles[i] = sub.Site.Title
		if titles[i] == "" {
			titles[i] = "Untitled"
		}
	}
	return hyper.Shorten(strings.Join(titles, ", "), tooltipLen)
}
