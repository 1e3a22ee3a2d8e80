package feedview

import (
	"embed"
	"fmt"
	"html"
	"html/template"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

//go:embed templates/feed.html
var templateFS embed.FS

var tmpl = template.Must(template.ParseFS(templateFS, "templates/feed.html"))

type RenderMode string

const (
	ModeRow        RenderMode = "row"
	ModeCompactRow RenderMode = "compact-row"
	ModeSimpleList RenderMode = "simple-list"
	ModeSimpleGrid RenderMode = "simple-grid"
	ModeAction     RenderMode = "action"
	ModeCard       RenderMode = "card"
)

func AllRenderModes() []RenderMode {
	return []RenderMode{ModeRow, ModeCompactRow, ModeSimpleList, ModeSimpleGrid, ModeAction, ModeCard}
}

func ParseRenderMode(s string) (RenderMode, error) {
	if s == "" {
		return ModeRow, nil
	}
	for _, m := range AllRenderModes() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown render mode %q", s)
}

// View is everything needed to render a feed. Nothing is rendered while
// Loading is set.
type View struct {
	Results        []Result
	Loading        bool
	ContentType    classify.Type
	Title          string
	Mode           RenderMode
	ShowDateTitles bool
	Filter         string
	HideEmpty      bool
	ShowViewMore   bool
	Now            time.Time
}

type thumb struct {
	Image template.URL
	Icon  string
}

type item struct {
	Author       Author
	URL          template.URL
	Href         template.URL
	AuthorURL    template.URL
	AuthorThumb  template.URL
	Favicon      template.URL
	Title        template.HTML
	PlainTitle   string
	Excerpt      template.HTML
	Summary      template.HTML
	GenericTitle string
	ActionTitle  template.HTML
	Action       string
	Context      string
	NiceHref     string
	NiceDate     string
	RelativeDate string
	DateTitle    string
	Host         string
	Segments     []string
	Thumb        thumb
	FileThumb    thumb
	IsBookmark   bool
	IsSystem     bool
	HasContext   bool
	AsCard       bool
}

type page struct {
	Title        string
	ShowViewMore bool
	ContentType  classify.Type
	Mode         RenderMode
	Empty        bool
	Filter       string
	CreateLabel  string
	Items        []item
}

const (
	actionTitleLen = 50
	contextLen     = 50
)

// Render writes the feed as an HTML fragment.
func Render(w io.Writer, v View) error {
	if v.Loading {
		return nil
	}
	if len(v.Results) == 0 && v.HideEmpty {
		return nil
	}
	if v.Now.IsZero() {
		v.Now = time.Now()
	}
	if v.Mode == "" {
		v.Mode = ModeRow
	}

	p := page{
		Title:        v.Title,
		ShowViewMore: v.ShowViewMore,
		ContentType:  v.ContentType,
		Mode:         v.Mode,
		Empty:        len(v.Results) == 0,
		Filter:       v.Filter,
		CreateLabel:  classify.CreateLabel(v.ContentType),
	}
	lastDate := ""
	for _, r := range v.Results {
		it := newItem(r, v.Now)
		if v.ShowDateTitles {
			if d := DateHeader(r.Ctime, v.Now); d != lastDate {
				it.DateTitle = d
				lastDate = d
			}
		}
		p.Items = append(p.Items, it)
	}
	if err := tmpl.ExecuteTemplate(w, "feed", p); err != nil {
		return fmt.Errorf("rendering feed: %w", err)
	}
	return nil
}

func newItem(r Result, now time.Time) item {
	t := r.Type()
	it := item{
		Author:       r.Author,
		URL:          template.URL(r.URL),
		Href:         template.URL(r.Href),
		AuthorURL:    template.URL(r.Author.URL),
		AuthorThumb:  template.URL(r.Author.URL + "thumb"),
		Favicon:      template.URL("asset:favicon:" + r.Href),
		Title:        template.HTML(r.Title),
		PlainTitle:   stripTags(r.Title),
		Excerpt:      template.HTML(r.Excerpt),
		GenericTitle: GenericTitle(r),
		Action:       classify.Action(t),
		Context:      hyper.Shorten(r.HrefDescription, contextLen),
		NiceHref:     hyper.ToNiceURL(r.Href),
		NiceDate:     NiceDate(r.Ctime, now, false),
		RelativeDate: RelativeDate(r.Ctime, now),
		Thumb:        thumbFor(r.Href),
		FileThumb:    thumbFor(r.URL),
		IsBookmark:   t == classify.Bookmarks,
		IsSystem:     r.Author.URL == hyper.SystemURL,
		HasContext:   r.Href != r.URL,
		AsCard:       t == classify.Comments || t == classify.MicroblogPosts,
	}
	if r.Excerpt != "" {
		it.Summary = template.HTML(r.Excerpt)
	} else {
		it.Summary = template.HTML(r.Description)
	}
	if r.Title != "" {
		it.ActionTitle = template.HTML(hyper.MakeSafe(hyper.Shorten(it.PlainTitle, actionTitleLen)))
	} else {
		it.ActionTitle = template.HTML(hyper.MakeSafe(GenericActionTitle(r, now)))
	}
	if u, err := url.Parse(r.Href); err == nil && u.Host != "" {
		it.Host = hyper.ToNiceDomain(u.Hostname())
		it.Segments = hyper.PathSegments(r.Href)
	}
	return it
}

func thumbFor(u string) thumb {
	if classify.IsImage(u) {
		return thumb{Image: template.URL(u)}
	}
	return thumb{Icon: classify.Icon(classify.Classify(u))}
}

// GenericTitle names a result that has no title of its own.
func GenericTitle(r Result) string {
	switch r.Type() {
	case classify.Bookmarks:
		return "Bookmark"
	case classify.BlogPosts:
		return "Blog Post"
	case classify.MicroblogPosts:
		return "Post on " + r.Ctime.Format(shortDate)
	case classify.Pages:
		return "Page"
	case classify.Comments:
		return "Comment on " + hyper.ToNiceURL(r.Href)
	}
	return "File"
}

// GenericActionTitle is used in activity entries for results without a title.
func GenericActionTitle(r Result, now time.Time) string {
	if r.Type() == classify.Comments {
		return hyper.Shorten(FancyURL(r.Href), actionTitleLen)
	}
	return NiceDate(r.Ctime, now, false)
}

func stripTags(s string) string {
	s = strings.NewReplacer("<strong>", "", "</strong>", "").Replace(s)
	return html.UnescapeString(s)
}
