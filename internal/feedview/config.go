// Package feedview queries drive files of one content type across a set of
// sources and renders them as a feed.
package feedview

import (
	"time"

	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

// Config is what a feed shows. An empty Sources list means every drive in
// the index. Limit 0 is unlimited.
type Config struct {
	ContentType classify.Type
	Sources     []string
	Filter      string
	Sort        hyper.Sort
	Limit       int
	Offset      int
}

// Equal compares sources as a set, ignoring order and duplicates.
func (c Config) Equal(o Config) bool {
	return c.ContentType == o.ContentType &&
		c.Filter == o.Filter &&
		c.Sort == o.Sort &&
		c.Limit == o.Limit &&
		c.Offset == o.Offset &&
		sameSet(c.Sources, o.Sources)
}

func sameSet(a, b []string) bool {
	sa := make(map[string]struct{}, len(a))
	for _, s := range a {
		sa[s] = struct{}{}
	}
	sb := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, ok := sa[s]; !ok {
			return false
		}
		sb[s] = struct{}{}
	}
	return len(sa) == len(sb)
}

type Author struct {
	URL   string
	Title string
}

// Result is one feed entry. Title, Description and Excerpt are HTML: either
// escaped text, possibly with a <strong> highlight, or sanitized markdown.
type Result struct {
	URL             string
	Href            string
	Title           string
	Description     string
	Excerpt         string
	HrefDescription string
	Ctime           time.Time
	Author          Author
}

// Type is the content type of the file behind r.
func (r Result) Type() classify.Type {
	return classify.Classify(r.URL)
}

// PlainTitle is the title as text, or a generic title when there is none.
func (r Result) PlainTitle() string {
	if r.Title == "" {
		return GenericTitle(r)
	}
	return stripTags(r.Title)
}
