// Package feed mirrors RSS and Atom sources into the index. Each source
// becomes a read-only drive whose items are blog posts.
package feed

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/matheuskafuri/hyperdesk/internal/config"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/index"
)

// Mirror is one fetched source in the shape the index stores it.
type Mirror struct {
	Site  hyper.Site
	Files []index.File
}

type Fetcher interface {
	Fetch(ctx context.Context, source config.Source) (Mirror, error)
}

// Store is the part of the index a sync writes to.
type Store interface {
	UpsertSite(site hyper.Site) error
	PutFiles(files []index.File) error
}

type RSSFetcher struct {
	parser *gofeed.Parser
	// MaxAge drops items published longer ago. Zero keeps everything.
	MaxAge time.Duration
	now    func() time.Time
}

// fetchTimeout bounds a single feed download.
const fetchTimeout = 30 * time.Second

// NewRSSFetcher returns a fetcher that is safe for concurrent use. The parser
// client is set up front; gofeed would otherwise create it lazily on first use.
func NewRSSFetcher(maxAge time.Duration) *RSSFetcher {
	p := gofeed.NewParser()
	p.UserAgent = "hyperdesk"
	p.Client = &http.Client{Timeout: fetchTimeout}
	return &RSSFetcher{parser: p, MaxAge: maxAge, now: time.Now}
}

// DriveURL is the drive a source is mirrored to. It is stable for a feed URL.
func DriveURL(feedURL string) string {
	return fmt.Sprintf("hyper://%x/", sha256.Sum256([]byte(feedURL)))
}

func (f *RSSFetcher) Fetch(ctx context.Context, source config.Source) (Mirror, error) {
	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return Mirror{}, fmt.Errorf("fetching %s: %w", source.Name, err)
	}

	drive := DriveURL(source.URL)
	m := Mirror{Site: hyper.Site{
		URL:         drive,
		Title:       source.Name,
		Description: truncate(stripHTML(feed.Description), 300),
	}}

	now := f.now()
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		pub := now
		if item.PublishedParsed != nil {
			pub = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			pub = *item.UpdatedParsed
		}
		if f.MaxAge > 0 && pub.Before(now.Add(-f.MaxAge)) {
			continue
		}

		mtime := pub
		if item.UpdatedParsed != nil && item.UpdatedParsed.After(pub) {
			mtime = *item.UpdatedParsed
		}

		desc := item.Description
		if desc == "" {
			desc = item.Content
		}
		body := item.Content
		if body == "" {
			body = item.Description
		}

		m.Files = append(m.Files, index.File{
			Drive: drive,
			Path:  "/blog/" + articleID(item.Link) + ".md",
			Ctime: pub,
			Mtime: mtime,
			Metadata: map[string]string{
				"title":       strings.TrimSpace(item.Title),
				"description": truncate(stripHTML(desc), 300),
				"link":        item.Link,
			},
			Content: "# " + strings.TrimSpace(item.Title) + "\n\n" + stripHTML(body) + "\n",
		})
	}
	return m, nil
}

func articleID(link string) string {
	h := sha256.Sum256([]byte(link))
	return fmt.Sprintf("%x", h[:16])
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

type SyncResult struct {
	Sites  int
	Files  int
	Errors []error
}

// Sync fetches every source concurrently and stores what arrived. A failing
// source is reported in the result and does not stop the others.
func Sync(ctx context.Context, store Store, fetcher Fetcher, sources []config.Source) SyncResult {
	var (
		mu     sync.Mutex
		result SyncResult
		wg     sync.WaitGroup
	)

	for _, src := range sources {
		wg.Add(1)
		go func(s config.Source) {
			defer wg.Done()
			m, err := fetcher.Fetch(ctx, s)
			if err == nil {
				err = store.UpsertSite(m.Site)
				if err == nil {
					err = store.PutFiles(m.Files)
				}
				if err != nil {
					err = fmt.Errorf("storing %s: %w", s.Name, err)
				}
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, err)
				return
			}
			result.Sites++
			result.Files += len(m.Files)
		}(src)
	}

	wg.Wait()
	return result
}
