package feedview

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/index"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	aliceURL = "hyper://" + strings.Repeat("a", 64) + "/"
	bobURL   = "hyper://" + strings.Repeat("b", 64) + "/"
)

func testIndex(t *testing.T) *index.Index {
	t.Helper()
	x, err := index.Open(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("opening index: %v", err)
	}
	t.Cleanup(func() { x.Close() })

	for _, s := range []hyper.Site{
		{URL: aliceURL, Title: "Alice"},
		{URL: bobURL, Title: "Bob"},
	} {
		if err := x.UpsertSite(s); err != nil {
			t.Fatal(err)
		}
	}

	base := time.Date(2026, time.March, 18, 12, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(-time.Duration(h) * time.Hour) }
	files := []index.File{
		{Drive: aliceURL, Path: "/blog/hello.md", Ctime: at(1), Metadata: map[string]string{"title": "Hello World"}, Content: "# Hello\nThis is about **beaker** browsers"},
		{Drive: bobURL, Path: "/blog/p2p.md", Ctime: at(2), Content: "peer to peer"},
		{Drive: aliceURL, Path: "/bookmarks/a.goto", Ctime: at(3), Metadata: map[string]string{"href": "https://example.com/", "title": "Example", "description": "A <site>"}},
		{Drive: bobURL, Path: "/bookmarks/nohref.goto", Ctime: at(4)},
		{Drive: aliceURL, Path: "/microblog/1.md", Ctime: at(5), Content: "hi **there**"},
		{Drive: bobURL, Path: "/comments/c.md", Ctime: at(6), Metadata: map[string]string{"href": aliceURL + "blog/hello.md"}, Content: "nice post"},
		{Drive: bobURL, Path: "/comments/orphan.md", Ctime: at(7), Content: "lost"},
		{Drive: aliceURL, Path: "/images/cat.png", Ctime: at(8), Metadata: map[string]string{"title": "A cat"}},
		{Drive: aliceURL, Path: "/pages/about.md", Ctime: at(9), Content: "# About\nAbout alice"},
	}
	if err := x.PutFiles(files); err != nil {
		t.Fatal(err)
	}
	return x
}

func paths(results []Result) []string {
	var out []string
	for _, r := range results {
		out = append(out, r.URL[strings.Index(r.URL, "/")+2+64:])
	}
	return out
}

func TestQueryBookmarks(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	got, err := q.Query(context.Background(), Config{ContentType: classify.Bookmarks})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected bookmarks without href to be skipped, got %d", len(got))
	}
	r := got[0]
	if r.Href != "https://example.com/" || r.Title != "Example" || r.Description != "A &lt;site&gt;" {
		t.Errorf("unexpected bookmark %+v", r)
	}
	if r.Author.Title != "Alice" || r.Author.URL != aliceURL {
		t.Errorf("unexpected author %+v", r.Author)
	}

	got, _ = q.Query(context.Background(), Config{ContentType: classify.Bookmarks, Filter: "site"})
	if len(got) != 1 {
		t.Errorf("expected description match, got %d", len(got))
	}
	got, _ = q.Query(context.Background(), Config{ContentType: classify.Bookmarks, Filter: "nothing"})
	if len(got) != 0 {
		t.Errorf("expected no match, got %d", len(got))
	}
}

func TestQueryBlogPosts(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	got, err := q.Query(context.Background(), Config{ContentType: classify.BlogPosts})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/blog/hello.md", "/blog/p2p.md"}, paths(got)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if got[0].Excerpt != "This is about beaker browsers" {
		t.Errorf("unexpected excerpt %q", got[0].Excerpt)
	}
	if got[1].Title != "p2p.md" {
		t.Errorf("expected file name as title, got %q", got[1].Title)
	}

	got, err = q.Query(context.Background(), Config{ContentType: classify.BlogPosts, Filter: "BEAKER"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}
	if got[0].Excerpt != "This is about <strong>beaker</strong> browsers" {
		t.Errorf("unexpected highlight %q", got[0].Excerpt)
	}
	if got[0].Title != "Hello World" || got[0].Description != "" {
		t.Errorf("unexpected title/description %q / %q", got[0].Title, got[0].Description)
	}
}

func TestQueryFilterPagesAfterFiltering(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	ctx := context.Background()

	got, err := q.Query(ctx, Config{ContentType: classify.BlogPosts, Filter: "e", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/blog/p2p.md"}, paths(got)); diff != "" {
		t.Errorf("page mismatch (-want +got):\n%s", diff)
	}

	got, _ = q.Query(ctx, Config{ContentType: classify.BlogPosts, Limit: 1})
	if diff := cmp.Diff([]string{"/blog/hello.md"}, paths(got)); diff != "" {
		t.Errorf("unfiltered limit mismatch (-want +got):\n%s", diff)
	}

	got, _ = q.Query(ctx, Config{ContentType: classify.BlogPosts, Filter: "e", Offset: 5})
	if len(got) != 0 {
		t.Errorf("expected empty page, got %d", len(got))
	}
}

func TestQuerySources(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	got, err := q.Query(context.Background(), Config{ContentType: classify.BlogPosts, Sources: []string{bobURL}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/blog/p2p.md"}, paths(got)); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryMicroblog(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	got, err := q.Query(context.Background(), Config{ContentType: classify.MicroblogPosts})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !strings.Contains(got[0].Excerpt, "<strong>there</strong>") || !strings.HasPrefix(got[0].Excerpt, "<p>") {
		t.Errorf("expected rendered markdown, got %+v", got)
	}

	got, _ = q.Query(context.Background(), Config{ContentType: classify.MicroblogPosts, Filter: "there"})
	if len(got) != 1 || got[0].Excerpt != "hi <strong>there</strong>" {
		t.Errorf("expected highlighted plain text, got %+v", got)
	}
}

func TestQueryComments(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	got, err := q.Query(context.Background(), Config{ContentType: classify.Comments})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected comments without href to be skipped, got %d", len(got))
	}
	if got[0].HrefDescription != "Alice › blog › hello.md" {
		t.Errorf("unexpected href description %q", got[0].HrefDescription)
	}
	if got[0].Href != aliceURL+"blog/hello.md" {
		t.Errorf("unexpected href %q", got[0].Href)
	}
}

func TestQueryImages(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	got, err := q.Query(context.Background(), Config{ContentType: classify.Images, Filter: "cat"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "A cat" {
		t.Errorf("unexpected images %+v", got)
	}
}

func TestQueryAll(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	got, err := q.Query(context.Background(), Config{ContentType: classify.All})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"/blog/hello.md",
		"/blog/p2p.md",
		"/bookmarks/a.goto",
		"/microblog/1.md",
		"/comments/c.md",
		"/pages/about.md",
	}
	if diff := cmp.Diff(want, paths(got)); diff != "" {
		t.Errorf("all mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryAllPaging(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"limit", Config{Limit: 1}, []string{"/blog/hello.md"}},
		{"limit spans types", Config{Limit: 3}, []string{"/blog/hello.md", "/blog/p2p.md", "/bookmarks/a.goto"}},
		{"offset and limit", Config{Offset: 1, Limit: 2}, []string{"/blog/p2p.md", "/bookmarks/a.goto"}},
		{"offset only", Config{Offset: 4}, []string{"/comments/c.md", "/pages/about.md"}},
		{"offset past end", Config{Offset: 10, Limit: 2}, nil},
		{"filtered", Config{Filter: "a", Offset: 1, Limit: 1}, []string{"/bookmarks/a.goto"}},
	}

	q := NewQuerier(testIndex(t), nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.ContentType = classify.All
			got, err := q.Query(context.Background(), cfg)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, paths(got)); diff != "" {
				t.Errorf("page mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueryUnknownType(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	if _, err := q.Query(context.Background(), Config{ContentType: "videos"}); err == nil {
		t.Error("expected an error for an unknown content type")
	}
}

// cancelAfterQuery cancels the query context once candidates are returned.
type cancelAfterQuery struct {
	hyper.Drives
	cancel context.CancelFunc
}

func (c cancelAfterQuery) Query(ctx context.Context, q hyper.FileQuery) ([]hyper.Candidate, error) {
	res, err := c.Drives.Query(context.Background(), q)
	c.cancel()
	return res, err
}

func TestQueryAborted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewQuerier(cancelAfterQuery{Drives: testIndex(t), cancel: cancel}, nil, nil)

	_, err := q.Query(ctx, Config{ContentType: classify.BlogPosts})
	if !errors.Is(err, ErrAborted) {
		t.Errorf("expected ErrAborted, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected the context error to be wrapped, got %v", err)
	}
}

type countingDrives struct {
	hyper.Drives
	calls   atomic.Int32
	release chan struct{}
}

func (c *countingDrives) GetInfo(ctx context.Context, url string) (hyper.DriveInfo, error) {
	c.calls.Add(1)
	<-c.release
	return c.Drives.GetInfo(ctx, url)
}

func TestDriveTitleSharesLookups(t *testing.T) {
	drives := &countingDrives{Drives: testIndex(t), release: make(chan struct{})}
	q := NewQuerier(drives, nil, nil)

	var wg sync.WaitGroup
	titles := make([]string, 5)
	for i := range titles {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			titles[i] = q.DriveTitle(context.Background(), aliceURL)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(drives.release)
	wg.Wait()

	for _, title := range titles {
		if title != "Alice" {
			t.Errorf("unexpected title %q", title)
		}
	}
	q.DriveTitle(context.Background(), aliceURL)
	if n := drives.calls.Load(); n > 2 {
		t.Errorf("expected lookups to be shared and cached, got %d calls", n)
	}
}

func TestDriveTitleFailureIsNotCached(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	if got := q.DriveTitle(context.Background(), "hyper://missing/"); got != "" {
		t.Errorf("expected empty title, got %q", got)
	}
	q.mu.RLock()
	_, cached := q.titles["hyper://missing/"]
	q.mu.RUnlock()
	if cached {
		t.Error("failed lookup must not be cached")
	}
}

func TestFancyURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{aliceURL + "blog/x.md", "aaaaaa..aa › blog › x.md"},
		{"https://example.com/a/b", "example.com › a › b"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		if got := FancyURL(tt.in); got != tt.want {
			t.Errorf("FancyURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfigEqual(t *testing.T) {
	a := Config{ContentType: classify.BlogPosts, Sources: []string{"x", "y"}}
	b := Config{ContentType: classify.BlogPosts, Sources: []string{"y", "x", "x"}}
	if !a.Equal(b) {
		t.Error("expected sources to compare as a set")
	}
	if a.Sources[0] != "x" || b.Sources[0] != "y" {
		t.Error("Equal must not reorder sources")
	}
	c := b
	c.Filter = "q"
	if a.Equal(c) {
		t.Error("expected filter change to be detected")
	}
	if a.Equal(Config{ContentType: classify.BlogPosts, Sources: []string{"x"}}) {
		t.Error("expected source removal to be detected")
	}
}
