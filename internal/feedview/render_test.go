package feedview

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

func render(t *testing.T, v View) string {
	t.Helper()
	if v.Now.IsZero() {
		v.Now = now
	}
	var buf bytes.Buffer
	if err := Render(&buf, v); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func assertContains(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

var (
	bookmark = Result{
		URL:   aliceURL + "bookmarks/a.goto",
		Href:  "https://example.com/docs/intro",
		Title: "Example &amp; co",
		Ctime: now.Add(-time.Hour),
		Author: Author{
			URL:   aliceURL,
			Title: "Alice",
		},
	}
	comment = Result{
		URL:             bobURL + "comments/c.md",
		Href:            aliceURL + "blog/hello.md",
		HrefDescription: "Alice › blog › hello.md",
		Excerpt:         "<p>nice post</p>",
		Ctime:           now.Add(-3 * time.Hour),
		Author:          Author{URL: hyper.SystemURL, Title: "System"},
	}
	post = Result{
		URL:     aliceURL + "blog/old.md",
		Href:    aliceURL + "blog/old.md",
		Excerpt: "an old post",
		Ctime:   now.Add(-48 * time.Hour),
		Author:  Author{URL: aliceURL, Title: "Alice"},
	}
)

func TestRenderRow(t *testing.T) {
	out := render(t, View{Results: []Result{bookmark, post}, Title: "Bookmarks", ContentType: classify.Bookmarks})
	assertContains(t, out,
		`<h2 class="results-header">`,
		"<span>Bookmarks</span>",
		`class="results rows"`,
		"example.com",
		`<span class="fas fa-fw fa-angle-right"></span> docs`,
		"Example &amp; co",
		"Bookmarked by",
		"Today",
		"Blog Post",
		"an old post",
		"Mar 16, 2026",
	)
}

func TestRenderCardAndRelativeDate(t *testing.T) {
	out := render(t, View{Results: []Result{comment}, Mode: ModeCard})
	assertContains(t, out,
		`class="results cards"`,
		"I privately",
		"fa-lock",
		"Alice › blog › hello.md",
		"3 hours ago",
		"<p>nice post</p>",
	)
}

func TestRenderActionFallsBackToCards(t *testing.T) {
	out := render(t, View{Results: []Result{bookmark, comment}, Mode: ModeAction, ShowDateTitles: true})
	assertContains(t, out,
		`class="results actions"`,
		"bookmarked",
		`class="result card"`,
	)
	if n := strings.Count(out, "<span>Today</span>"); n != 1 {
		t.Errorf("expected one date title for same-day results, got %d", n)
	}
}

func TestRenderSimpleModes(t *testing.T) {
	out := render(t, View{Results: []Result{bookmark}, Mode: ModeSimpleList})
	assertContains(t, out, `class="result simple-list-item"`, `title="Example &amp; co"`, "asset:favicon:")

	img := Result{URL: aliceURL + "images/cat.png", Href: aliceURL + "images/cat.png", Title: "A cat", Ctime: now}
	out = render(t, View{Results: []Result{img}, Mode: ModeSimpleGrid})
	assertContains(t, out, `class="result simple-grid-item"`, `<img src="`+aliceURL+`images/cat.png">`)

	out = render(t, View{Results: []Result{bookmark, post}, Mode: ModeCompactRow})
	assertContains(t, out, `class="results compact-rows"`, "example.com/docs/intro", `<span class="count">0</span>`)
}

func TestRenderEmptyStates(t *testing.T) {
	out := render(t, View{ContentType: classify.BlogPosts, Title: "Blog Posts", ShowViewMore: true})
	assertContains(t, out, `Click "New Blog Post" to get started`, `data-action="view-more"`, `data-content-type="blogposts"`)

	out = render(t, View{ContentType: classify.BlogPosts, Filter: "zzz"})
	assertContains(t, out, `No matches found for "zzz".`)

	if out := render(t, View{HideEmpty: true}); out != "" {
		t.Errorf("expected hide-empty to render nothing, got %q", out)
	}
	if out := render(t, View{Loading: true, Results: []Result{post}}); out != "" {
		t.Errorf("expected nothing while loading, got %q", out)
	}
}

func TestGenericTitles(t *testing.T) {
	micro := Result{URL: aliceURL + "microblog/1.md", Ctime: now}
	if got := GenericTitle(micro); got != "Post on Mar 18, 2026" {
		t.Errorf("got %q", got)
	}
	if got := GenericTitle(comment); !strings.HasPrefix(got, "Comment on aaaaaa..aa/blog/hello.md") {
		t.Errorf("got %q", got)
	}
	if got := GenericActionTitle(comment, now); got != "aaaaaa..aa › blog › hello.md" {
		t.Errorf("got %q", got)
	}
	if got := GenericActionTitle(post, now); got != "Mar 16, 2026" {
		t.Errorf("got %q", got)
	}
}

func TestPlainTitle(t *testing.T) {
	if got := bookmark.PlainTitle(); got != "Example & co" {
		t.Errorf("got %q", got)
	}
	hl := Result{URL: aliceURL + "blog/x.md", Title: "say <strong>hello</strong> &lt;3"}
	if got := hl.PlainTitle(); got != "say hello <3" {
		t.Errorf("got %q", got)
	}
	if got := post.PlainTitle(); got != "Blog Post" {
		t.Errorf("got %q", got)
	}
}

func TestParseRenderMode(t *testing.T) {
	if m, err := ParseRenderMode(""); err != nil || m != ModeRow {
		t.Errorf("expected default row mode, got %q, %v", m, err)
	}
	if _, err := ParseRenderMode("table"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestWidgetRequeriesOnFilterChange(t *testing.T) {
	q := NewQuerier(testIndex(t), nil, nil)
	w := NewWidget(q, nil, nil)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	w.SetConfig(Config{ContentType: classify.BlogPosts})
	if err := w.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if res, _ := w.Results(); len(res) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(res))
	}

	w.SetFilter("peer")
	if err := w.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	v := w.View(View{Mode: ModeRow})
	if v.Loading || len(v.Results) != 1 || v.Filter != "peer" {
		t.Errorf("unexpected view %+v", v)
	}
}
