package sites

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	profileURL = "hyper://me/"
	aliceURL   = "hyper://alice/"
	bobURL     = "hyper://bob/"
	carolURL   = "hyper://carol/"
)

var errNotFound = errors.New("not found")

type fakeAPI struct {
	mu      sync.Mutex
	sites   []hyper.Site
	records []hyper.Record
	known   map[string]hyper.Site
	added   []hyper.Subscription
	removed []string
	filters []hyper.SiteFilter
	limits  []int
}

func (f *fakeAPI) ListSites(ctx context.Context, filter hyper.SiteFilter, limit int) ([]hyper.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	f.limits = append(f.limits, limit)
	var out []hyper.Site
	for _, s := range f.sites {
		if filter.Writable != nil && s.Writable != *filter.Writable {
			continue
		}
		if filter.Search != "" && !strings.Contains(s.Title, filter.Search) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeAPI) ListRecords(ctx context.Context, filter hyper.RecordFilter, limit int) ([]hyper.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hyper.Record(nil), f.records...), nil
}

func (f *fakeAPI) GetSite(ctx context.Context, origin string) (hyper.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.known[origin]; ok {
		return s, nil
	}
	return hyper.Site{}, errNotFound
}

func (f *fakeAPI) Query(ctx context.Context, q hyper.FileQuery) ([]hyper.Candidate, error) {
	return nil, nil
}

func (f *fakeAPI) ReadFile(ctx context.Context, url string) (string, error) { return "", errNotFound }

func (f *fakeAPI) GetInfo(ctx context.Context, url string) (hyper.DriveInfo, error) {
	return hyper.DriveInfo{}, errNotFound
}

func (f *fakeAPI) Add(ctx context.Context, sub hyper.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, sub)
	return nil
}

func (f *fakeAPI) Remove(ctx context.Context, href, site string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, href)
	return nil
}

func site(url, title string) hyper.Site {
	return hyper.Site{URL: url, Origin: strings.TrimSuffix(url, "/"), Title: title}
}

func sub(from, fromTitle, href string) hyper.Record {
	return hyper.Record{
		Index: hyper.SubscriptionsIndex,
		Site:  hyper.SiteRef{URL: from, Title: fromTitle},
		Href:  href,
	}
}

func newFake() *fakeAPI {
	return &fakeAPI{
		sites: []hyper.Site{
			site(carolURL, "carol"),
			site(aliceURL, "Alice"),
			site(bobURL, "Bob"),
		},
		records: []hyper.Record{
			sub(profileURL, "Me", aliceURL),
			sub(bobURL, "Bob", aliceURL),
			sub(aliceURL, "Alice", bobURL+"some/page"),
			sub(aliceURL, "Alice", "hyper://dave/"),
			sub(bobURL, "Bob", "hyper://dave/"),
			sub(aliceURL, "Alice", "hyper://erin/"),
			sub(aliceURL, "Alice", profileURL),
			sub(aliceURL, "Alice", "::bad"),
		},
		known: map[string]hyper.Site{
			"hyper://dave": site("hyper://dave/", "Dave's Drive"),
		},
	}
}

func titles(sites []hyper.Site) []string {
	var out []string
	for _, s := range sites {
		out = append(out, s.Title)
	}
	return out
}

func TestLoadAllSortsByTitle(t *testing.T) {
	api := newFake()
	got, err := Load(context.Background(), api, Profile{URL: profileURL}, Config{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]string{"Alice", "Bob", "carol"}, titles(got)); diff != "" {
		t.Errorf("titles mismatch (-want +got):\n%s", diff)
	}
	if got[0].SubscriberCount() != 2 {
		t.Errorf("expected alice to have 2 subscribers, got %d", got[0].SubscriberCount())
	}
	if got[1].SubscriberCount() != 1 {
		t.Errorf("expected a subscription to a page to count for bob, got %d", got[1].SubscriberCount())
	}
}

func TestLoadWritableFilter(t *testing.T) {
	api := newFake()
	ctx := context.Background()
	if _, err := Load(ctx, api, Profile{URL: profileURL}, Config{Listing: ListingMine, SingleRow: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(ctx, api, Profile{URL: profileURL}, Config{Listing: ListingSubscribed, Filter: "x"}); err != nil {
		t.Fatal(err)
	}
	if !*api.filters[0].Writable || *api.filters[1].Writable {
		t.Errorf("expected writable only for mine, got %v then %v", *api.filters[0].Writable, *api.filters[1].Writable)
	}
	if api.limits[0] != 3 || api.limits[1] != 0 {
		t.Errorf("unexpected limits %v", api.limits)
	}
	if api.filters[1].Search != "x" {
		t.Errorf("expected search to be passed through, got %q", api.filters[1].Search)
	}
}

func TestLoadSubscribed(t *testing.T) {
	got, err := Load(context.Background(), newFake(), Profile{URL: profileURL}, Config{Listing: ListingSubscribed})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Alice"}, titles(got)); diff != "" {
		t.Errorf("subscribed mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadSuggestedIncludesUnknownSites(t *testing.T) {
	got, err := Load(context.Background(), newFake(), Profile{URL: profileURL}, Config{Listing: ListingSuggested})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Loading...", "Bob", "Loading...", "carol"}
	if diff := cmp.Diff(want, titles(got)); diff != "" {
		t.Errorf("suggested mismatch (-want +got):\n%s", diff)
	}
	if got[0].Origin != "hyper://dave" || !got[0].Unknown || got[0].SubscriberCount() != 2 {
		t.Errorf("unexpected placeholder %+v", got[0])
	}
	for _, s := range got {
		if s.Origin == "hyper://me" {
			t.Error("the profile must not be suggested")
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	api := newFake()
	in := []hyper.Site{
		{Origin: "hyper://dave", Title: "Loading...", Unknown: true},
		{Origin: "hyper://erin", Title: "Loading...", Unknown: true},
		site(bobURL, "Bob"),
	}
	out, err := ResolveUnknown(context.Background(), api, in, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Title != "Dave's Drive" || out[0].Unknown {
		t.Errorf("expected dave to be resolved, got %+v", out[0])
	}
	if out[1].Title != "Loading..." || !out[1].Unknown {
		t.Errorf("expected erin to stay unknown, got %+v", out[1])
	}
	if in[0].Title != "Loading..." {
		t.Error("input slice was modified")
	}
}

func TestIdent(t *testing.T) {
	tests := []struct {
		origin string
		want   string
	}{
		{"hyper://me", "profile"},
		{"hyper://private", "private"},
		{"hyper://alice", ""},
	}
	for _, tt := range tests {
		if got := Ident(hyper.Site{Origin: tt.origin}, profileURL); got != tt.want {
			t.Errorf("Ident(%s) = %q, want %q", tt.origin, got, tt.want)
		}
	}
}

func TestToggleSubscribe(t *testing.T) {
	api := newFake()
	ctx := context.Background()
	me := Profile{URL: profileURL, Title: "Me"}
	bob := site(bobURL, "Bob")

	bob, err := ToggleSubscribe(ctx, api, bob, me)
	if err != nil {
		t.Fatal(err)
	}
	if !IsSubscribed(bob, profileURL) {
		t.Error("expected optimistic subscription")
	}
	if len(api.added) != 1 || api.added[0].Href != "hyper://bob" || api.added[0].Site != profileURL {
		t.Errorf("unexpected add %+v", api.added)
	}

	bob, err = ToggleSubscribe(ctx, api, bob, me)
	if err != nil {
		t.Fatal(err)
	}
	if IsSubscribed(bob, profileURL) {
		t.Error("expected subscription to be removed")
	}
	if len(api.removed) != 1 || api.removed[0] != bobURL {
		t.Errorf("unexpected remove %v", api.removed)
	}

	mine := hyper.Site{Origin: "hyper://me", Writable: true}
	if _, err := ToggleSubscribe(ctx, api, mine, me); !errors.Is(err, ErrWritable) {
		t.Errorf("expected ErrWritable, got %v", err)
	}
}

func TestMenuDisablesRemovalOfProfile(t *testing.T) {
	items := Menu(hyper.Site{Origin: "hyper://me", Writable: true}, profileURL)
	last := items[len(items)-1]
	if last.Label != "Remove from My Library" || !last.Disabled {
		t.Errorf("unexpected last item %+v", last)
	}
	items = Menu(hyper.Site{Origin: "hyper://alice"}, profileURL)
	last = items[len(items)-1]
	if last.Label != "Stop hosting" || last.Disabled {
		t.Errorf("unexpected last item %+v", last)
	}
}

func TestParseListing(t *testing.T) {
	for in, want := range map[string]Listing{"all": ListingAll, "": ListingAll, "Mine": ListingMine, "suggested": ListingSuggested} {
		got, err := ParseListing(in)
		if err != nil || got != want {
			t.Errorf("ParseListing(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseListing("everyone"); err == nil {
		t.Error("expected error for unknown listing")
	}
}

func TestRender(t *testing.T) {
	alice := site(aliceURL, "Alice")
	alice.Description = strings.Repeat("d", 250)
	alice.Subscriptions = []hyper.Record{sub(profileURL, "Me", aliceURL), sub(bobURL, "", aliceURL)}
	mine := site(profileURL, "Me")
	mine.Writable = true

	var buf bytes.Buffer
	err := Render(&buf, View{
		Sites:      []hyper.Site{alice, site(bobURL, "Bob <3"), mine},
		Listing:    ListingSubscribed,
		SingleRow:  true,
		ProfileURL: profileURL,
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<h2><span>Subscribed Sites</span></h2>",
		`class="sites single-row"`,
		`href="hyper://alice"`,
		"Subscribed",
		"<strong>2</strong>",
		"subscribers you know",
		`data-tooltip="Me, Untitled"`,
		"<strong>0</strong>",
		"Bob &lt;3",
		"Show more",
		"Remove from My Library",
		strings.Repeat("d", 197) + "...",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
	if strings.Contains(out, strings.Repeat("d", 198)) {
		t.Error("expected description to be shortened")
	}
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, View{Listing: ListingMine}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestWidgetResolvesPlaceholders(t *testing.T) {
	api := newFake()
	changed := make(chan struct{}, 64)
	w := NewWidget(api, Profile{URL: profileURL}, nil, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	w.SetConfig(Config{Listing: ListingSuggested})
	if err := w.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	for {
		got, ok := w.Sites()
		if ok && got[0].Title == "Dave's Drive" {
			break
		}
		select {
		case <-changed:
		case <-ctx.Done():
			t.Fatalf("placeholder never resolved: %v", titles(got))
		}
	}
}
