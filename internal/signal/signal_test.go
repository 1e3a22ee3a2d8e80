package signal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

const (
	topic = "hyper://alice/blog/hello.md"
	alice = "hyper://alice/"
	bob   = "hyper://bob/"
	carol = "hyper://carol/"
)

type fakeAPI struct {
	mu        sync.Mutex
	files     []hyper.Candidate
	records   []hyper.Record
	fail      error
	queries   int
	lastQuery hyper.FileQuery
}

func (f *fakeAPI) Query(ctx context.Context, q hyper.FileQuery) ([]hyper.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	f.lastQuery = q
	if f.fail != nil {
		return nil, f.fail
	}
	var out []hyper.Candidate
	for _, c := range f.files {
		if len(q.Drives) == 0 || contains(q.Drives, c.Drive) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeAPI) ListRecords(ctx context.Context, filter hyper.RecordFilter, limit int) ([]hyper.Record, error) {
	var out []hyper.Record
	for _, r := range f.records {
		if r.Index == filter.Index && r.Href == filter.Href {
			out = append(out, r)
		}
	}
	return out, nil
}

func contains(xs []string, x string) bool {
	for _, s := range xs {
		if s == x {
			return true
		}
	}
	return false
}

func comment(drive, href string) hyper.Candidate {
	return hyper.Candidate{Drive: drive, Path: "/comments/x.md", Metadata: map[string]string{"href": href}}
}

func annotation(site, title, value string) hyper.Record {
	return hyper.Record{
		Index: hyper.AnnotationsIndex,
		Site:  hyper.SiteRef{URL: site, Title: title},
		Href:  topic,
		Value: value,
	}
}

func newFake() *fakeAPI {
	return &fakeAPI{
		files: []hyper.Candidate{
			comment(bob, topic),
			comment(carol, topic),
			comment(carol, "hyper://alice/other.md"),
		},
		records: []hyper.Record{
			annotation(bob, "Bob", "+1"),
			annotation(carol, "Carol", "★"),
			annotation(carol, "", "+1"),
			annotation(alice, "Alice", "★"),
			annotation(bob, "Bob", "heart"),
			annotation(bob, "Bob", ""),
		},
	}
}

func TestLoad(t *testing.T) {
	s, err := Load(context.Background(), newFake(), topic, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Comments != 2 {
		t.Errorf("expected 2 comments, got %d", s.Comments)
	}
	want := []Tally{
		{Value: "+1", Count: 2, Authors: []hyper.SiteRef{{URL: bob, Title: "Bob"}, {URL: carol}}},
		{Value: "★", Count: 2, Authors: []hyper.SiteRef{{URL: carol, Title: "Carol"}, {URL: alice, Title: "Alice"}}},
		{Value: "heart", Count: 1, Authors: []hyper.SiteRef{{URL: bob, Title: "Bob"}}},
	}
	if diff := cmp.Diff(want, s.Annotations); diff != "" {
		t.Errorf("tally mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRestrictsToAuthors(t *testing.T) {
	api := newFake()
	s, err := Load(context.Background(), api, topic, []string{bob})
	if err != nil {
		t.Fatal(err)
	}
	if s.Comments != 1 {
		t.Errorf("expected 1 comment from bob, got %d", s.Comments)
	}
	if len(s.Annotations) != 2 {
		t.Errorf("expected bob's 2 annotation values, got %+v", s.Annotations)
	}
	if diff := cmp.Diff([]string{bob}, api.lastQuery.Drives); diff != "" {
		t.Errorf("drives mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadError(t *testing.T) {
	api := newFake()
	api.fail = errors.New("disk on fire")
	if _, err := Load(context.Background(), api, topic, nil); err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestMemo(t *testing.T) {
	api := newFake()
	m := NewMemo(api)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.Get(ctx, topic, []string{carol, bob}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.Get(ctx, topic, []string{bob, carol}); err != nil {
		t.Fatal(err)
	}
	if api.queries != 1 {
		t.Errorf("expected a single load, got %d", api.queries)
	}

	m.Invalidate(topic)
	if _, err := m.Get(ctx, topic, []string{bob, carol}); err != nil {
		t.Fatal(err)
	}
	if api.queries != 2 {
		t.Errorf("expected reload after invalidate, got %d", api.queries)
	}
}

func TestMemoDoesNotCacheErrors(t *testing.T) {
	api := newFake()
	api.fail = errors.New("offline")
	m := NewMemo(api)
	if _, err := m.Get(context.Background(), topic, nil); err == nil {
		t.Fatal("expected error")
	}
	api.fail = nil
	s, err := m.Get(context.Background(), topic, nil)
	if err != nil || s.Comments != 2 {
		t.Errorf("expected retry to succeed, got %+v, %v", s, err)
	}
}

func TestSummary(t *testing.T) {
	s := Signals{Comments: 1, Annotations: []Tally{{Value: "+1", Count: 3}}}
	if got := s.Summary(); got != "1 comment · +1 ×3" {
		t.Errorf("got %q", got)
	}
}

func TestRender(t *testing.T) {
	s, _ := Load(context.Background(), newFake(), topic, nil)

	var buf bytes.Buffer
	if err := Render(&buf, View{UserURL: alice, Authors: []string{bob}, Signals: s}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"fa-comment", "2\n", `data-tooltip="Bob, Untitled"`, "<small>2</small>", "heart"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in\n%s", want, out)
		}
	}

	for _, v := range []View{
		{Authors: []string{bob}, Signals: s},
		{UserURL: alice, Signals: s},
		{UserURL: alice, Authors: []string{bob}},
	} {
		buf.Reset()
		if err := Render(&buf, v); err != nil {
			t.Fatal(err)
		}
		if buf.Len() != 0 {
			t.Errorf("expected empty output for %+v", v)
		}
	}
}
