// Package signal counts the social signals attached to a URL: comments that
// reply to it and annotations people have left on it.
package signal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

// API is the part of the data API signals are read from.
type API interface {
	Query(ctx context.Context, q hyper.FileQuery) ([]hyper.Candidate, error)
	ListRecords(ctx context.Context, filter hyper.RecordFilter, limit int) ([]hyper.Record, error)
}

// Tally is how often one annotation value was left on a topic.
type Tally struct {
	Value   string
	Count   int
	Authors []hyper.SiteRef
}

type Signals struct {
	Topic       string
	Comments    int
	Annotations []Tally
}

// Load counts comments replying to topic and tallies its annotations. When
// authors is non-empty only their drives are counted.
func Load(ctx context.Context, api API, topic string, authors []string) (Signals, error) {
	s := Signals{Topic: topic}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := countComments(gctx, api, topic, authors)
		if err != nil {
			return fmt.Errorf("counting comments on %s: %w", topic, err)
		}
		s.Comments = n
		return nil
	})
	g.Go(func() error {
		recs, err := api.ListRecords(gctx, hyper.RecordFilter{Index: hyper.AnnotationsIndex, Href: topic}, 0)
		if err != nil {
			return fmt.Errorf("listing annotations on %s: %w", topic, err)
		}
		s.Annotations = tabulate(recs, authors)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Signals{}, err
	}
	return s, nil
}

func countComments(ctx context.Context, api API, topic string, authors []string) (int, error) {
	cs, err := api.Query(ctx, hyper.FileQuery{
		Drives: authors,
		Paths:  classify.Paths(classify.Comments),
	})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range cs {
		if c.Metadata["href"] == topic {
			n++
		}
	}
	return n, nil
}

func fromAuthor(r hyper.Record, authors []string) bool {
	if len(authors) == 0 {
		return true
	}
	for _, a := range authors {
		if hyper.IsSameOrigin(r.Site.URL, a) {
			return true
		}
	}
	return false
}

// tabulate groups annotations by value, most frequent first.
func tabulate(recs []hyper.Record, authors []string) []Tally {
	byValue := map[string]*Tally{}
	var out []*Tally
	for _, r := range recs {
		if r.Value == "" || !fromAuthor(r, authors) {
			continue
		}
		t, ok := byValue[r.Value]
		if !ok {
			t = &Tally{Value: r.Value}
			byValue[r.Value] = t
			out = append(out, t)
		}
		t.Count++
		t.Authors = append(t.Authors, r.Site)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	tallies := make([]Tally, len(out))
	for i, t := range out {
		tallies[i] = *t
	}
	return tallies
}

// Summary is a one-line text form, e.g. "3 comments · +1 ×2".
func (s Signals) Summary() string {
	parts := []string{fmt.Sprintf("%d %s", s.Comments, hyper.Pluralize(s.Comments, "comment"))}
	for _, t := range s.Annotations {
		parts = append(parts, fmt.Sprintf("%s ×%d", t.Value, t.Count))
	}
	return strings.Join(parts, " · ")
}

// Memo loads signals once per topic and author set. Concurrent loads of the
// same key share one request.
type Memo struct {
	api    API
	flight singleflight.Group

	mu    sync.RWMutex
	cache map[string]Signals
}

func NewMemo(api API) *Memo {
	return &Memo{api: api, cache: map[string]Signals{}}
}

func memoKey(topic string, authors []string) string {
	sorted := append([]string(nil), authors...)
	sort.Strings(sorted)
	return topic + "\x00" + strings.Join(sorted, "\x00")
}

func (m *Memo) Get(ctx context.Context, topic string, authors []string) (Signals, error) {
	key := memoKey(topic, authors)
	m.mu.RLock()
	s, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	v, err, _ := m.flight.Do(key, func() (interface{}, error) {
		s, err := Load(ctx, m.api, topic, authors)
		if err != nil {
			return Signals{}, err
		}
		m.mu.Lock()
		m.cache[key] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return Signals{}, err
	}
	return v.(Signals), nil
}

// Invalidate forgets everything memoized for topic.
func (m *Memo) Invalidate(topic string) {
	prefix := topic + "\x00"
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.cache {
		if strings.HasPrefix(k, prefix) {
			delete(m.cache, k)
		}
	}
}
