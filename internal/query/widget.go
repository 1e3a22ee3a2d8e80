package query

import (
	"context"
	"sync"
)

// Config is a query configuration with an explicit equality definition.
type Config[C any] interface {
	Equal(other C) bool
}

// Widget holds the configuration and latest result set of one widget
// instance and requests a fetch whenever the configuration changes.
type Widget[C Config[C], R any] struct {
	co *Coalescer[C, R]

	mu      sync.RWMutex
	cfg     C
	hasCfg  bool
	results R
	loaded  bool
	err     error
	changed func()
}

// NewWidget wires fetch through a Coalescer. onChange, if non-nil, is called
// after every result, failure and state change. Callbacks given in opts run
// after the widget has stored the result.
func NewWidget[C Config[C], R any](fetch FetchFunc[C, R], onChange func(), opts ...Option[C, R]) *Widget[C, R] {
	w := &Widget[C, R]{changed: onChange}
	own := []Option[C, R]{
		OnResult[C, R](w.setResults),
		OnError[C, R](w.setError),
		OnStateChange[C, R](func(State) { w.touch() }),
	}
	w.co = NewCoalescer(fetch, append(own, opts...)...)
	return w
}

// SetConfig stores cfg and requests a fetch when it differs from the previous
// configuration or nothing has been loaded yet.
func (w *Widget[C, R]) SetConfig(cfg C) {
	w.mu.Lock()
	same := w.hasCfg && w.cfg.Equal(cfg)
	w.cfg = cfg
	w.hasCfg = true
	loaded := w.loaded
	w.mu.Unlock()

	if same && (loaded || w.co.Loading()) {
		return
	}
	w.co.Request(cfg)
}

// Reload requests a fetch with the current configuration regardless of changes.
func (w *Widget[C, R]) Reload() {
	w.mu.RLock()
	cfg, ok := w.cfg, w.hasCfg
	w.mu.RUnlock()
	if ok {
		w.co.Request(cfg)
	}
}

func (w *Widget[C, R]) Config() C {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// Results returns the latest final result set and whether one has arrived.
func (w *Widget[C, R]) Results() (R, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.results, w.loaded
}

// Err returns the error of the latest final fetch, or nil.
func (w *Widget[C, R]) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

// Loading is true until the first result arrives and while a fetch is running.
func (w *Widget[C, R]) Loading() bool {
	w.mu.RLock()
	loaded := w.loaded
	w.mu.RUnlock()
	return !loaded || w.co.Loading()
}

func (w *Widget[C, R]) Wait(ctx context.Context) error { return w.co.Wait(ctx) }

func (w *Widget[C, R]) Close() { w.co.Close() }

func (w *Widget[C, R]) setResults(_ C, res R) {
	w.mu.Lock()
	w.results = res
	w.loaded = true
	w.err = nil
	w.mu.Unlock()
	w.touch()
}

func (w *Widget[C, R]) setError(_ C, err error) {
	w.mu.Lock()
	w.err = err
	w.mu.Unlock()
	w.touch()
}

func (w *Widget[C, R]) touch() {
	if w.changed != nil {
		w.changed()
	}
}
