package sites

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/query"
)

// Widget is one sites list instance. Placeholder sites in suggested
// listings are resolved in the background after each load.
type Widget struct {
	*query.Widget[Config, []hyper.Site]

	api     hyper.API
	profile Profile
	logger  *zap.Logger
	changed func()

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	resolved map[string]hyper.Site
}

func NewWidget(api hyper.API, profile Profile, logger *zap.Logger, onChange func()) *Widget {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Widget{
		api:      api,
		profile:  profile,
		logger:   logger,
		changed:  onChange,
		ctx:      ctx,
		cancel:   cancel,
		resolved: map[string]hyper.Site{},
	}
	fetch := func(ctx context.Context, cfg Config) ([]hyper.Site, error) {
		return Load(ctx, api, profile, cfg)
	}
	w.Widget = query.NewWidget(fetch, w.touch,
		query.WithLogger[Config, []hyper.Site](logger),
		query.WithName[Config, []hyper.Site]("sites"),
		query.OnResult[Config, []hyper.Site](w.resolveLater),
	)
	return w
}

// Sites returns the latest listing with any resolved placeholders filled in.
func (w *Widget) Sites() ([]hyper.Site, bool) {
	sites, ok := w.Results()
	if !ok {
		return nil, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]hyper.Site, len(sites))
	for i, s := range sites {
		if r, found := w.resolved[s.Origin]; found && s.Unknown {
			s.Title, s.Description, s.Unknown = r.Title, r.Description, false
		}
		out[i] = s
	}
	return out, true
}

// Toggle flips the subscription of the site with the given origin and
// reloads the listing.
func (w *Widget) Toggle(ctx context.Context, site hyper.Site) (hyper.Site, error) {
	updated, err := ToggleSubscribe(ctx, w.api, site, w.profile)
	w.Reload()
	return updated, err
}

// Close stops the list and waits for background lookups to finish.
func (w *Widget) Close() {
	w.Widget.Close()
	w.cancel()
	w.wg.Wait()
}

func (w *Widget) resolveLater(_ Config, sites []hyper.Site) {
	var pending []hyper.Site
	w.mu.Lock()
	for _, s := range sites {
		if _, done := w.resolved[s.Origin]; s.Unknown && !done {
			pending = append(pending, s)
		}
	}
	w.mu.Unlock()
	if len(pending) == 0 {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		out, err := ResolveUnknown(w.ctx, w.api, pending, w.logger)
		if err != nil {
			return
		}
		w.mu.Lock()
		for _, s := range out {
			if !s.Unknown {
				w.resolved[s.Origin] = s
			}
		}
		w.mu.Unlock()
		w.touch()
	}()
}

func (w *Widget) touch() {
	if w.changed != nil {
		w.changed()
	}
}
