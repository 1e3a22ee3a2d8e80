package feedview

import (
	"go.uber.org/zap"

	"github.com/matheuskafuri/hyperdesk/internal/query"
)

// Widget is one feed instance backed by a Querier.
type Widget struct {
	*query.Widget[Config, []Result]
	q *Querier
}

func NewWidget(q *Querier, logger *zap.Logger, onChange func()) *Widget {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Widget{
		Widget: query.NewWidget(q.Query, onChange,
			query.WithLogger[Config, []Result](logger),
			query.WithName[Config, []Result]("feed"),
		),
		q: q,
	}
}

// SetFilter changes only the filter text.
func (w *Widget) SetFilter(filter string) {
	cfg := w.Config()
	cfg.Filter = filter
	w.SetConfig(cfg)
}

// SetSources changes only the drives the feed reads from.
func (w *Widget) SetSources(sources []string) {
	cfg := w.Config()
	cfg.Sources = append([]string(nil), sources...)
	w.SetConfig(cfg)
}

// View builds a render view from the widget's current state.
func (w *Widget) View(base View) View {
	res, ok := w.Results()
	base.Results = res
	base.Loading = !ok
	base.ContentType = w.Config().ContentType
	base.Filter = w.Config().Filter
	return base
}
