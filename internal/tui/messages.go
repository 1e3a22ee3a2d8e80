package tui

import (
	"github.com/matheuskafuri/hyperdesk/internal/config"
	"github.com/matheuskafuri/hyperdesk/internal/feedview"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/signal"
)

// feedLoadedMsg settles the feed fetch with generation gen.
type feedLoadedMsg struct {
	gen     uint64
	results []feedview.Result
	err     error
}

type sitesChangedMsg struct{}

type previewLoadedMsg struct {
	url  string
	body string
	// link is the original article of a mirrored feed item.
	link string
}

type signalsLoadedMsg struct {
	url     string
	signals signal.Signals
}

type toggledMsg struct {
	site hyper.Site
	err  error
}

type configReloadedMsg struct {
	cfg *config.Config
	err error
}

type feedErrMsg struct {
	err error
}

type refreshDoneMsg struct {
	files int
	errs  []error
}
