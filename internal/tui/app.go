package tui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/matheuskafuri/hyperdesk/internal/browser"
	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/config"
	"github.com/matheuskafuri/hyperdesk/internal/feed"
	"github.com/matheuskafuri/hyperdesk/internal/feedview"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/index"
	"github.com/matheuskafuri/hyperdesk/internal/markdown"
	"github.com/matheuskafuri/hyperdesk/internal/query"
	"github.com/matheuskafuri/hyperdesk/internal/signal"
	"github.com/matheuskafuri/hyperdesk/internal/sites"
)

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeHome mode = iota
	modeNormal
	modeSearch
	modeFilter
	modeHelp
)

type tab int

const (
	tabFeed tab = iota
	tabSites
)

var listings = []sites.Listing{sites.ListingAll, sites.ListingMine, sites.ListingSubscribed, sites.ListingSuggested}

type App struct {
	cfg     *config.Config
	idx     *index.Index
	querier *feedview.Querier
	signals *signal.Memo
	fetcher feed.Fetcher
	logger  *zap.Logger

	tab   tab
	mode  mode
	focus focusPane

	width  int
	height int

	// Feed. The gate is only touched from Update.
	feedGate   query.Gate[feedview.Config]
	feedCancel context.CancelFunc
	feedCfg    feedview.Config
	results    []feedview.Result
	feedLoaded bool
	cursor     int

	// Sites
	sitesList   *sites.Widget
	sitesCfg    sites.Config
	sitesEvents chan struct{}
	siteRows    []hyper.Site
	sitesLoaded bool
	siteCursor  int

	previews      map[string]preview
	mdStyle       string
	previewScroll int

	// Sub-components
	searchInput textinput.Model
	spinner     spinner.Model
	filterBar   filterBar

	// State
	refreshing    bool
	updateVersion string
	currentDate   string
	err           error

	configPath   string
	configEvents chan configReloadedMsg
	ctx          context.Context
	cancel       context.CancelFunc
}

// RunOpts holds all parameters for launching the TUI.
type RunOpts struct {
	Cfg *config.Config
	// ConfigPath is watched for changes when non-empty.
	ConfigPath    string
	Index         *index.Index
	Fetcher       feed.Fetcher
	Logger        *zap.Logger
	StartTab      string
	UpdateVersion string
	// MarkdownStyle is a glamour standard style name such as "dark".
	MarkdownStyle string
}

func NewApp(opts RunOpts) *App {
	ti := textinput.New()
	ti.Placeholder = "Filter..."
	ti.Prompt = searchPromptStyle.Render("/ ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = feed.NewRSSFetcher(opts.Cfg.RetentionDuration())
	}
	mdStyle := opts.MarkdownStyle
	if mdStyle == "" {
		mdStyle = "dark"
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:           opts.Cfg,
		idx:           opts.Index,
		querier:       feedview.NewQuerier(opts.Index, markdown.New(), logger.Named("feed")),
		signals:       signal.NewMemo(opts.Index),
		fetcher:       fetcher,
		logger:        logger,
		feedCfg:       opts.Cfg.FeedQuery(),
		sitesCfg:      opts.Cfg.SitesQuery(),
		sitesEvents:   make(chan struct{}, 1),
		previews:      map[string]preview{},
		mdStyle:       mdStyle,
		filterBar:     newFilterBar(opts.Cfg.SourceNames()),
		searchInput:   ti,
		spinner:       sp,
		updateVersion: opts.UpdateVersion,
		currentDate:   time.Now().Format("Jan 2"),
		configPath:    opts.ConfigPath,
		configEvents:  make(chan configReloadedMsg),
		ctx:           ctx,
		cancel:        cancel,
	}

	events := a.sitesEvents
	a.sitesList = sites.NewWidget(opts.Index, opts.Cfg.SitesProfile(), logger.Named("sites"), func() {
		select {
		case events <- struct{}{}:
		default:
		}
	})

	switch opts.StartTab {
	case "feed":
		a.mode = modeNormal
	case "sites":
		a.mode = modeNormal
		a.tab = tabSites
	}
	return a
}

func (a *App) Init() tea.Cmd {
	a.sitesList.SetConfig(a.sitesCfg)
	cmds := []tea.Cmd{
		a.requestFeed(),
		waitForSites(a.ctx, a.sitesEvents),
	}
	if a.configPath != "" {
		cmds = append(cmds, a.watchConfigCmd(), waitForConfig(a.ctx, a.configEvents))
	}
	return tea.Batch(cmds...)
}

// Close stops background work. It is safe to call more than once.
func (a *App) Close() {
	a.cancel()
	if a.feedCancel != nil {
		a.feedCancel()
	}
	a.sitesList.Close()
}

// requestFeed asks for the feed to be loaded with a.feedCfg. When a load is
// already running it is cancelled and a single follow-up is owed.
func (a *App) requestFeed() tea.Cmd {
	t, start := a.feedGate.Request(a.feedCfg)
	if !start {
		if a.feedCancel != nil {
			a.feedCancel()
		}
		return nil
	}
	return a.startFeed(t)
}

func (a *App) startFeed(t query.Ticket[feedview.Config]) tea.Cmd {
	ctx, cancel := context.WithCancel(a.ctx)
	a.feedCancel = cancel
	q := a.querier
	return func() tea.Msg {
		results, err := q.Query(ctx, t.Config)
		return feedLoadedMsg{gen: t.Gen, results: results, err: err}
	}
}

func (a *App) settleFeed(msg feedLoadedMsg) tea.Cmd {
	if a.feedCancel != nil {
		a.feedCancel()
		a.feedCancel = nil
	}
	final, next, start := a.feedGate.Settle(msg.gen)
	var cmds []tea.Cmd
	if final {
		if msg.err != nil {
			a.logger.Warn("feed query failed", zap.Error(msg.err))
		} else {
			a.results = msg.results
			a.feedLoaded = true
			if a.cursor >= len(a.results) {
				a.cursor = max(0, len(a.results)-1)
			}
			cmds = append(cmds, a.loadSelectedCmd())
		}
	}
	if start {
		cmds = append(cmds, a.startFeed(next))
	}
	return tea.Batch(cmds...)
}

func waitForSites(ctx context.Context, ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ch:
			return sitesChangedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func waitForConfig(ctx context.Context, ch <-chan configReloadedMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

// watchConfigCmd blocks for the lifetime of the app.
func (a *App) watchConfigCmd() tea.Cmd {
	ctx, path, ch := a.ctx, a.configPath, a.configEvents
	return func() tea.Msg {
		err := config.Watch(ctx, path, func(cfg *config.Config, err error) {
			select {
			case ch <- configReloadedMsg{cfg: cfg, err: err}:
			case <-ctx.Done():
			}
		})
		if err != nil {
			return feedErrMsg{err: err}
		}
		return nil
	}
}

// activeDrives maps the sources picked in the filter bar to their drives. nil
// means every drive, including the user's own.
func (a *App) activeDrives() []string {
	names := a.filterBar.activeSources()
	if names == nil {
		return nil
	}
	byName := make(map[string]string, len(a.cfg.Sources))
	for _, s := range a.cfg.Sources {
		byName[s.Name] = feed.DriveURL(s.URL)
	}
	drives := make([]string, 0, len(names))
	for _, n := range names {
		if d, ok := byName[n]; ok {
			drives = append(drives, d)
		}
	}
	return drives
}

func (a *App) selected() *feedview.Result {
	if len(a.results) == 0 || a.cursor >= len(a.results) {
		return nil
	}
	return &a.results[a.cursor]
}

func (a *App) selectedSite() *hyper.Site {
	if len(a.siteRows) == 0 || a.siteCursor >= len(a.siteRows) {
		return nil
	}
	return &a.siteRows[a.siteCursor]
}

func signalTopic(r feedview.Result) string {
	if r.Type() == classify.Bookmarks {
		return r.Href
	}
	return r.URL
}

// loadSelectedCmd loads the body and social signals of the selected result
// unless they were already requested.
func (a *App) loadSelectedCmd() tea.Cmd {
	r := a.selected()
	if r == nil {
		return nil
	}
	if _, ok := a.previews[r.URL]; ok {
		return nil
	}
	a.previews[r.URL] = preview{}
	return tea.Batch(
		loadPreviewCmd(a.idx, a.mdStyle, a.previewWidth(), *r),
		loadSignalsCmd(a.signals, r.URL, signalTopic(*r), a.logger),
	)
}

func loadPreviewCmd(idx *index.Index, style string, width int, r feedview.Result) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		msg := previewLoadedMsg{url: r.URL}
		if u, err := url.Parse(r.URL); err == nil {
			cs, err := idx.Query(ctx, hyper.FileQuery{Drives: []string{r.URL}, Paths: []string{u.Path}})
			if err == nil && len(cs) > 0 {
				msg.link = cs[0].Metadata["link"]
			}
		}
		if strings.HasSuffix(r.URL, ".md") {
			src, err := idx.ReadFile(ctx, r.URL)
			if err == nil && strings.TrimSpace(src) != "" {
				msg.body = renderMarkdown(newRenderer(style, width), markdown.RemoveFirstHeader(src), width)
			}
		}
		return msg
	}
}

func loadSignalsCmd(memo *signal.Memo, key, topic string, logger *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s, err := memo.Get(ctx, topic, nil)
		if err != nil {
			logger.Debug("loading signals", zap.String("topic", topic), zap.Error(err))
			return nil
		}
		return signalsLoadedMsg{url: key, signals: s}
	}
}

func (a *App) doRefresh() tea.Cmd {
	cfg := a.cfg
	idx := a.idx
	fetcher := a.fetcher
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result := feed.Sync(ctx, idx, fetcher, cfg.EnabledSources())
		if err := idx.SetLastRefresh(); err != nil {
			result.Errors = append(result.Errors, err)
		}
		if _, err := idx.Prune(cfg.RetentionDuration()); err != nil {
			result.Errors = append(result.Errors, err)
		}
		return refreshDoneMsg{files: result.Files, errs: result.Errors}
	}
}

func toggleCmd(w *sites.Widget, site hyper.Site) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		updated, err := w.Toggle(ctx, site)
		return toggledMsg{site: updated, err: err}
	}
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		err := browser.Open(url)
		if err != nil {
			return feedErrMsg{err: err}
		}
		return nil
	}
}

func (a *App) applyConfig(cfg *config.Config) tea.Cmd {
	a.cfg = cfg
	a.filterBar.setSources(cfg.SourceNames())

	next := cfg.FeedQuery()
	next.Filter = a.feedCfg.Filter
	next.Sources = a.activeDrives()
	var cmd tea.Cmd
	if !next.Equal(a.feedCfg) {
		a.feedCfg = next
		a.cursor = 0
		cmd = a.requestFeed()
	}

	sc := cfg.SitesQuery()
	sc.Filter = a.sitesCfg.Filter
	a.sitesCfg = sc
	a.sitesList.SetConfig(sc)
	return cmd
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		resized := msg.Width != a.width
		a.width = msg.Width
		a.height = msg.Height
		if resized {
			// Bodies are rendered for a width.
			a.previews = map[string]preview{}
			return a, a.loadSelectedCmd()
		}
		return a, nil

	case tea.KeyMsg:
		// Clear sticky error on any keypress
		a.err = nil
		return a.handleKey(msg)

	case feedLoadedMsg:
		return a, a.settleFeed(msg)

	case sitesChangedMsg:
		a.siteRows, a.sitesLoaded = a.sitesList.Sites()
		if a.siteCursor >= len(a.siteRows) {
			a.siteCursor = max(0, len(a.siteRows)-1)
		}
		return a, waitForSites(a.ctx, a.sitesEvents)

	case previewLoadedMsg:
		p := a.previews[msg.url]
		p.body, p.link = msg.body, msg.link
		a.previews[msg.url] = p
		return a, nil

	case signalsLoadedMsg:
		p := a.previews[msg.url]
		p.signals = msg.signals.Summary()
		a.previews[msg.url] = p
		return a, nil

	case toggledMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		for i := range a.siteRows {
			if a.siteRows[i].Origin == msg.site.Origin {
				a.siteRows[i] = msg.site
			}
		}
		return a, nil

	case configReloadedMsg:
		cmds := []tea.Cmd{waitForConfig(a.ctx, a.configEvents)}
		if msg.err != nil {
			a.err = fmt.Errorf("reloading config: %w", msg.err)
			a.logger.Warn("config reload failed", zap.Error(msg.err))
		} else {
			a.logger.Info("config reloaded")
			cmds = append(cmds, a.applyConfig(msg.cfg))
		}
		return a, tea.Batch(cmds...)

	case feedErrMsg:
		a.err = msg.err
		return a, nil

	case refreshDoneMsg:
		a.refreshing = false
		for _, err := range msg.errs {
			a.logger.Warn("sync", zap.Error(err))
		}
		if len(msg.errs) > 0 {
			a.err = fmt.Errorf("sync: %w", errors.Join(msg.errs...))
		}
		a.previews = map[string]preview{}
		a.signals = signal.NewMemo(a.idx)
		a.sitesList.Reload()
		return a, a.requestFeed()

	case spinner.TickMsg:
		if a.refreshing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global keys
	switch msg.String() {
	case "ctrl+c":
		return a, tea.Quit
	}

	// Mode-specific handling
	switch a.mode {
	case modeHome:
		return a.handleHomeKey(msg)
	case modeSearch:
		return a.handleSearchKey(msg)
	case modeFilter:
		return a.handleFilterKey(msg)
	case modeHelp:
		if msg.String() == "?" || msg.String() == "esc" || msg.String() == "q" {
			a.mode = modeNormal
		}
		return a, nil
	}

	// Normal mode
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		return a, a.move(1)
	case "k", "up":
		return a, a.move(-1)
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
		return a, nil
	case "1":
		a.tab = tabFeed
		a.previewScroll = 0
		return a, nil
	case "2":
		a.tab = tabSites
		a.previewScroll = 0
		return a, nil
	case "o", "enter":
		return a, a.openSelected()
	case "/":
		a.mode = modeSearch
		a.searchInput.SetValue(a.currentFilter())
		a.searchInput.CursorEnd()
		a.searchInput.Focus()
		return a, textinput.Blink
	case "f":
		if a.tab == tabFeed {
			a.mode = modeFilter
			a.filterBar.filterMode = true
		}
		return a, nil
	case "t":
		if a.tab == tabFeed {
			a.feedCfg.ContentType = nextType(a.feedCfg.ContentType)
			a.cursor = 0
			return a, a.requestFeed()
		}
		return a, nil
	case "m":
		if a.tab == tabFeed {
			if a.feedCfg.Sort == hyper.SortMtime {
				a.feedCfg.Sort = hyper.SortCtime
			} else {
				a.feedCfg.Sort = hyper.SortMtime
			}
			return a, a.requestFeed()
		}
		return a, nil
	case "l":
		if a.tab == tabSites {
			a.sitesCfg.Listing = nextListing(a.sitesCfg.Listing)
			a.siteCursor = 0
			a.sitesList.SetConfig(a.sitesCfg)
		}
		return a, nil
	case "s":
		if a.tab == tabSites {
			if s := a.selectedSite(); s != nil {
				return a, toggleCmd(a.sitesList, *s)
			}
		}
		return a, nil
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, tea.Batch(a.doRefresh(), a.spinner.Tick)
		}
		return a, nil
	case "h":
		a.mode = modeHome
		return a, nil
	case "?":
		a.mode = modeHelp
		return a, nil
	}

	return a, nil
}

func (a *App) move(delta int) tea.Cmd {
	if a.focus == focusPreview {
		a.previewScroll = max(0, a.previewScroll+delta)
		return nil
	}
	if a.tab == tabSites {
		next := a.siteCursor + delta
		if next >= 0 && next < len(a.siteRows) {
			a.siteCursor = next
			a.previewScroll = 0
		}
		return nil
	}
	next := a.cursor + delta
	if next < 0 || next >= len(a.results) {
		return nil
	}
	a.cursor = next
	a.previewScroll = 0
	return a.loadSelectedCmd()
}

func (a *App) openSelected() tea.Cmd {
	if a.tab == tabSites {
		if s := a.selectedSite(); s != nil {
			return openBrowserCmd(s.URL)
		}
		return nil
	}
	r := a.selected()
	if r == nil {
		return nil
	}
	if link := a.previews[r.URL].link; link != "" {
		return openBrowserCmd(link)
	}
	return openBrowserCmd(r.Href)
}

func nextType(t classify.Type) classify.Type {
	types := append([]classify.Type{classify.All}, classify.AllTypes()...)
	for i, x := range types {
		if x == t {
			return types[(i+1)%len(types)]
		}
	}
	return classify.All
}

func nextListing(l sites.Listing) sites.Listing {
	for i, x := range listings {
		if x == l {
			return listings[(i+1)%len(listings)]
		}
	}
	return sites.ListingAll
}

func (a *App) currentFilter() string {
	if a.tab == tabSites {
		return a.sitesCfg.Filter
	}
	return a.feedCfg.Filter
}

func (a *App) setFilter(filter string) tea.Cmd {
	if a.tab == tabSites {
		a.sitesCfg.Filter = filter
		a.siteCursor = 0
		a.sitesList.SetConfig(a.sitesCfg)
		return nil
	}
	if a.feedCfg.Filter == filter {
		return nil
	}
	a.feedCfg.Filter = filter
	a.cursor = 0
	return a.requestFeed()
}

func (a *App) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "f", "1":
		a.mode = modeNormal
		a.tab = tabFeed
		return a, nil
	case "s", "2":
		a.mode = modeNormal
		a.tab = tabSites
		return a, nil
	case "q":
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		a.searchInput.SetValue("")
		a.searchInput.Blur()
		return a, a.setFilter("")
	case "enter":
		a.mode = modeNormal
		a.searchInput.Blur()
		return a, nil
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	// Every keystroke re-queries; loads in flight are superseded.
	return a, tea.Batch(cmd, a.setFilter(a.searchInput.Value()))
}

func (a *App) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f":
		a.mode = modeNormal
		a.filterBar.filterMode = false
		return a, nil
	case "left", "h":
		if a.filterBar.filterCursor > 0 {
			a.filterBar.filterCursor--
		}
		return a, nil
	case "right", "l":
		if a.filterBar.filterCursor < len(a.filterBar.sources)-1 {
			a.filterBar.filterCursor++
		}
		return a, nil
	case " ", "enter":
		a.filterBar.toggleCurrent()
		return a, a.sourcesChanged()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		if idx < len(a.filterBar.sources) {
			a.filterBar.toggle(a.filterBar.sources[idx])
			return a, a.sourcesChanged()
		}
		return a, nil
	}
	return a, nil
}

func (a *App) sourcesChanged() tea.Cmd {
	a.feedCfg.Sources = a.activeDrives()
	a.cursor = 0
	return a.requestFeed()
}

func (a *App) withBottomBar(content string, hints string) string {
	bar := renderBottomBar(hints, a.width)
	lines := strings.Split(content, "\n")
	for len(lines) < a.height-1 {
		lines = append(lines, "")
	}
	if len(lines) >= a.height {
		lines = lines[:a.height-1]
	}
	lines = append(lines, bar)
	return strings.Join(lines, "\n")
}

func (a *App) listWidth() int {
	return int(float64(a.width) * 0.35)
}

func (a *App) previewWidth() int {
	// border, padding and the gap between panes
	w := a.width - a.listWidth() - 1 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (a *App) renderListingBar(width int) string {
	sep := tabSeparatorStyle.Render(" · ")
	var parts []string
	for _, l := range listings {
		label := sites.Header(l)
		if label == "" {
			label = "All Sites"
		}
		style := tabInactiveStyle
		if l == a.sitesCfg.Listing {
			style = tabActiveStyle
		}
		parts = append(parts, style.Render(label))
	}
	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(strings.Join(parts, sep))
}

func (a *App) feedEmptyMessage() string {
	if a.feedCfg.Filter != "" {
		return fmt.Sprintf("No matches found for %q.", a.feedCfg.Filter)
	}
	return "Nothing here yet. Press r to sync."
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  hyperdesk")
	}

	if a.mode == modeHome {
		return a.withBottomBar(renderHomeScreen(a.width, a.height, a.cfg.Profile.Title, a.updateVersion), "f feed  s sites  q quit")
	}

	if a.mode == modeHelp {
		return a.withBottomBar(a.renderHelp(), "? close  h home  q quit")
	}

	// Layout calculations
	headerHeight := 1
	filterHeight := 1
	statusHeight := 1
	contentHeight := a.height - headerHeight - filterHeight - statusHeight - 4 // borders

	listWidth := a.listWidth()
	previewWidth := a.width - listWidth - 1 // gap

	if contentHeight < 3 {
		contentHeight = 3
	}

	// Header
	feedTab, sitesTab := tabInactiveStyle, tabInactiveStyle
	if a.tab == tabFeed {
		feedTab = tabActiveStyle
	} else {
		sitesTab = tabActiveStyle
	}
	headerLeft := headerStyle.Render("hyperdesk") + " " + feedTab.Render("1 Feed") + " " + sitesTab.Render("2 Sites")
	headerRight := headerDateStyle.Render(a.currentDate)
	headerGap := a.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerGap < 0 {
		headerGap = 0
	}
	header := headerLeft + fmt.Sprintf("%*s", headerGap, "") + headerRight

	// Filter bar, replaced by the search input while searching
	var filter string
	switch {
	case a.mode == modeSearch:
		filter = a.searchInput.View()
	case a.tab == tabSites:
		filter = a.renderListingBar(a.width)
	default:
		filter = a.filterBar.render(a.width)
	}

	innerListW := listWidth - 4 // border + padding
	innerPreviewW := previewWidth - 4

	var listContent, previewContent string
	var st status
	if a.tab == tabSites {
		listContent = renderSiteList(a.siteRows, !a.sitesLoaded, "No sites found", a.cfg.Profile.URL, a.siteCursor, contentHeight, innerListW)
		previewContent = renderSitePreview(a.selectedSite(), a.cfg.Profile.URL, innerPreviewW, contentHeight, a.previewScroll)
		scope := sites.Header(a.sitesCfg.Listing)
		if scope == "" {
			scope = "All Sites"
		}
		st = status{count: len(a.siteRows), noun: hyper.Pluralize(len(a.siteRows), "site"), scope: scope, filter: a.sitesCfg.Filter, loading: a.sitesList.Loading()}
	} else {
		listContent = renderList(a.results, !a.feedLoaded, a.feedEmptyMessage(), a.cursor, contentHeight, innerListW)
		var p preview
		if r := a.selected(); r != nil {
			p = a.previews[r.URL]
		}
		previewContent = renderPreview(a.selected(), p, innerPreviewW, contentHeight, a.previewScroll)
		scope := classify.Title(a.feedCfg.ContentType) + " by " + string(a.feedCfg.Sort)
		st = status{count: len(a.results), noun: hyper.Pluralize(len(a.results), "item"), scope: scope, filter: a.filterBar.activeLabel(), loading: a.feedGate.Active()}
	}
	st.searching = a.mode == modeSearch
	st.refreshing = a.refreshing

	var listPane string
	if a.focus == focusList {
		listPane = listPaneActiveStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	} else {
		listPane = listPaneStyle.Width(listWidth - 2).Height(contentHeight).Render(listContent)
	}

	var previewPane string
	if a.focus == focusPreview {
		previewPane = previewPaneActiveStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	} else {
		previewPane = previewPaneStyle.Width(previewWidth - 2).Height(contentHeight).Render(previewContent)
	}

	// Join panes
	content := lipgloss.JoinHorizontal(lipgloss.Top, listPane, previewPane)

	statusLine := renderStatusBar(st, a.width)
	if a.refreshing {
		statusLine = a.spinner.View() + " " + statusLine
	}

	// Error display
	if a.err != nil {
		statusLine = lipgloss.NewStyle().Foreground(colorAccent).Render(a.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, filter, content, statusLine)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("hyperdesk")
	dim := helpDimStyle

	help := title + dim.Render(" keyboard shortcuts") + "\n\n" +
		dim.Render("Navigation") + "\n" +
		"  j/k, ↑/↓     Move through the list\n" +
		"  tab           Switch focus between list and preview\n" +
		"  1 / 2         Feed / Sites\n\n" +
		dim.Render("Feed") + "\n" +
		"  t             Cycle content type\n" +
		"  m             Sort by created or modified time\n" +
		"  f             Toggle source filter mode\n\n" +
		dim.Render("Sites") + "\n" +
		"  l             Cycle listing\n" +
		"  s             Subscribe / unsubscribe\n\n" +
		dim.Render("Actions") + "\n" +
		"  o, enter      Open in browser\n" +
		"  r             Sync feeds\n" +
		"  /             Filter\n\n" +
		dim.Render("Filter Mode") + "\n" +
		"  ←/→, h/l     Move between sources\n" +
		"  space/enter   Toggle source\n" +
		"  1-9           Toggle source by number\n" +
		"  esc, f        Exit filter mode\n\n" +
		dim.Render("General") + "\n" +
		"  h             Go to home screen\n" +
		"  ?             Toggle this help\n" +
		"  q, ctrl+c    Quit"

	card := helpCardStyle.Render(help)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the TUI application.
func Run(opts RunOpts) error {
	if opts.MarkdownStyle == "" {
		opts.MarkdownStyle = "light"
		if lipgloss.HasDarkBackground() {
			opts.MarkdownStyle = "dark"
		}
	}
	app := NewApp(opts)
	defer app.Close()
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
