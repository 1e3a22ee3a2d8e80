package feedview

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/matheuskafuri/hyperdesk/internal/classify"
	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	"github.com/matheuskafuri/hyperdesk/internal/markdown"
)

// ErrAborted is returned when the context is cancelled mid-query.
var ErrAborted = errors.New("query aborted")

// allMicroblogLimit caps microblog posts in the combined feed.
const allMicroblogLimit = 200

// Querier runs feed queries against a drive store. Drive titles are cached
// for the lifetime of the Querier.
type Querier struct {
	drives hyper.Drives
	md     *markdown.Renderer
	logger *zap.Logger

	flight singleflight.Group
	mu     sync.RWMutex
	titles map[string]string
}

func NewQuerier(drives hyper.Drives, md *markdown.Renderer, logger *zap.Logger) *Querier {
	if md == nil {
		md = markdown.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Querier{
		drives: drives,
		md:     md,
		logger: logger,
		titles: map[string]string{},
	}
}

type queryFunc func(ctx context.Context, cfg Config) ([]Result, error)

// Query returns the results for cfg, newest first unless cfg.Sort says
// otherwise.
func (q *Querier) Query(ctx context.Context, cfg Config) ([]Result, error) {
	if cfg.ContentType == classify.All {
		return q.queryAll(ctx, cfg)
	}
	fn, err := q.lookup(cfg.ContentType)
	if err != nil {
		return nil, err
	}
	return fn(ctx, cfg)
}

func (q *Querier) lookup(t classify.Type) (queryFunc, error) {
	switch t {
	case classify.Bookmarks:
		return q.queryBookmarks, nil
	case classify.BlogPosts, classify.Pages:
		return func(ctx context.Context, cfg Config) ([]Result, error) {
			return q.queryPlaintext(ctx, classify.Paths(t), cfg)
		}, nil
	case classify.MicroblogPosts:
		return q.queryMicroblog, nil
	case classify.Comments:
		return q.queryComments, nil
	case classify.Images:
		return q.queryImages, nil
	}
	return nil, fmt.Errorf("unsupported content type %q", t)
}

func (q *Querier) queryAll(ctx context.Context, cfg Config) ([]Result, error) {
	types := []classify.Type{
		classify.Bookmarks,
		classify.BlogPosts,
		classify.MicroblogPosts,
		classify.Comments,
		classify.Pages,
	}
	parts := make([][]Result, len(types))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range types {
		i, t := i, t
		fn, err := q.lookup(t)
		if err != nil {
			return nil, err
		}
		// Every type contributes its newest Offset+Limit entries; paging
		// happens on the merged list.
		sub := cfg
		sub.ContentType = t
		sub.Offset = 0
		if cfg.Limit > 0 {
			sub.Limit = cfg.Offset + cfg.Limit
		}
		if t == classify.MicroblogPosts && (sub.Limit == 0 || sub.Limit > allMicroblogLimit) {
			sub.Limit = allMicroblogLimit
		}
		g.Go(func() error {
			res, err := fn(gctx, sub)
			if err != nil {
				return fmt.Errorf("querying %s: %w", t, err)
			}
			parts[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Result
	for _, p := range parts {
		out = append(out, p...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Ctime.After(out[j].Ctime)
	})
	return window(out, cfg.Offset, cfg.Limit), nil
}

// candidates runs the store query. With a filter the whole set is fetched
// and paging happens after filtering.
func (q *Querier) candidates(ctx context.Context, paths []string, cfg Config) ([]hyper.Candidate, error) {
	fq := hyper.FileQuery{
		Drives:  cfg.Sources,
		Paths:   paths,
		Sort:    cfg.Sort,
		Reverse: true,
	}
	if fq.Sort == "" {
		fq.Sort = hyper.SortCtime
	}
	if cfg.Filter == "" {
		fq.Limit = cfg.Limit
		fq.Offset = cfg.Offset
	}
	cs, err := q.drives.Query(ctx, fq)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", strings.Join(paths, ", "), err)
	}
	return cs, nil
}

// paginate applies offset and limit to filtered results. Unfiltered results
// were already paged by the store.
func paginate(results []Result, cfg Config) []Result {
	if cfg.Filter == "" {
		return results
	}
	return window(results, cfg.Offset, cfg.Limit)
}

func window(results []Result, offset, limit int) []Result {
	if offset == 0 && limit == 0 {
		return results
	}
	if offset >= len(results) {
		return nil
	}
	results = results[offset:]
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results
}

func aborted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return nil
}

func (q *Querier) author(ctx context.Context, drive string) Author {
	return Author{URL: drive, Title: q.DriveTitle(ctx, drive)}
}

func fileTitle(c hyper.Candidate) string {
	if t := c.Metadata["title"]; t != "" {
		return t
	}
	return path.Base(c.Path)
}

func (q *Querier) queryBookmarks(ctx context.Context, cfg Config) ([]Result, error) {
	re := CompileFilter(cfg.Filter)
	cs, err := q.candidates(ctx, classify.Paths(classify.Bookmarks), cfg)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, c := range cs {
		if err := aborted(ctx); err != nil {
			return nil, err
		}
		href := c.Metadata["href"]
		if href == "" {
			continue
		}
		title := fileTitle(c)
		description := c.Metadata["description"]
		if re != nil && !re.MatchString(href) && !re.MatchString(title) && !re.MatchString(description) {
			continue
		}
		results = append(results, Result{
			URL:         c.URL,
			Href:        href,
			Title:       hyper.MakeSafe(title),
			Description: hyper.MakeSafe(description),
			Ctime:       c.Ctime,
			Author:      q.author(ctx, c.Drive),
		})
	}
	return paginate(results, cfg), nil
}

func (q *Querier) readText(ctx context.Context, c hyper.Candidate) string {
	content, err := q.drives.ReadFile(ctx, c.URL)
	if err != nil {
		q.logger.Debug("reading file", zap.String("url", c.URL), zap.Error(err))
		return ""
	}
	return content
}

// plainExcerpt is the unescaped text of a markdown or text file.
func (q *Querier) plainExcerpt(ctx context.Context, c hyper.Candidate) string {
	switch {
	case strings.HasSuffix(c.Path, "md"):
		return q.md.Strip(markdown.RemoveFirstHeader(q.readText(ctx, c)))
	case strings.HasSuffix(c.Path, "txt"):
		return q.readText(ctx, c)
	}
	return ""
}

func (q *Querier) queryPlaintext(ctx context.Context, paths []string, cfg Config) ([]Result, error) {
	re := CompileFilter(cfg.Filter)
	cs, err := q.candidates(ctx, paths, cfg)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, c := range cs {
		if err := aborted(ctx); err != nil {
			return nil, err
		}
		title := fileTitle(c)
		description := c.Metadata["description"]
		excerpt := q.plainExcerpt(ctx, c)

		r := Result{
			URL:         c.URL,
			Href:        c.URL,
			Title:       hyper.MakeSafe(title),
			Description: hyper.MakeSafe(description),
			Excerpt:     hyper.MakeSafe(excerpt),
			Ctime:       c.Ctime,
		}
		if re != nil {
			ht, okTitle := Highlight(re, title)
			hd, okDesc := Highlight(re, description)
			he, okExcerpt := Highlight(re, excerpt)
			if !okTitle && !okDesc && !okExcerpt {
				continue
			}
			if okTitle {
				r.Title = ht
			}
			r.Description = hd
			if okExcerpt {
				r.Excerpt = he
			}
		}
		r.Author = q.author(ctx, c.Drive)
		results = append(results, r)
	}
	return paginate(results, cfg), nil
}

// postExcerpt renders a post body: sanitized HTML normally, highlighted text
// when filtering.
func (q *Querier) postExcerpt(ctx context.Context, c hyper.Candidate, re *regexp.Regexp) (string, bool) {
	var text string
	switch {
	case strings.HasSuffix(c.Path, "md"):
		text = q.readText(ctx, c)
		if re == nil {
			html, err := q.md.ToHTML(text)
			if err != nil {
				q.logger.Debug("rendering markdown", zap.String("url", c.URL), zap.Error(err))
				return hyper.MakeSafe(text), true
			}
			return html, true
		}
		text = q.md.Strip(text)
	case strings.HasSuffix(c.Path, "txt"):
		text = q.readText(ctx, c)
	}
	if re == nil {
		return hyper.MakeSafe(text), true
	}
	return Highlight(re, text)
}

func (q *Querier) queryMicroblog(ctx context.Context, cfg Config) ([]Result, error) {
	re := CompileFilter(cfg.Filter)
	cs, err := q.candidates(ctx, classify.Paths(classify.MicroblogPosts), cfg)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, c := range cs {
		if err := aborted(ctx); err != nil {
			return nil, err
		}
		excerpt, ok := q.postExcerpt(ctx, c, re)
		if !ok {
			continue
		}
		results = append(results, Result{
			URL:     c.URL,
			Href:    c.URL,
			Excerpt: excerpt,
			Ctime:   c.Ctime,
			Author:  q.author(ctx, c.Drive),
		})
	}
	return paginate(results, cfg), nil
}

func (q *Querier) queryComments(ctx context.Context, cfg Config) ([]Result, error) {
	re := CompileFilter(cfg.Filter)
	cs, err := q.candidates(ctx, classify.Paths(classify.Comments), cfg)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, c := range cs {
		if err := aborted(ctx); err != nil {
			return nil, err
		}
		href := c.Metadata["href"]
		if href == "" {
			continue
		}
		excerpt, ok := q.postExcerpt(ctx, c, re)
		if !ok {
			continue
		}
		results = append(results, Result{
			URL:             c.URL,
			Href:            href,
			HrefDescription: q.VeryFancyURL(ctx, href),
			Excerpt:         excerpt,
			Ctime:           c.Ctime,
			Author:          q.author(ctx, c.Drive),
		})
	}
	return paginate(results, cfg), nil
}

func (q *Querier) queryImages(ctx context.Context, cfg Config) ([]Result, error) {
	re := CompileFilter(cfg.Filter)
	cs, err := q.candidates(ctx, classify.Paths(classify.Images), cfg)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, c := range cs {
		if err := aborted(ctx); err != nil {
			return nil, err
		}
		title := fileTitle(c)
		description := c.Metadata["description"]
		if re != nil && !re.MatchString(title) && !re.MatchString(description) {
			continue
		}
		results = append(results, Result{
			URL:         c.URL,
			Href:        c.URL,
			Title:       hyper.MakeSafe(title),
			Description: hyper.MakeSafe(description),
			Ctime:       c.Ctime,
			Author:      q.author(ctx, c.Drive),
		})
	}
	return paginate(results, cfg), nil
}

// DriveTitle returns the title of the drive at driveURL. Concurrent lookups
// of the same drive share one request. Failed lookups return "" and are
// retried next time.
func (q *Querier) DriveTitle(ctx context.Context, driveURL string) string {
	q.mu.RLock()
	title, ok := q.titles[driveURL]
	q.mu.RUnlock()
	if ok {
		return title
	}

	v, err, _ := q.flight.Do(driveURL, func() (interface{}, error) {
		info, err := q.drives.GetInfo(ctx, driveURL)
		if err != nil {
			return "", err
		}
		q.mu.Lock()
		q.titles[driveURL] = info.Title
		q.mu.Unlock()
		return info.Title, nil
	})
	if err != nil {
		q.logger.Debug("drive title lookup failed", zap.String("drive", driveURL), zap.Error(err))
		return ""
	}
	return v.(string)
}

const urlSeparator = " › "

// FancyURL renders a URL as "host › seg › seg" with drive keys shortened.
func FancyURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return joinURLParts(hyper.ToNiceDomain(u.Hostname()), u)
}

// VeryFancyURL is FancyURL with hyper hosts replaced by their drive title.
func (q *Querier) VeryFancyURL(ctx context.Context, raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	domain := ""
	if u.Scheme == "hyper" {
		domain = q.DriveTitle(ctx, "hyper://"+u.Host+"/")
	}
	if domain == "" {
		domain = hyper.ToNiceDomain(u.Hostname())
	}
	return joinURLParts(domain, u)
}

func joinURLParts(domain string, u *url.URL) string {
	parts := []string{domain}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, urlSeparator)
}
