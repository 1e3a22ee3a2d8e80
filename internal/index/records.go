package index

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

// PutRecord stores a record. Its site title is looked up from the sites table
// when not given.
func (x *Index) PutRecord(ctx context.Context, r hyper.Record) error {
	if r.Index == "" || r.Site.URL == "" {
		return fmt.Errorf("record needs an index and a site")
	}
	site := driveURL(r.Site.URL)
	if r.URL == "" {
		r.URL = strings.TrimSuffix(site, "/") + recordDir(r.Index) + recordID(r.Index, r.Href, r.Value) + ".goto"
	}
	if r.Ctime.IsZero() {
		r.Ctime = time.Now()
	}
	if r.Site.Title == "" {
		if s, err := x.GetSite(ctx, site); err == nil {
			r.Site.Title = s.Title
		}
	}
	_, err := x.writeDB.ExecContext(ctx, `
		INSERT INTO records (url, idx, site_url, site_title, href, title, value, ctime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			site_title = excluded.site_title,
			title = excluded.title,
			value = excluded.value
	`, r.URL, r.Index, site, r.Site.Title, r.Href, r.Title, r.Value, r.Ctime)
	if err != nil {
		return fmt.Errorf("storing record %s: %w", r.URL, err)
	}
	return nil
}

func (x *Index) ListRecords(ctx context.Context, filter hyper.RecordFilter, limit int) ([]hyper.Record, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Index != "" {
		where = append(where, "idx = ?")
		args = append(args, filter.Index)
	}
	if filter.Href != "" {
		where = append(where, "href = ?")
		args = append(args, filter.Href)
	}

	query := "SELECT url, idx, site_url, site_title, href, title, value, ctime FROM records"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ctime DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := x.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var out []hyper.Record
	for rows.Next() {
		var r hyper.Record
		if err := rows.Scan(&r.URL, &r.Index, &r.Site.URL, &r.Site.Title, &r.Href, &r.Title, &r.Value, &r.Ctime); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Add records that sub.Site subscribes to sub.Href.
func (x *Index) Add(ctx context.Context, sub hyper.Subscription) error {
	return x.PutRecord(ctx, hyper.Record{
		Index: hyper.SubscriptionsIndex,
		Site:  hyper.SiteRef{URL: sub.Site},
		Href:  sub.Href,
		Title: sub.Title,
	})
}

// Remove deletes site's subscriptions to any URL on the origin of href.
func (x *Index) Remove(ctx context.Context, href, site string) error {
	origin := hyper.Origin(href)
	if origin == "" {
		return fmt.Errorf("invalid subscription url %q", href)
	}
	_, err := x.writeDB.ExecContext(ctx, `
		DELETE FROM records
		WHERE idx = ? AND site_url = ? AND (href = ? OR href LIKE ?)
	`, hyper.SubscriptionsIndex, driveURL(site), origin, origin+"/%")
	if err != nil {
		return fmt.Errorf("removing subscription to %s: %w", href, err)
	}
	return nil
}

func recordDir(index string) string {
	switch index {
	case hyper.SubscriptionsIndex:
		return "/subscriptions/"
	case hyper.AnnotationsIndex:
		return "/annotations/"
	}
	return "/records/"
}

func recordID(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return fmt.Sprintf("%x", h[:8])
}
