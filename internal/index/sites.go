package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

const subscriptionsIndex = hyper.SubscriptionsIndex

// UpsertSite stores a site keyed by its origin.
func (x *Index) UpsertSite(site hyper.Site) error {
	origin := hyper.Origin(site.URL)
	if origin == "" {
		return fmt.Errorf("invalid site url %q", site.URL)
	}
	_, err := x.writeDB.Exec(`
		INSERT INTO sites (origin, url, title, description, writable, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(origin) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			writable = excluded.writable,
			updated_at = excluded.updated_at
	`, origin, origin+"/", site.Title, site.Description, site.Writable, time.Now())
	if err != nil {
		return fmt.Errorf("upserting site %s: %w", origin, err)
	}
	return nil
}

// RemoveSite forgets a site and everything stored on its drive.
func (x *Index) RemoveSite(ctx context.Context, rawURL string) error {
	origin := hyper.Origin(rawURL)
	if origin == "" {
		return fmt.Errorf("invalid site url %q", rawURL)
	}
	tx, err := x.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []struct {
		query string
		arg   string
	}{
		{"DELETE FROM sites WHERE origin = ?", origin},
		{"DELETE FROM files WHERE drive = ?", origin + "/"},
		{"DELETE FROM records WHERE site_url = ?", origin + "/"},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, s.arg); err != nil {
			return fmt.Errorf("removing site %s: %w", origin, err)
		}
	}
	return tx.Commit()
}

func (x *Index) ListSites(ctx context.Context, filter hyper.SiteFilter, limit int) ([]hyper.Site, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		term := "%" + filter.Search + "%"
		args = append(args, term, term)
	}
	if filter.Writable != nil {
		where = append(where, "writable = ?")
		args = append(args, *filter.Writable)
	}

	query := "SELECT origin, url, title, description, writable FROM sites"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY title COLLATE NOCASE"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := x.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sites: %w", err)
	}
	defer rows.Close()

	var sites []hyper.Site
	for rows.Next() {
		var s hyper.Site
		if err := rows.Scan(&s.Origin, &s.URL, &s.Title, &s.Description, &s.Writable); err != nil {
			return nil, fmt.Errorf("scanning site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

func (x *Index) GetSite(ctx context.Context, origin string) (hyper.Site, error) {
	o := hyper.Origin(origin)
	var s hyper.Site
	err := x.readDB.QueryRowContext(ctx,
		"SELECT origin, url, title, description, writable FROM sites WHERE origin = ?", o,
	).Scan(&s.Origin, &s.URL, &s.Title, &s.Description, &s.Writable)
	if errors.Is(err, sql.ErrNoRows) {
		return s, fmt.Errorf("site %s: %w", origin, ErrNotFound)
	}
	if err != nil {
		return s, fmt.Errorf("getting site %s: %w", origin, err)
	}
	return s, nil
}

func (x *Index) GetInfo(ctx context.Context, rawURL string) (hyper.DriveInfo, error) {
	s, err := x.GetSite(ctx, rawURL)
	if err != nil {
		return hyper.DriveInfo{}, err
	}
	return hyper.DriveInfo{
		URL:         s.URL,
		Title:       s.Title,
		Description: s.Description,
		Writable:    s.Writable,
	}, nil
}
