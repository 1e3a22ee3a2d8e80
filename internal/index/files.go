package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
)

// File is a drive file as stored in the index.
type File struct {
	Drive    string
	Path     string
	Ctime    time.Time
	Mtime    time.Time
	Metadata map[string]string
	Content  string
}

// URL is the hyper URL of the file.
func (f File) URL() string {
	return strings.TrimSuffix(driveURL(f.Drive), "/") + f.Path
}

func driveURL(raw string) string {
	if o := hyper.Origin(raw); o != "" {
		return o + "/"
	}
	return raw
}

func (x *Index) PutFiles(files []File) error {
	tx, err := x.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO files (url, drive, path, ctime, mtime, metadata, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			mtime = excluded.mtime,
			metadata = excluded.metadata,
			content = excluded.content
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range files {
		if !strings.HasPrefix(f.Path, "/") {
			return fmt.Errorf("file path %q must be absolute", f.Path)
		}
		meta := f.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", f.URL(), err)
		}
		mtime := f.Mtime
		if mtime.IsZero() {
			mtime = f.Ctime
		}
		if _, err := stmt.Exec(f.URL(), driveURL(f.Drive), f.Path, f.Ctime, mtime, string(metaJSON), f.Content); err != nil {
			return fmt.Errorf("storing file %s: %w", f.URL(), err)
		}
	}
	return tx.Commit()
}

func (x *Index) ReadFile(ctx context.Context, rawURL string) (string, error) {
	var content string
	err := x.readDB.QueryRowContext(ctx, "SELECT content FROM files WHERE url = ?", rawURL).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("file %s: %w", rawURL, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return content, nil
}

// Query returns files matching any of q.Paths on any of q.Drives. Globs are
// matched per path segment, so "/blog/*.md" does not match "/blog/a/b.md".
func (x *Index) Query(ctx context.Context, q hyper.FileQuery) ([]hyper.Candidate, error) {
	var (
		where []string
		args  []interface{}
	)

	if len(q.Drives) > 0 {
		placeholders := make([]string, len(q.Drives))
		for i, d := range q.Drives {
			placeholders[i] = "?"
			args = append(args, driveURL(d))
		}
		where = append(where, "drive IN ("+strings.Join(placeholders, ",")+")") //nolint:gosec
	}

	if len(q.Paths) > 0 {
		var prefixes []string
		for _, p := range q.Paths {
			prefixes = append(prefixes, "path LIKE ?")
			args = append(args, globPrefix(p)+"%")
		}
		where = append(where, "("+strings.Join(prefixes, " OR ")+")")
	}

	query := "SELECT url, drive, path, ctime, mtime, metadata FROM files"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := x.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var out []hyper.Candidate
	for rows.Next() {
		var (
			c        hyper.Candidate
			metaJSON string
		)
		if err := rows.Scan(&c.URL, &c.Drive, &c.Path, &c.Ctime, &c.Mtime, &metaJSON); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		if !matchAny(q.Paths, c.Path) {
			continue
		}
		if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata for %s: %w", c.URL, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortCandidates(out, q.Sort, q.Reverse)

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// globPrefix is the literal part of a glob before its first meta character.
func globPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?[\\"); i >= 0 {
		pattern = pattern[:i]
	}
	// '%' and '_' left in the prefix still act as LIKE wildcards; matchAny
	// discards the extra rows.
	return pattern
}

func matchAny(patterns []string, p string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		if ok, _ := path.Match(pat, p); ok {
			return true
		}
	}
	return false
}

func sortCandidates(cs []hyper.Candidate, by hyper.Sort, reverse bool) {
	less := func(a, b hyper.Candidate) bool { return a.Ctime.Before(b.Ctime) }
	switch by {
	case hyper.SortMtime:
		less = func(a, b hyper.Candidate) bool { return a.Mtime.Before(b.Mtime) }
	case hyper.SortName:
		less = func(a, b hyper.Candidate) bool { return path.Base(a.Path) < path.Base(b.Path) }
	}
	sort.SliceStable(cs, func(i, j int) bool {
		if reverse {
			return less(cs[j], cs[i])
		}
		return less(cs[i], cs[j])
	})
}
