// Package index is the local sqlite store behind the hyper data API. It holds
// known sites, drive files and indexed records.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/matheuskafuri/hyperdesk/internal/hyper"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

var _ hyper.API = (*Index)(nil)

type Index struct {
	readDB  *sql.DB
	writeDB *sql.DB
}

func Open(dbPath string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	// The schema has to exist before a read-only handle can see it.
	idx := &Index{writeDB: writeDB}
	if err := idx.init(); err != nil {
		writeDB.Close()
		return nil, err
	}

	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	idx.readDB = readDB
	return idx, nil
}

func (x *Index) init() error {
	_, err := x.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS sites (
			origin      TEXT PRIMARY KEY,
			url         TEXT NOT NULL,
			title       TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			writable    INTEGER NOT NULL DEFAULT 0,
			updated_at  DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS files (
			url      TEXT PRIMARY KEY,
			drive    TEXT NOT NULL,
			path     TEXT NOT NULL,
			ctime    DATETIME NOT NULL,
			mtime    DATETIME NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			content  TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_files_drive ON files(drive);
		CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
		CREATE INDEX IF NOT EXISTS idx_files_ctime ON files(ctime DESC);

		CREATE TABLE IF NOT EXISTS records (
			url        TEXT PRIMARY KEY,
			idx        TEXT NOT NULL,
			site_url   TEXT NOT NULL,
			site_title TEXT NOT NULL DEFAULT '',
			href       TEXT NOT NULL DEFAULT '',
			title      TEXT NOT NULL DEFAULT '',
			value      TEXT NOT NULL DEFAULT '',
			ctime      DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_records_idx ON records(idx);
		CREATE INDEX IF NOT EXISTS idx_records_href ON records(href);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (x *Index) Close() error {
	var errs []error
	if x.readDB != nil {
		errs = append(errs, x.readDB.Close())
	}
	if x.writeDB != nil {
		errs = append(errs, x.writeDB.Close())
	}
	return errors.Join(errs...)
}

func (x *Index) NeedsRefresh(interval time.Duration) bool {
	value, err := x.getMeta("last_sync")
	if err != nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return true
	}
	return time.Since(t) > interval
}

func (x *Index) SetLastRefresh() error {
	return x.setMeta("last_sync", time.Now().Format(time.RFC3339))
}

func (x *Index) getMeta(key string) (string, error) {
	var value string
	err := x.readDB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	return value, err
}

func (x *Index) setMeta(key, value string) error {
	_, err := x.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// Prune deletes files and records on read-only drives that were created more
// than retention ago. Content on writable drives is never pruned.
func (x *Index) Prune(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)

	tx, err := x.writeDB.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		DELETE FROM files
		WHERE ctime < ?
		AND drive NOT IN (SELECT url FROM sites WHERE writable = 1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning files: %w", err)
	}
	files, _ := res.RowsAffected()

	res, err = tx.Exec(`
		DELETE FROM records
		WHERE ctime < ?
		AND idx != ?
		AND site_url NOT IN (SELECT url FROM sites WHERE writable = 1)
	`, cutoff, subscriptionsIndex)
	if err != nil {
		return 0, fmt.Errorf("pruning records: %w", err)
	}
	records, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if _, err := x.writeDB.Exec("VACUUM"); err != nil {
		return files + records, fmt.Errorf("vacuum: %w", err)
	}
	return files + records, nil
}

// Stats reports the number of sites and files and the size of the database file.
type Stats struct {
	Sites   int
	Files   int
	Records int
	Size    int64
}

func (x *Index) Stats(dbPath string) (Stats, error) {
	var s Stats
	row := x.readDB.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM sites),
			(SELECT COUNT(*) FROM files),
			(SELECT COUNT(*) FROM records)
	`)
	if err := row.Scan(&s.Sites, &s.Files, &s.Records); err != nil {
		return s, fmt.Errorf("counting rows: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return s, fmt.Errorf("stat %s: %w", dbPath, err)
	}
	s.Size = info.Size()
	return s, nil
}
