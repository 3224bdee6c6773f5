package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func (fp FileFingerprint) modTime() string {
	return fp.ModTime.UTC().Format(time.RFC3339Nano)
}

// RecordSource remembers that the file fp was loaded into table with the
// given number of rows. An earlier entry for the same file and table is
// replaced.
func (s *Store) RecordSource(fp FileFingerprint, table string, rows int64) error {
	if err := checkTable(table); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO sources
		(path, target, size, mod_time, row_count, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		fp.Path, table, fp.Size, fp.modTime(), rows, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record source: %w", err)
	}
	return nil
}

// SourceCurrent reports whether table already holds the rows of fp, loaded
// while the file had its current size and modification time.
func (s *Store) SourceCurrent(fp FileFingerprint, table string) (bool, error) {
	var size int64
	var modTime string
	err := s.db.QueryRow(`SELECT size, mod_time FROM sources WHERE path=? AND target=?`,
		fp.Path, table).Scan(&size, &modTime)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query source: %w", err)
	}
	return size == fp.Size && modTime == fp.modTime(), nil
}

// SourceRows returns the row count recorded for a loaded source, or -1 when
// the source was never recorded.
func (s *Store) SourceRows(path, table string) (int64, error) {
	var n int64
	err := s.db.QueryRow(`SELECT row_count FROM sources WHERE path=? AND target=?`,
		path, table).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query source rows: %w", err)
	}
	return n, nil
}
