// Package duckdb stores decoded VCF records, gVCF spans and merged regions in
// DuckDB tables and exports them to Parquet.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Table names.
const (
	TableVariants = "variants"
	TableSpans    = "spans"
	TableRegions  = "regions"
	tableSources  = "sources"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS variants (
		source VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		alleles VARCHAR[],
		qual FLOAT,
		ploidy INTEGER,
		genotypes INTEGER[]
	)`,
	`CREATE TABLE IF NOT EXISTS spans (
		source VARCHAR,
		chrom VARCHAR,
		start_pos BIGINT,
		end_pos BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS regions (
		source VARCHAR,
		chrom VARCHAR,
		start_pos BIGINT,
		end_pos BIGINT,
		num_variants INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS sources (
		path VARCHAR,
		target VARCHAR,
		size BIGINT,
		mod_time VARCHAR,
		row_count BIGINT,
		loaded_at TIMESTAMP,
		PRIMARY KEY (path, target)
	)`,
}

// Store manages a DuckDB connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func checkTable(table string) error {
	switch table {
	case TableVariants, TableSpans, TableRegions:
		return nil
	}
	return fmt.Errorf("unknown table %q", table)
}

// Count returns the number of rows in table, restricted to one source when
// source is non-empty.
func (s *Store) Count(table, source string) (int64, error) {
	if err := checkTable(table); err != nil {
		return 0, err
	}
	var n int64
	var err error
	if source == "" {
		err = s.db.QueryRow("SELECT count(*) FROM " + table).Scan(&n)
	} else {
		err = s.db.QueryRow("SELECT count(*) FROM "+table+" WHERE source=?", source).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// DeleteSource removes the rows a source contributed to table.
func (s *Store) DeleteSource(table, source string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if _, err := s.db.Exec("DELETE FROM "+table+" WHERE source=?", source); err != nil {
		return fmt.Errorf("delete %s rows: %w", table, err)
	}
	if _, err := s.db.Exec("DELETE FROM sources WHERE path=? AND target=?", source, table); err != nil {
		return fmt.Errorf("delete source entry: %w", err)
	}
	return nil
}
