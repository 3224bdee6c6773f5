package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// tableWriter streams rows into one table through the DuckDB Appender API.
// Rows become visible after Close.
type tableWriter struct {
	table    string
	conn     *sql.Conn
	appender *goduckdb.Appender
	rows     int64
}

func (s *Store) newTableWriter(ctx context.Context, table string) (*tableWriter, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", table)
		return err
	}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create appender: %w", err)
	}

	return &tableWriter{table: table, conn: conn, appender: appender}, nil
}

func (w *tableWriter) appendRow(args ...driver.Value) error {
	if err := w.appender.AppendRow(args...); err != nil {
		return fmt.Errorf("append %s row: %w", w.table, err)
	}
	w.rows++
	return nil
}

// Rows returns the number of rows appended so far.
func (w *tableWriter) Rows() int64 {
	return w.rows
}

// Close flushes pending rows and releases the connection.
func (w *tableWriter) Close() error {
	err := w.appender.Close()
	if cerr := w.conn.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("close %s appender: %w", w.table, err)
	}
	return nil
}
