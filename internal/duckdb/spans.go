package duckdb

import (
	"context"
	"fmt"
	"strings"

	"github.com/inodb/vcfstream/internal/region"
)

// Span is the reference interval covered by one gVCF variant.
type Span struct {
	Chrom string
	Start uint32
	End   uint32
}

// SpanWriter appends spans to the spans table.
type SpanWriter struct {
	*tableWriter
	source string
}

// NewSpanWriter opens an appender on the spans table.
func (s *Store) NewSpanWriter(ctx context.Context, source string) (*SpanWriter, error) {
	tw, err := s.newTableWriter(ctx, TableSpans)
	if err != nil {
		return nil, err
	}
	return &SpanWriter{tableWriter: tw, source: source}, nil
}

// Write appends one span.
func (w *SpanWriter) Write(sp Span) error {
	return w.appendRow(w.source, sp.Chrom, int64(sp.Start), int64(sp.End))
}

// RegionWriter appends merged regions to the regions table.
type RegionWriter struct {
	*tableWriter
	source string
}

// NewRegionWriter opens an appender on the regions table.
func (s *Store) NewRegionWriter(ctx context.Context, source string) (*RegionWriter, error) {
	tw, err := s.newTableWriter(ctx, TableRegions)
	if err != nil {
		return nil, err
	}
	return &RegionWriter{tableWriter: tw, source: source}, nil
}

// Write appends one region.
func (w *RegionWriter) Write(r region.Region) error {
	return w.appendRow(w.source, r.Chrom, int64(r.Start), int64(r.End), int32(r.NumVariants))
}

// WriteSpans batch-inserts spans.
func (s *Store) WriteSpans(source string, spans []Span) error {
	if len(spans) == 0 {
		return nil
	}
	w, err := s.NewSpanWriter(context.Background(), source)
	if err != nil {
		return err
	}
	for _, sp := range spans {
		if err := w.Write(sp); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// WriteRegions batch-inserts regions.
func (s *Store) WriteRegions(source string, regions []region.Region) error {
	if len(regions) == 0 {
		return nil
	}
	w, err := s.NewRegionWriter(context.Background(), source)
	if err != nil {
		return err
	}
	for _, r := range regions {
		if err := w.Write(r); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// SpansByChrom returns the stored spans of a chromosome ordered by start.
func (s *Store) SpansByChrom(chrom string) ([]Span, error) {
	rows, err := s.db.Query(`SELECT chrom, start_pos, end_pos FROM spans
		WHERE chrom=? ORDER BY start_pos, end_pos`, chrom)
	if err != nil {
		return nil, fmt.Errorf("query spans: %w", err)
	}
	defer rows.Close()

	var spans []Span
	for rows.Next() {
		var sp Span
		var start, end int64
		if err := rows.Scan(&sp.Chrom, &start, &end); err != nil {
			return nil, fmt.Errorf("scan span: %w", err)
		}
		sp.Start, sp.End = uint32(start), uint32(end)
		spans = append(spans, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spans: %w", err)
	}
	return spans, nil
}

// ExportParquet writes the rows of table to a Parquet file at path. When
// source is non-empty only that source's rows are exported. The source
// column is left out of the file.
func (s *Store) ExportParquet(ctx context.Context, table, source, path string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	query := "SELECT * EXCLUDE (source) FROM " + table
	if source != "" {
		query += " WHERE source = " + quoteLiteral(source)
	}
	stmt := fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET)", query, quoteLiteral(path))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("export %s to parquet: %w", table, err)
	}
	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
