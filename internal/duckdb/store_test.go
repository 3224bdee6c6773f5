package duckdb

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vcfstream/internal/region"
	"github.com/inodb/vcfstream/internal/vcf"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// --- Variant tests ---

func TestOpenClose(t *testing.T) {
	s := openInMemory(t)
	assert.NotNil(t, s.DB())
	assert.Equal(t, "", s.Path())
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.duckdb")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestWriteAndLookupRecords(t *testing.T) {
	s := openInMemory(t)

	records := []*vcf.Record{
		{
			Chrom: "20", Pos: 14370, Alleles: []string{"G", "A"}, Qual: 29,
			Genotypes: []int32{0, 0, 1, 0, 1, 1}, Ploidy: 2,
		},
		{
			Chrom: "20", Pos: 17330, Alleles: []string{"T", "A"}, Qual: float32(math.NaN()),
			Genotypes: []int32{-1, -1, 0, 1, 0, 0}, Ploidy: 2,
		},
	}
	require.NoError(t, s.WriteRecords("sample.vcf", records))

	n, err := s.Count(TableVariants, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.LookupVariants("20", 14370)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"G", "A"}, got[0].Alleles)
	assert.Equal(t, float32(29), got[0].Qual)
	assert.Equal(t, []int32{0, 0, 1, 0, 1, 1}, got[0].Genotypes)
	assert.Equal(t, 2, got[0].Ploidy)

	got, err = s.LookupVariants("20", 17330)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].HasQual())
	assert.Equal(t, []int32{-1, -1, 0, 1, 0, 0}, got[0].Genotypes)

	got, err = s.LookupVariants("20", 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteRecordsEmpty(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.WriteRecords("x", nil))

	n, err := s.Count(TableVariants, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVariantWriterStreams(t *testing.T) {
	s := openInMemory(t)

	w, err := s.NewVariantWriter(context.Background(), "a.vcf")
	require.NoError(t, err)
	for pos := uint32(1); pos <= 10; pos++ {
		require.NoError(t, w.Write(&vcf.Record{
			Chrom: "1", Pos: pos, Alleles: []string{"A", "C"}, Qual: 1,
			Genotypes: []int32{0, 1}, Ploidy: 2,
		}))
	}
	assert.Equal(t, int64(10), w.Rows())
	require.NoError(t, w.Close())

	n, err := s.Count(TableVariants, "a.vcf")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	n, err = s.Count(TableVariants, "b.vcf")
	require.NoError(t, err)
	assert.Zero(t, n)
}

// --- Span and region tests ---

func TestWriteSpansAndRegions(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteSpans("g.vcf", []Span{
		{Chrom: "20", Start: 17333, End: 17336},
		{Chrom: "20", Start: 17330, End: 17330},
		{Chrom: "21", Start: 5, End: 7},
	}))
	require.NoError(t, s.WriteRegions("g.vcf", []region.Region{
		{Chrom: "20", Start: 17330, End: 17337, NumVariants: 4},
	}))

	spans, err := s.SpansByChrom("20")
	require.NoError(t, err)
	assert.Equal(t, []Span{
		{Chrom: "20", Start: 17330, End: 17330},
		{Chrom: "20", Start: 17333, End: 17336},
	}, spans)

	n, err := s.Count(TableRegions, "g.vcf")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDeleteSource(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteSpans("a", []Span{{Chrom: "1", Start: 1, End: 1}}))
	require.NoError(t, s.WriteSpans("b", []Span{{Chrom: "1", Start: 2, End: 2}}))
	require.NoError(t, s.DeleteSource(TableSpans, "a"))

	n, err := s.Count(TableSpans, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUnknownTable(t *testing.T) {
	s := openInMemory(t)

	_, err := s.Count("sources; DROP TABLE spans", "")
	assert.Error(t, err)
	assert.Error(t, s.DeleteSource("nope", "x"))
	assert.Error(t, s.ExportParquet(context.Background(), "nope", "", "out.parquet"))
}

func TestExportParquet(t *testing.T) {
	s := openInMemory(t)

	require.NoError(t, s.WriteSpans("a", []Span{
		{Chrom: "1", Start: 1, End: 1},
		{Chrom: "1", Start: 5, End: 9},
	}))
	require.NoError(t, s.WriteSpans("b", []Span{{Chrom: "2", Start: 3, End: 3}}))

	dir := t.TempDir()
	all := filepath.Join(dir, "all.parquet")
	onlyA := filepath.Join(dir, "it's a.parquet")

	require.NoError(t, s.ExportParquet(context.Background(), TableSpans, "", all))
	require.NoError(t, s.ExportParquet(context.Background(), TableSpans, "a", onlyA))

	var n int64
	require.NoError(t, s.DB().QueryRow("SELECT count(*) FROM read_parquet(?)", all).Scan(&n))
	assert.Equal(t, int64(3), n)
	require.NoError(t, s.DB().QueryRow("SELECT count(*) FROM read_parquet(?)", onlyA).Scan(&n))
	assert.Equal(t, int64(2), n)

	var cols int64
	require.NoError(t, s.DB().QueryRow(
		"SELECT count(*) FROM (DESCRIBE SELECT * FROM read_parquet(?))", all).Scan(&cols))
	assert.Equal(t, int64(3), cols, "source column is not exported")
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'plain'", quoteLiteral("plain"))
	assert.Equal(t, "'it''s'", quoteLiteral("it's"))
}

// --- Source provenance tests ---

func TestSourceProvenance(t *testing.T) {
	s := openInMemory(t)

	now := time.Now()
	fp := FileFingerprint{Path: "/data/a.vcf.gz", Size: 1000, ModTime: now}

	// Nothing recorded yet.
	ok, err := s.SourceCurrent(fp, TableVariants)
	require.NoError(t, err)
	assert.False(t, ok)

	rows, err := s.SourceRows(fp.Path, TableVariants)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), rows)

	require.NoError(t, s.RecordSource(fp, TableVariants, 42))

	ok, err = s.SourceCurrent(fp, TableVariants)
	require.NoError(t, err)
	assert.True(t, ok)

	rows, err = s.SourceRows(fp.Path, TableVariants)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rows)

	// Different target table.
	ok, err = s.SourceCurrent(fp, TableSpans)
	require.NoError(t, err)
	assert.False(t, ok)

	// Different size → stale
	changed := fp
	changed.Size = 9999
	ok, err = s.SourceCurrent(changed, TableVariants)
	require.NoError(t, err)
	assert.False(t, ok)

	// Different modtime → stale
	changed = fp
	changed.ModTime = now.Add(time.Hour)
	ok, err = s.SourceCurrent(changed, TableVariants)
	require.NoError(t, err)
	assert.False(t, ok)

	// Re-recording replaces the entry.
	require.NoError(t, s.RecordSource(changed, TableVariants, 7))
	rows, err = s.SourceRows(fp.Path, TableVariants)
	require.NoError(t, err)
	assert.Equal(t, int64(7), rows)

	require.NoError(t, s.DeleteSource(TableVariants, fp.Path))
	rows, err = s.SourceRows(fp.Path, TableVariants)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), rows)
}

func TestStatFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.vcf")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))

	fp, err := StatFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, fp.Path)
	assert.Equal(t, int64(3), fp.Size)

	_, err = StatFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
