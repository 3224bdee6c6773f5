// Package output provides tab-delimited writers for decoded records, spans
// and merged regions.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vcfstream/internal/region"
	"github.com/inodb/vcfstream/internal/vcf"
)

const missing = "."

// TabWriter writes rows in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer with the given header columns.
func NewTabWriter(w io.Writer, columns ...string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// Columns returns the header columns.
func (tw *TabWriter) Columns() []string {
	return tw.columns
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	return tw.WriteRow(tw.columns...)
}

// WriteRow writes one row.
func (tw *TabWriter) WriteRow(values ...string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// RecordWriter writes VCF records with one genotype column per sample.
type RecordWriter struct {
	*TabWriter
	cells []string
}

// NewRecordWriter creates a record writer. Sample names become the genotype
// column headers.
func NewRecordWriter(w io.Writer, samples []string) *RecordWriter {
	columns := append([]string{"#CHROM", "POS", "ALLELES", "QUAL"}, samples...)
	return &RecordWriter{TabWriter: NewTabWriter(w, columns...)}
}

// Write writes a single record.
func (rw *RecordWriter) Write(rec *vcf.Record) error {
	rw.cells = append(rw.cells[:0],
		rec.Chrom,
		strconv.FormatUint(uint64(rec.Pos), 10),
		strings.Join(rec.Alleles, ","),
		FormatQual(rec),
	)
	for i := range rec.NumSamples() {
		rw.cells = append(rw.cells, FormatGenotype(rec.Genotype(i)))
	}
	return rw.WriteRow(rw.cells...)
}

// FormatQual renders the quality column, "." when missing.
func FormatQual(rec *vcf.Record) string {
	if !rec.HasQual() {
		return missing
	}
	return strconv.FormatFloat(float64(rec.Qual), 'g', -1, 32)
}

// FormatGenotype renders allele indices as "a/b", with "." for missing alleles.
func FormatGenotype(gt []int32) string {
	if len(gt) == 0 {
		return missing
	}
	var b strings.Builder
	for i, a := range gt {
		if i > 0 {
			b.WriteByte('/')
		}
		if a == vcf.MissingAllele {
			b.WriteString(missing)
		} else {
			b.WriteString(strconv.Itoa(int(a)))
		}
	}
	return b.String()
}

// SpanWriter writes variant spans.
type SpanWriter struct {
	*TabWriter
}

// NewSpanWriter creates a span writer.
func NewSpanWriter(w io.Writer) *SpanWriter {
	return &SpanWriter{NewTabWriter(w, "#CHROM", "START", "END")}
}

// Write writes a single span.
func (sw *SpanWriter) Write(chrom string, start, end uint32) error {
	return sw.WriteRow(chrom, formatUint(start), formatUint(end))
}

// RegionWriter writes merged regions.
type RegionWriter struct {
	*TabWriter
}

// NewRegionWriter creates a region writer.
func NewRegionWriter(w io.Writer) *RegionWriter {
	return &RegionWriter{NewTabWriter(w, "#CHROM", "START", "END", "WIDTH", "NUM_VARIANTS")}
}

// Write writes a single region.
func (rw *RegionWriter) Write(r region.Region) error {
	return rw.WriteRow(r.Chrom, formatUint(r.Start), formatUint(r.End),
		formatUint(r.Width()), strconv.Itoa(r.NumVariants))
}

func formatUint(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
