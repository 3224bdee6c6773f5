package vcf

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dataLine builds a VCF data line with the given ALT, QUAL, FORMAT and samples.
func dataLine(alt, qual, format string, samples ...string) string {
	cols := []string{"20", "14370", "rs6054257", "G", alt, qual, "PASS", "NS=3", format}
	return strings.Join(append(cols, samples...), "\t") + "\n"
}

func TestReferenceGenotype(t *testing.T) {
	assert.Equal(t, "0", ReferenceGenotype(1))
	assert.Equal(t, "0/0", ReferenceGenotype(2))
	assert.Equal(t, "0/0/0/0", ReferenceGenotype(4))
	assert.Equal(t, "", ReferenceGenotype(0))
}

func TestDecodeRecord_GenotypeCells(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   []int32
	}{
		{"phased het with extra fields", "1|2:48:1:51,51", []int32{1, 2}},
		{"missing genotype", ".", []int32{-1, -1}},
		{"missing genotype with fields", ".:35:4", []int32{-1, -1}},
		{"reference shortcut", "0/0", []int32{0, 0}},
		{"reference shortcut with fields", "0/0:41:3", []int32{0, 0}},
		{"phased reference", "0|0:54:7", []int32{0, 0}},
		{"mixed separators", "0|1", []int32{0, 1}},
		{"missing allele in token", ".|0", []int32{-1, 0}},
		{"large allele index", "5/6000", []int32{5, 6000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeRecord(1, 2, "0/0", dataLine("A", "29", "GT:GQ:DP:HQ", tt.sample))
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Genotypes)
		})
	}
}

func TestDecodeRecord_Fields(t *testing.T) {
	rec, err := DecodeRecord(3, 2, "0/0",
		dataLine("G,GTCT", "50", "GT:GQ:DP", "0/1:35:4", "0/2:17:2", "1/1:40:3"))
	require.NoError(t, err)

	assert.Equal(t, "20", rec.Chrom)
	assert.Equal(t, uint32(14370), rec.Pos)
	assert.Equal(t, []string{"G", "G", "GTCT"}, rec.Alleles)
	assert.Equal(t, float32(50), rec.Qual)
	assert.Equal(t, []int32{0, 1, 0, 2, 1, 1}, rec.Genotypes)
	assert.Equal(t, 3, rec.NumSamples())
	assert.Equal(t, []int32{0, 2}, rec.Genotype(1))
}

func TestDecodeRecord_MissingAltAndQual(t *testing.T) {
	rec, err := DecodeRecord(1, 2, "0/0", dataLine(".", ".", "GT", "0/0"))
	require.NoError(t, err)
	assert.Equal(t, []string{"G"}, rec.Alleles)
	assert.True(t, math.IsNaN(float64(rec.Qual)))
	assert.False(t, rec.HasQual())
}

func TestDecodeRecord_GTNotFirst(t *testing.T) {
	rec, err := DecodeRecord(2, 2, "0/0", dataLine("A", "10", "GQ:GT", "30:0/0", "12:1/1"))
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 0, 1, 1}, rec.Genotypes)
}

func TestDecodeRecord_ReferencePrefixNeedsColonBoundary(t *testing.T) {
	// "0/0/1" starts with "0/0" but is a triploid call, not a reference call.
	_, err := DecodeRecord(1, 2, "0/0", dataLine("A", "10", "GT", "0/0/1"))
	var pe *PloidyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Observed)
	assert.Equal(t, 2, pe.Given)
	assert.ErrorIs(t, err, ErrDifferentObservedPloidy)
}

func TestDecodeRecord_Errors(t *testing.T) {
	tests := []struct {
		name    string
		samples int
		line    string
		want    error
		value   string
	}{
		{
			name:    "too few columns",
			samples: 0,
			line:    "20\t14370\t.\tG\tA\t29\tPASS\tNS=3\n",
			want:    ErrNotEnoughColumns,
		},
		{
			name:    "invalid quality",
			samples: 1,
			line:    dataLine("A", "high", "GT", "0/1"),
			want:    ErrInvalidQuality,
			value:   "high",
		},
		{
			name:    "no GT in FORMAT",
			samples: 1,
			line:    dataLine("A", "29", "GQ:DP", "12:3"),
			want:    ErrMissingGTFieldInFormat,
		},
		{
			name:    "sample without GT subfield",
			samples: 1,
			line:    dataLine("A", "29", "GQ:GT", "12"),
			want:    ErrMissingGTField,
			value:   "12",
		},
		{
			name:    "non numeric allele",
			samples: 1,
			line:    dataLine("A", "29", "GT", "0/x"),
			want:    ErrInvalidAllele,
			value:   "x",
		},
		{
			name:    "negative allele",
			samples: 1,
			line:    dataLine("A", "29", "GT", "-1/1"),
			want:    ErrInvalidAllele,
			value:   "-1",
		},
		{
			name:    "inconsistent ploidies",
			samples: 2,
			line:    dataLine("A", "29", "GT", "0|1", "1/2/3"),
			want:    ErrInconsistentPloidies,
		},
		{
			name:    "observed ploidy differs",
			samples: 2,
			line:    dataLine("A", "29", "GT", "0/0", "1/2/3"),
			want:    ErrDifferentObservedPloidy,
		},
		{
			name:    "sample count mismatch",
			samples: 3,
			line:    dataLine("A", "29", "GT", "0/1"),
			want:    ErrSampleCountMismatch,
		},
		{
			name:    "invalid position",
			samples: 1,
			line:    strings.Replace(dataLine("A", "29", "GT", "0/1"), "14370", "14x70", 1),
			want:    ErrInvalidPosition,
			value:   "14x70",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeRecord(tt.samples, 2, "0/0", tt.line)
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			if tt.value != "" {
				assert.Equal(t, tt.value, pe.Value)
			}
		})
	}
}

func TestDecodeRecord_MissingFormatColumn(t *testing.T) {
	_, err := gtIndex([]string{"20", "1", ".", "A", "C", ".", ".", "."})
	assert.ErrorIs(t, err, ErrFormatColumnNotFound)
}

func TestFindPloidy(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{"diploid", dataLine("A", "29", "GT", "0/1"), 2},
		{"haploid", dataLine("A", "29", "GT", "1"), 1},
		{"skips missing samples", dataLine("A", "29", "GT:DP", ".:3", ".", "1|0|1:4"), 3},
		{"GT not first", dataLine("A", "29", "DP:GT", "3:.", "4:0/1"), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := findPloidy(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindPloidy_AllMissing(t *testing.T) {
	_, err := findPloidy(dataLine("A", "29", "GT", ".", ".:1"))
	assert.ErrorIs(t, err, ErrPloidyNotFound)
}

func TestSubfield(t *testing.T) {
	v, ok := subfield("1|2:48:1:51,51", 0)
	assert.True(t, ok)
	assert.Equal(t, "1|2", v)

	v, ok = subfield("1|2:48:1:51,51", 3)
	assert.True(t, ok)
	assert.Equal(t, "51,51", v)

	_, ok = subfield("1|2:48", 2)
	assert.False(t, ok)
}

func TestDecodeAlleles_ExtraTokensStayInStride(t *testing.T) {
	genotypes := make([]int32, 4)
	n, err := decodeAlleles("1/2/3", genotypes[0:2])
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int32{1, 2, 0, 0}, genotypes)
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Line: 42, Err: ErrInvalidAllele, Value: "x"}
	assert.Equal(t, `vcf parse error at line 42: invalid allele "x"`, err.Error())

	err = &ParseError{Err: ErrNotEnoughColumns}
	assert.Equal(t, "vcf parse error: insufficient columns in VCF line", err.Error())

	err = &ParseError{Line: 7, Err: &PloidyError{Observed: 3, Given: 2}}
	assert.Equal(t, "vcf parse error at line 7: observed (3) and given (2) ploidies are different", err.Error())
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&ParseError{Line: 1, Err: ErrBrokenHeader}))
	assert.True(t, IsFatal(&ParseError{Line: 2, Err: ErrMalformedHeader}))
	assert.True(t, IsFatal(&ParseError{Line: 2, Err: ErrNotEnoughColumnsInChromLine}))
	assert.True(t, IsFatal(fmt.Errorf("%w at line 3: %w", ErrRead, errors.New("boom"))))
	assert.False(t, IsFatal(&ParseError{Line: 4, Err: ErrInvalidAllele}))
	assert.False(t, IsFatal(ErrInvariantLine))
}
