package vcf

import (
	"math"
	"strconv"
	"strings"
)

// Column layout of a VCF data line.
const (
	minColumns = 9

	chromColumn       = 0
	posColumn         = 1
	refColumn         = 3
	altColumn         = 4
	qualColumn        = 5
	formatColumn      = 8
	firstSampleColumn = 9
)

const (
	missingValue = "."
	gtKey        = "GT"
)

// ReferenceGenotype returns the homozygous-reference genotype string for
// ploidy, e.g. "0/0" for diploids.
func ReferenceGenotype(ploidy int) string {
	if ploidy <= 0 {
		return ""
	}
	return strings.Repeat("0/", ploidy-1) + "0"
}

// DecodeRecord decodes one data line of a file with numSamples samples and
// the given ploidy. referenceGT must be ReferenceGenotype(ploidy).
func DecodeRecord(numSamples, ploidy int, referenceGT, line string) (*Record, error) {
	cols := strings.Split(trimEOL(line), "\t")
	if len(cols) < minColumns {
		return nil, parseError(ErrNotEnoughColumns, "")
	}

	alleles := splitAlleles(cols[refColumn], cols[altColumn])

	qual, err := parseQual(cols[qualColumn])
	if err != nil {
		return nil, err
	}

	gtIdx, err := gtIndex(cols)
	if err != nil {
		return nil, err
	}

	samples := cols[firstSampleColumn:]
	if len(samples) != numSamples {
		return nil, parseError(ErrSampleCountMismatch, strconv.Itoa(len(samples)))
	}

	genotypes := make([]int32, numSamples*ploidy)
	observed := -1
	for s, field := range samples {
		if gtIdx == 0 && isReferenceShortcut(field, referenceGT) {
			continue
		}
		gt, ok := subfield(field, gtIdx)
		if !ok {
			return nil, parseError(ErrMissingGTField, field)
		}
		slots := genotypes[s*ploidy : (s+1)*ploidy]
		if gt == missingValue {
			for i := range slots {
				slots[i] = MissingAllele
			}
			continue
		}

		n, err := decodeAlleles(gt, slots)
		if err != nil {
			return nil, err
		}
		if observed >= 0 && observed != n {
			return nil, parseError(ErrInconsistentPloidies, gt)
		}
		observed = n
	}
	if observed >= 0 && observed != ploidy {
		return nil, &ParseError{Err: &PloidyError{Observed: observed, Given: ploidy}}
	}

	pos, err := strconv.ParseUint(cols[posColumn], 10, 32)
	if err != nil {
		return nil, parseError(ErrInvalidPosition, cols[posColumn])
	}

	return &Record{
		Chrom:     cols[chromColumn],
		Pos:       uint32(pos),
		Alleles:   alleles,
		Qual:      qual,
		Genotypes: genotypes,
		Ploidy:    ploidy,
	}, nil
}

// decodeAlleles writes the allele indices of gt into slots and returns how
// many allele tokens gt holds. Both '/' and '|' separate alleles. Tokens past
// len(slots) are counted but not stored.
func decodeAlleles(gt string, slots []int32) (int, error) {
	n := 0
	start := 0
	for i := 0; i <= len(gt); i++ {
		if i < len(gt) && gt[i] != '/' && gt[i] != '|' {
			continue
		}
		tok := gt[start:i]
		start = i + 1
		if tok != "0" {
			allele, err := parseAllele(tok)
			if err != nil {
				return n, err
			}
			if n < len(slots) {
				slots[n] = allele
			}
		}
		n++
	}
	return n, nil
}

func parseAllele(tok string) (int32, error) {
	if tok == missingValue {
		return MissingAllele, nil
	}
	v, err := strconv.ParseUint(tok, 10, 31)
	if err != nil {
		return 0, parseError(ErrInvalidAllele, tok)
	}
	return int32(v), nil
}

// findPloidy counts the alleles of the first sample whose GT is not missing.
func findPloidy(line string) (int, error) {
	cols := strings.Split(trimEOL(line), "\t")
	gtIdx, err := gtIndex(cols)
	if err != nil {
		return 0, err
	}
	for _, field := range cols[firstSampleColumn:] {
		gt, ok := subfield(field, gtIdx)
		if !ok {
			return 0, parseError(ErrMissingGTField, field)
		}
		if gt == missingValue {
			continue
		}
		return strings.Count(gt, "/") + strings.Count(gt, "|") + 1, nil
	}
	return 0, parseError(ErrPloidyNotFound, "")
}

func gtIndex(cols []string) (int, error) {
	if len(cols) <= formatColumn {
		return 0, parseError(ErrFormatColumnNotFound, "")
	}
	format := cols[formatColumn]
	for i := 0; ; i++ {
		key, rest, found := strings.Cut(format, ":")
		if key == gtKey {
			return i, nil
		}
		if !found {
			return 0, parseError(ErrMissingGTFieldInFormat, cols[formatColumn])
		}
		format = rest
	}
}

// isReferenceShortcut reports whether a sample field whose first subfield is
// GT starts with the all-reference genotype followed by ':' or the end of the
// field.
func isReferenceShortcut(field, referenceGT string) bool {
	if !strings.HasPrefix(field, referenceGT) {
		return false
	}
	return len(field) == len(referenceGT) || field[len(referenceGT)] == ':'
}

// subfield returns the idx-th colon-separated value of field.
func subfield(field string, idx int) (string, bool) {
	for ; idx > 0; idx-- {
		i := strings.IndexByte(field, ':')
		if i < 0 {
			return "", false
		}
		field = field[i+1:]
	}
	if i := strings.IndexByte(field, ':'); i >= 0 {
		return field[:i], true
	}
	return field, true
}

func splitAlleles(ref, alt string) []string {
	if alt == missingValue {
		return []string{ref}
	}
	alts := strings.Split(alt, ",")
	alleles := make([]string, 0, len(alts)+1)
	alleles = append(alleles, ref)
	return append(alleles, alts...)
}

func parseQual(s string) (float32, error) {
	if s == missingValue {
		return float32(math.NaN()), nil
	}
	q, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, parseError(ErrInvalidQuality, s)
	}
	return float32(q), nil
}

func trimEOL(line string) string {
	return strings.TrimRight(line, "\r\n")
}
