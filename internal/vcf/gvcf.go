package vcf

import (
	"strconv"
	"strings"
)

// NonRefAllele is the symbolic allele gVCF uses for "any unobserved allele".
const NonRefAllele = "<NON_REF>"

// gVCF lines only need CHROM POS ID REF ALT.
const gvcfMinFields = 5

// GVCFRecord is a decoded gVCF line that calls at least one real alternate.
type GVCFRecord struct {
	Chrom   string
	Pos     uint32
	Alleles []string // Reference allele and alternates, NonRefAllele removed
}

// DecodeGVCFRecord decodes a gVCF line. A line whose ALT is exactly
// NonRefAllele returns ErrInvariantLine.
func DecodeGVCFRecord(line string) (*GVCFRecord, error) {
	fields := strings.SplitN(trimEOL(line), "\t", 6)
	if len(fields) < gvcfMinFields {
		return nil, parseError(ErrGVCFNotEnoughFields, "")
	}

	alt := fields[altColumn]
	if alt == NonRefAllele {
		return nil, ErrInvariantLine
	}

	pos, err := strconv.ParseUint(fields[posColumn], 10, 32)
	if err != nil {
		return nil, parseError(ErrInvalidPosition, fields[posColumn])
	}

	alleles := []string{fields[refColumn]}
	if alt != missingValue {
		for a := range strings.SplitSeq(alt, ",") {
			if a != NonRefAllele {
				alleles = append(alleles, a)
			}
		}
	}

	return &GVCFRecord{
		Chrom:   fields[chromColumn],
		Pos:     uint32(pos),
		Alleles: alleles,
	}, nil
}

// Span returns the inclusive reference interval covered by the record:
// [pos, pos] when every allele is a single base, otherwise sized by the
// longest allele.
func (r *GVCFRecord) Span() (start, end uint32, err error) {
	return span(r.Pos, r.Alleles)
}

// Width returns end-start+1 of the record's span.
func (r *GVCFRecord) Width() (uint32, error) {
	start, end, err := r.Span()
	if err != nil {
		return 0, err
	}
	return end - start + 1, nil
}
