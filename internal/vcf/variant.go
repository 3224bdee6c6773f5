package vcf

import "math"

// MissingAllele marks an allele slot with no call.
const MissingAllele int32 = -1

// Record is a decoded VCF data line.
type Record struct {
	Chrom   string   // Chromosome name (e.g., "20", "chr20")
	Pos     uint32   // 1-based genomic position
	Alleles []string // Reference allele followed by the alternates in file order
	Qual    float32  // NaN when the QUAL column is "."

	// Genotypes is a samples x ploidy matrix in row-major order. Each cell
	// holds an allele index or MissingAllele.
	Genotypes []int32
	Ploidy    int
}

// NumSamples returns the number of samples in the genotype matrix.
func (r *Record) NumSamples() int {
	if r.Ploidy == 0 {
		return 0
	}
	return len(r.Genotypes) / r.Ploidy
}

// Genotype returns the allele slots of sample i. The slice aliases the
// record's matrix.
func (r *Record) Genotype(i int) []int32 {
	return r.Genotypes[i*r.Ploidy : (i+1)*r.Ploidy]
}

// HasQual reports whether the QUAL column carried a value.
func (r *Record) HasQual() bool {
	return !math.IsNaN(float64(r.Qual))
}

// Ref returns the reference allele.
func (r *Record) Ref() string {
	if len(r.Alleles) == 0 {
		return ""
	}
	return r.Alleles[0]
}

// Alts returns the alternate alleles.
func (r *Record) Alts() []string {
	if len(r.Alleles) < 2 {
		return nil
	}
	return r.Alleles[1:]
}

// IsSNV returns true if every allele is a single base and there is at least
// one alternate.
func (r *Record) IsSNV() bool {
	if len(r.Alleles) < 2 {
		return false
	}
	for _, a := range r.Alleles {
		if len(a) != 1 {
			return false
		}
	}
	return true
}

// IsIndel returns true if any alternate differs in length from the reference.
func (r *Record) IsIndel() bool {
	ref := r.Ref()
	for _, alt := range r.Alts() {
		if len(alt) != len(ref) {
			return true
		}
	}
	return false
}

// Span returns the inclusive reference interval covered by the record.
func (r *Record) Span() (start, end uint32, err error) {
	return span(r.Pos, r.Alleles)
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func (r *Record) NormalizeChrom() string {
	return normalizeChrom(r.Chrom)
}

func normalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}

// span sizes an interval by the longest allele: substitutions cover one
// base, indels cover pos..pos+maxLen-1.
func span(pos uint32, alleles []string) (uint32, uint32, error) {
	if len(alleles) == 0 {
		return 0, 0, parseError(ErrEmptyAlleles, "")
	}
	maxLen := 0
	for _, a := range alleles {
		maxLen = max(maxLen, len(a))
	}
	if maxLen <= 1 {
		return pos, pos, nil
	}
	return pos, pos + uint32(maxLen) - 1, nil
}
