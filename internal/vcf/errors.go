package vcf

import (
	"errors"
	"fmt"
)

// Structural errors.
var (
	ErrNotEnoughColumns            = errors.New("insufficient columns in VCF line")
	ErrNotEnoughColumnsInChromLine = errors.New("insufficient columns in #CHROM header line")
	ErrBrokenHeader                = errors.New("stream ended before the #CHROM header line")
	ErrMalformedHeader             = errors.New("malformed header: data line found before the #CHROM line")
	ErrFormatColumnNotFound        = errors.New("FORMAT column (#9) not found")
	ErrMissingGTFieldInFormat      = errors.New("GT field not found in FORMAT column")
	ErrMissingGTField              = errors.New("missing GT field in sample")
	ErrSampleCountMismatch         = errors.New("sample column count differs from the #CHROM line")
	ErrGVCFNotEnoughFields         = errors.New("insufficient fields in gVCF line")
)

// Value errors.
var (
	ErrInvalidPosition         = errors.New("invalid position value")
	ErrInvalidQuality          = errors.New("invalid quality value")
	ErrInvalidAllele           = errors.New("invalid allele")
	ErrPloidyNotFound          = errors.New("not possible to extract ploidy")
	ErrInconsistentPloidies    = errors.New("inconsistent ploidies found")
	ErrDifferentObservedPloidy = errors.New("observed and given ploidies are different")
	ErrEmptyAlleles            = errors.New("record has no alleles")
)

// ErrRead wraps failures of the underlying line source.
var ErrRead = errors.New("read error")

// ErrInvariantLine signals a gVCF line whose ALT field is only the
// non-reference symbol. It is an expected skip, not malformed data.
var ErrInvariantLine = errors.New("invariant gVCF line")

// IsInvariant reports whether err is the gVCF invariant-line signal.
func IsInvariant(err error) bool {
	return errors.Is(err, ErrInvariantLine)
}

// IsFatal reports whether err ends an iterator's sequence: header errors and
// line source failures. Other errors only affect their own line.
func IsFatal(err error) bool {
	return errors.Is(err, ErrBrokenHeader) ||
		errors.Is(err, ErrMalformedHeader) ||
		errors.Is(err, ErrNotEnoughColumnsInChromLine) ||
		errors.Is(err, ErrRead)
}

// ParseError reports a line that could not be decoded.
type ParseError struct {
	Line  int    // 1-based line number, 0 when decoded outside an iterator
	Err   error  // one of the Err* values, possibly wrapped
	Value string // offending token, if any
}

func (e *ParseError) Error() string {
	msg := e.Err.Error()
	if e.Value != "" {
		msg = fmt.Sprintf("%s %q", msg, e.Value)
	}
	if e.Line > 0 {
		return fmt.Sprintf("vcf parse error at line %d: %s", e.Line, msg)
	}
	return "vcf parse error: " + msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PloidyError reports a record whose genotypes carry a different number of
// alleles than the ploidy inferred for the file.
type PloidyError struct {
	Observed int
	Given    int
}

func (e *PloidyError) Error() string {
	return fmt.Sprintf("observed (%d) and given (%d) ploidies are different", e.Observed, e.Given)
}

func (e *PloidyError) Unwrap() error {
	return ErrDifferentObservedPloidy
}

func parseError(err error, value string) *ParseError {
	return &ParseError{Err: err, Value: value}
}

// atLine stamps a line number on a ParseError that does not carry one yet.
func atLine(err error, line int) error {
	var pe *ParseError
	if errors.As(err, &pe) && pe.Line == 0 {
		pe.Line = line
	}
	return err
}
