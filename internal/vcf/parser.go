package vcf

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vcfstream/internal/source"
)

const (
	metaPrefix   = "##"
	headerPrefix = "#CHROM"
)

type section int

const (
	sectionHeader section = iota
	sectionBody
)

// lineState is the header/body machinery shared by both iterator flavors.
type lineState struct {
	src        LineReader
	section    section
	lineNumber int
	numSamples int
	samples    []string
	sawColumns bool
	done       bool
}

// next returns the next non-blank line without its terminator. Read failures
// and end of stream both finish the state.
func (s *lineState) next() (string, error) {
	for {
		line, err := s.src.ReadLine()
		if err == io.EOF {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			s.done = true
			return "", fmt.Errorf("%w at line %d: %w", ErrRead, s.lineNumber+1, err)
		}
		s.lineNumber++

		line = trimEOL(line)
		if line == "" {
			continue
		}
		return line, nil
	}
}

// readHeader skips meta lines, takes the sample count from the #CHROM line
// and returns the first data line. It returns io.EOF if the stream ends right
// after the #CHROM line. Header errors are fatal.
func (s *lineState) readHeader() (string, error) {
	for {
		line, err := s.next()
		if err == io.EOF {
			if !s.sawColumns {
				return "", &ParseError{Line: s.lineNumber, Err: ErrBrokenHeader}
			}
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}

		switch {
		case strings.HasPrefix(line, metaPrefix):
			continue
		case strings.HasPrefix(line, headerPrefix):
			cols := strings.Split(line, "\t")
			if len(cols) < minColumns {
				s.done = true
				return "", &ParseError{Line: s.lineNumber, Err: ErrNotEnoughColumnsInChromLine}
			}
			s.samples = cols[minColumns:]
			s.numSamples = len(s.samples)
			s.sawColumns = true
		default:
			if !s.sawColumns {
				s.done = true
				return "", &ParseError{Line: s.lineNumber, Err: ErrMalformedHeader}
			}
			return line, nil
		}
	}
}

func (s *lineState) close() error {
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Iterator reads VCF records one line at a time. Ploidy is inferred once from
// the first data line and fixed for the rest of the file.
type Iterator struct {
	lines       lineState
	ploidy      int
	referenceGT string
	logger      *zap.Logger
}

// NewIterator creates an iterator over src. If src is an io.Closer it is
// closed by Close.
func NewIterator(src LineReader) *Iterator {
	return &Iterator{
		lines:  lineState{src: src},
		logger: zap.NewNop(),
	}
}

// NewIteratorFromReader creates an iterator over plain text from r.
func NewIteratorFromReader(r io.Reader) *Iterator {
	return NewIterator(source.FromReader(r))
}

// Open opens a plain, gzip or block-gzip VCF file ("-" for stdin).
func Open(path string, opts ...source.Option) (*Iterator, error) {
	src, err := source.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return NewIterator(src), nil
}

// SetLogger sets the logger for debug messages.
func (it *Iterator) SetLogger(l *zap.Logger) {
	it.logger = l
}

// Next reads the next record. Returns nil, nil when there are no more
// records. A decoding error only affects its own line: the caller may keep
// calling Next. Header and read errors end the sequence.
func (it *Iterator) Next() (*Record, error) {
	if it.lines.done {
		return nil, nil
	}
	if it.lines.section == sectionHeader {
		return it.first()
	}

	line, err := it.lines.next()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return it.decode(line)
}

// first consumes the header and decodes the first data line once ploidy is
// known. If ploidy cannot be inferred the section stays in the header and the
// next data line is tried.
func (it *Iterator) first() (*Record, error) {
	line, err := it.lines.readHeader()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	ploidy, err := findPloidy(line)
	if err != nil {
		return nil, atLine(err, it.lines.lineNumber)
	}
	it.ploidy = ploidy
	it.referenceGT = ReferenceGenotype(ploidy)
	it.lines.section = sectionBody

	it.logger.Debug("vcf header parsed",
		zap.Int("samples", it.lines.numSamples),
		zap.Int("ploidy", ploidy),
		zap.Int("line", it.lines.lineNumber))

	return it.decode(line)
}

func (it *Iterator) decode(line string) (*Record, error) {
	rec, err := DecodeRecord(it.lines.numSamples, it.ploidy, it.referenceGT, line)
	if err != nil {
		return nil, atLine(err, it.lines.lineNumber)
	}
	return rec, nil
}

// All returns the remaining records as a single-use sequence. Errors are
// yielded with a nil record.
func (it *Iterator) All() iter.Seq2[*Record, error] {
	return func(yield func(*Record, error) bool) {
		for {
			rec, err := it.Next()
			if rec == nil && err == nil {
				return
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

// NumSamples returns the sample count from the #CHROM line.
func (it *Iterator) NumSamples() int {
	return it.lines.numSamples
}

// Samples returns the sample names from the #CHROM line, or nil before the
// header has been read.
func (it *Iterator) Samples() []string {
	return it.lines.samples
}

// Ploidy returns the inferred ploidy, or 0 before the first record.
func (it *Iterator) Ploidy() int {
	return it.ploidy
}

// LineNumber returns the current line number being processed.
func (it *Iterator) LineNumber() int {
	return it.lines.lineNumber
}

// Close closes the underlying line source.
func (it *Iterator) Close() error {
	return it.lines.close()
}
