package vcf

import (
	"io"
	"iter"

	"go.uber.org/zap"

	"github.com/inodb/vcfstream/internal/source"
)

// GVCFIterator reads gVCF records and keeps a lookahead buffer of decoded
// records so windowed consumers can see past invariant lines.
type GVCFIterator struct {
	lines      lineState
	buffer     []*GVCFRecord
	invariants int
	logger     *zap.Logger
}

// NewGVCFIterator creates an iterator over src. If src is an io.Closer it is
// closed by Close.
func NewGVCFIterator(src LineReader) *GVCFIterator {
	return &GVCFIterator{
		lines:  lineState{src: src},
		logger: zap.NewNop(),
	}
}

// NewGVCFIteratorFromReader creates an iterator over plain text from r.
func NewGVCFIteratorFromReader(r io.Reader) *GVCFIterator {
	return NewGVCFIterator(source.FromReader(r))
}

// NewGVCFIteratorFromGzipReader creates an iterator over gzip content from r.
func NewGVCFIteratorFromGzipReader(r io.Reader) (*GVCFIterator, error) {
	src, err := source.FromGzipReader(r)
	if err != nil {
		return nil, err
	}
	return NewGVCFIterator(src), nil
}

// OpenGVCF opens a plain, gzip or block-gzip gVCF file ("-" for stdin).
func OpenGVCF(path string, opts ...source.Option) (*GVCFIterator, error) {
	src, err := source.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return NewGVCFIterator(src), nil
}

// SetLogger sets the logger for debug messages.
func (it *GVCFIterator) SetLogger(l *zap.Logger) {
	it.logger = l
}

// Next returns the oldest buffered record, or decodes the next line when the
// buffer is empty. Invariant lines read directly return ErrInvariantLine.
// Returns nil, nil when there are no more records.
func (it *GVCFIterator) Next() (*GVCFRecord, error) {
	if len(it.buffer) > 0 {
		rec := it.buffer[0]
		it.buffer[0] = nil
		it.buffer = it.buffer[1:]
		return rec, nil
	}
	return it.pull()
}

// NextVariant is like Next but skips invariant lines.
func (it *GVCFIterator) NextVariant() (*GVCFRecord, error) {
	for {
		rec, err := it.Next()
		if IsInvariant(err) {
			continue
		}
		return rec, err
	}
}

func (it *GVCFIterator) pull() (*GVCFRecord, error) {
	if it.lines.done {
		return nil, nil
	}

	var (
		line string
		err  error
	)
	if it.lines.section == sectionHeader {
		line, err = it.lines.readHeader()
		if err == nil {
			it.lines.section = sectionBody
		}
	} else {
		line, err = it.lines.next()
	}
	if err == io.EOF {
		it.logger.Debug("gvcf stream exhausted",
			zap.Int("lines", it.lines.lineNumber),
			zap.Int("invariant_lines", it.invariants))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rec, err := DecodeGVCFRecord(line)
	if err != nil {
		if err == ErrInvariantLine {
			it.invariants++
			return nil, err
		}
		return nil, atLine(err, it.lines.lineNumber)
	}
	return rec, nil
}

// FillBuffer decodes lines until the buffer holds at least n records or the
// stream is exhausted, and returns how many records it appended. Invariant
// lines are discarded. On a decoding error the records appended so far stay
// buffered.
func (it *GVCFIterator) FillBuffer(n int) (int, error) {
	added := 0
	for len(it.buffer) < n {
		rec, err := it.pull()
		if err != nil {
			if IsInvariant(err) {
				continue
			}
			return added, err
		}
		if rec == nil {
			break
		}
		it.buffer = append(it.buffer, rec)
		added++
	}
	return added, nil
}

// Buffered returns a sequence over the records currently buffered, oldest
// first, without consuming them. Each range over it starts from the front.
func (it *GVCFIterator) Buffered() iter.Seq[*GVCFRecord] {
	return func(yield func(*GVCFRecord) bool) {
		for _, rec := range it.buffer {
			if !yield(rec) {
				return
			}
		}
	}
}

// BufferLen returns the number of buffered records.
func (it *GVCFIterator) BufferLen() int {
	return len(it.buffer)
}

// All returns the remaining records as a single-use sequence, invariant
// signals included.
func (it *GVCFIterator) All() iter.Seq2[*GVCFRecord, error] {
	return func(yield func(*GVCFRecord, error) bool) {
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

// Variants is like All but skips invariant lines.
func (it *GVCFIterator) Variants() iter.Seq2[*GVCFRecord, error] {
	return func(yield func(*GVCFRecord, error) bool) {
		for {
			rec, err := it.NextVariant()
			if rec == nil && err == nil {
				return
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

// InvariantLines returns how many invariant lines have been read so far.
func (it *GVCFIterator) InvariantLines() int {
	return it.invariants
}

// NumSamples returns the sample count from the #CHROM line.
func (it *GVCFIterator) NumSamples() int {
	return it.lines.numSamples
}

// LineNumber returns the current line number being processed.
func (it *GVCFIterator) LineNumber() int {
	return it.lines.lineNumber
}

// Close closes the underlying line source.
func (it *GVCFIterator) Close() error {
	return it.lines.close()
}
