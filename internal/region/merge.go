// Package region merges the spans of neighbouring gVCF variants into
// contiguous regions.
package region

import (
	"iter"

	"go.uber.org/zap"

	"github.com/inodb/vcfstream/internal/vcf"
)

// DefaultWindow is the number of records prefetched when the lookahead
// buffer runs dry.
const DefaultWindow = 64

// Region is a run of variants whose spans overlap or lie within the merge gap.
type Region struct {
	Chrom       string
	Start       uint32 // 1-based, inclusive
	End         uint32 // inclusive
	NumVariants int
}

// Width returns the number of reference bases covered by the region.
func (r Region) Width() uint32 {
	return r.End - r.Start + 1
}

// Merger reads variants from a gVCF iterator and joins neighbours. Two spans
// join when they are on the same chromosome and the next one starts no more
// than gap bases after the current region ends.
type Merger struct {
	it     *vcf.GVCFIterator
	window int
	gap    uint32
	logger *zap.Logger
}

// NewMerger creates a merger that prefetches window records at a time.
func NewMerger(it *vcf.GVCFIterator, window int, gap uint32) *Merger {
	if window < 1 {
		window = DefaultWindow
	}
	return &Merger{it: it, window: window, gap: gap, logger: zap.NewNop()}
}

// SetLogger sets the logger for debug messages.
func (m *Merger) SetLogger(l *zap.Logger) {
	m.logger = l
}

// Next returns the next region, or nil, nil when the input is exhausted.
func (m *Merger) Next() (*Region, error) {
	rec, err := m.it.NextVariant()
	if err != nil || rec == nil {
		return nil, err
	}
	start, end, err := rec.Span()
	if err != nil {
		return nil, err
	}
	r := &Region{Chrom: rec.Chrom, Start: start, End: end, NumVariants: 1}

	for {
		next, err := m.peek()
		if err != nil {
			return nil, err
		}
		if next == nil || next.Chrom != r.Chrom {
			break
		}
		nextStart, nextEnd, err := next.Span()
		if err != nil {
			return nil, err
		}
		if uint64(nextStart) > uint64(r.End)+uint64(m.gap)+1 {
			break
		}
		if _, err := m.it.Next(); err != nil {
			return nil, err
		}
		r.End = max(r.End, nextEnd)
		r.NumVariants++
	}

	if r.NumVariants > 1 {
		m.logger.Debug("merged region",
			zap.String("chrom", r.Chrom),
			zap.Uint32("start", r.Start),
			zap.Uint32("end", r.End),
			zap.Int("variants", r.NumVariants))
	}
	return r, nil
}

// peek returns the oldest buffered record without consuming it, refilling
// the buffer when it is empty.
func (m *Merger) peek() (*vcf.GVCFRecord, error) {
	if m.it.BufferLen() == 0 {
		if _, err := m.it.FillBuffer(m.window); err != nil {
			return nil, err
		}
	}
	for rec := range m.it.Buffered() {
		return rec, nil
	}
	return nil, nil
}

// All returns the remaining regions as a single-use sequence. Iteration stops
// after the first error.
func (m *Merger) All() iter.Seq2[*Region, error] {
	return func(yield func(*Region, error) bool) {
		for {
			r, err := m.Next()
			if err != nil {
				yield(nil, err)
				return
			}
			if r == nil || !yield(r, nil) {
				return
			}
		}
	}
}

// MergeAll drains the merger into a slice.
func (m *Merger) MergeAll() ([]Region, error) {
	var regions []Region
	for r, err := range m.All() {
		if err != nil {
			return nil, err
		}
		regions = append(regions, *r)
	}
	return regions, nil
}
