// Package vcf decodes VCF and gVCF text into typed records.
package vcf

// LineReader supplies input lines, terminator included.
// It returns io.EOF when there are no more lines.
type LineReader interface {
	ReadLine() (string, error)
}

// RecordReader is the interface for iterators that read records.
// Both Iterator and GVCFIterator implement this interface.
type RecordReader[T any] interface {
	// Next reads the next record.
	// Returns nil, nil when there are no more records.
	Next() (T, error)

	// Close closes the iterator and releases the line source.
	Close() error

	// LineNumber returns the current line number being processed.
	LineNumber() int
}
