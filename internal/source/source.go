// Package source provides line readers over plain, gzip and block-gzip
// (BGZF) byte streams. The compression kind is sniffed from the leading bytes
// without consuming them.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/inodb/vcfstream/internal/sniff"
)

const bufferSize = 1 << 16

var (
	// ErrNotGzipped is returned when a gzip reader is requested for a file
	// without the gzip magic number.
	ErrNotGzipped = errors.New("file should be gzipped")

	// ErrNotBGZF is returned when a block-gzip reader is requested for a
	// file that is not block-gzip compressed.
	ErrNotBGZF = errors.New("file is not block-gzip (BGZF) compressed")

	// ErrGzipOnStdin is returned when compressed content arrives on
	// standard input.
	ErrGzipOnStdin = errors.New("gzip in stdin is not supported")
)

// PathError records a failure to open an input path.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("open path %q: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// Reader reads newline-terminated lines from a possibly compressed stream.
type Reader struct {
	br      *bufio.Reader
	kind    sniff.Kind
	closers []io.Closer
}

// Option configures how a path is opened.
type Option func(*options)

type options struct {
	threads int
	opener  BlockOpener
}

// WithThreads sets the size of the block-gzip decompression pool.
func WithThreads(n int) Option {
	return func(o *options) { o.threads = n }
}

// WithBlockOpener replaces the block-gzip decompression engine.
func WithBlockOpener(fn BlockOpener) Option {
	return func(o *options) { o.opener = fn }
}

func newOptions(opts []Option) options {
	o := options{threads: 1, opener: OpenBlockReader}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ReadLine returns the next line including its terminator. It returns
// io.EOF once the stream is exhausted. A final line without a terminator is
// returned as a normal line.
func (r *Reader) ReadLine() (string, error) {
	line, err := r.br.ReadString('\n')
	if err == nil {
		return line, nil
	}
	if err == io.EOF {
		if line != "" {
			return line, nil
		}
		return "", io.EOF
	}
	return line, fmt.Errorf("read line: %w", err)
}

// Kind returns the compression kind the stream was opened with.
func (r *Reader) Kind() sniff.Kind {
	return r.kind
}

// Close releases the decompressor, the decompression pool and the
// underlying file, if any.
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

// Open opens path and detects its compression kind. Plain files and files too
// short to carry a magic number are read as text. "-" reads standard input.
func Open(path string, opts ...Option) (*Reader, error) {
	if path == "-" {
		return FromStdin(os.Stdin)
	}
	o := newOptions(opts)

	f, br, kind, err := openAndSniff(path)
	if err != nil {
		if !sniff.IsInsufficientBytes(err) {
			return nil, closeOnError(f, err)
		}
		kind = sniff.Plain
	}

	switch kind {
	case sniff.Gzip:
		return newGzipReader(f, br)
	case sniff.BGZF:
		return newBlockReader(f, br, o)
	default:
		return &Reader{br: br, kind: sniff.Plain, closers: []io.Closer{f}}, nil
	}
}

// OpenGzip opens a gzip-family file with the single-threaded gzip
// decompressor. Concatenated members are read as one stream.
func OpenGzip(path string) (*Reader, error) {
	f, br, kind, err := openAndSniff(path)
	if err != nil {
		return nil, closeOnError(f, fmt.Errorf("magic bytes of %s: %w", path, err))
	}
	if !kind.IsCompressed() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotGzipped)
	}
	return newGzipReader(f, br)
}

// OpenBGZF opens a block-gzip file decompressed by a pool of threads
// concurrent decompressors.
func OpenBGZF(path string, threads int, opts ...Option) (*Reader, error) {
	o := newOptions(opts)
	o.threads = threads

	f, br, kind, err := openAndSniff(path)
	if err != nil {
		return nil, closeOnError(f, fmt.Errorf("magic bytes of %s: %w", path, err))
	}
	switch kind {
	case sniff.Plain:
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotGzipped)
	case sniff.Gzip:
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotBGZF)
	}
	return newBlockReader(f, br, o)
}

// FromReader reads plain text from r without sniffing.
func FromReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, bufferSize), kind: sniff.Plain}
}

// FromGzipReader decompresses gzip content from r.
func FromGzipReader(r io.Reader) (*Reader, error) {
	return newGzipReader(nil, bufio.NewReaderSize(r, bufferSize))
}

// FromStdin reads plain text from r, which is expected to be standard input.
// Compressed content is refused because interactive input cannot be rewound.
func FromStdin(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, bufferSize)
	kind, err := sniff.Detect(br)
	if err != nil && !sniff.IsInsufficientBytes(err) {
		return nil, err
	}
	if kind.IsCompressed() {
		return nil, ErrGzipOnStdin
	}
	return &Reader{br: br, kind: sniff.Plain}, nil
}

func openAndSniff(path string) (*os.File, *bufio.Reader, sniff.Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, sniff.Plain, &PathError{Path: path, Err: err}
	}
	br := bufio.NewReaderSize(f, bufferSize)
	kind, err := sniff.Detect(br)
	return f, br, kind, err
}

func newGzipReader(f *os.File, br *bufio.Reader) (*Reader, error) {
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, closeOnError(f, fmt.Errorf("create gzip reader: %w", err))
	}
	r := &Reader{br: bufio.NewReaderSize(zr, bufferSize), kind: sniff.Gzip, closers: []io.Closer{zr}}
	if f != nil {
		r.closers = append(r.closers, f)
	}
	return r, nil
}

func newBlockReader(f *os.File, br *bufio.Reader, o options) (*Reader, error) {
	pool, err := NewPool(o.threads)
	if err != nil {
		f.Close()
		return nil, err
	}
	rc, err := o.opener(br, pool)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{
		br:      bufio.NewReaderSize(rc, bufferSize),
		kind:    sniff.BGZF,
		closers: []io.Closer{rc, f},
	}, nil
}

func closeOnError(f *os.File, err error) error {
	if f != nil {
		f.Close()
	}
	return err
}
