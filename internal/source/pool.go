package source

import (
	"errors"
	"fmt"
	"io"

	"github.com/biogo/hts/bgzf"
)

// ErrThreadPool is returned when the decompression pool cannot be created.
var ErrThreadPool = errors.New("cannot create the thread pool to decompress the file")

// Pool sizes the set of concurrent block decompressors. It is owned by the
// Reader it was handed to and released when that Reader is closed.
type Pool struct {
	size int
}

// NewPool returns a pool of threads decompressors. threads must be positive.
func NewPool(threads int) (*Pool, error) {
	if threads < 1 {
		return nil, fmt.Errorf("%w: invalid thread count %d", ErrThreadPool, threads)
	}
	return &Pool{size: threads}, nil
}

// Size returns the number of decompressors.
func (p *Pool) Size() int {
	return p.size
}

// BlockOpener builds a block-gzip decompressing reader over r that uses pool.
type BlockOpener func(r io.Reader, pool *Pool) (io.ReadCloser, error)

// OpenBlockReader is the default BlockOpener, backed by biogo's BGZF reader
// with one goroutine per pool slot.
func OpenBlockReader(r io.Reader, pool *Pool) (io.ReadCloser, error) {
	br, err := bgzf.NewReader(r, pool.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotBGZF, err)
	}
	return br, nil
}
