// Package sniff classifies byte streams as plain text, gzip or block-gzip
// (BGZF) by inspecting their leading bytes without consuming them.
package sniff

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Kind is the compression family of a stream.
type Kind int

const (
	Plain Kind = iota
	Gzip
	BGZF
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case Gzip:
		return "gzip"
	case BGZF:
		return "bgzf"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// IsCompressed reports whether k is a gzip-family kind.
func (k Kind) IsCompressed() bool {
	return k == Gzip || k == BGZF
}

const (
	magicLen = 2

	// Fixed gzip member header: ID1 ID2 CM FLG MTIME(4) XFL OS XLEN(2).
	gzipHeaderLen = 12
	flagExtra     = 0x04

	// BGZF stores the compressed block size in an extra subfield
	// SI1='B' SI2='C' SLEN=2.
	bgzfSI1  = 'B'
	bgzfSI2  = 'C'
	bgzfSLen = 2
)

// InsufficientBytesError is returned when fewer bytes than needed are
// available to decide the compression kind.
type InsufficientBytesError struct {
	Got  int
	Need int
}

func (e *InsufficientBytesError) Error() string {
	return fmt.Sprintf("insufficient bytes: got %d, need at least %d", e.Got, e.Need)
}

// IsInsufficientBytes reports whether err is an *InsufficientBytesError.
func IsInsufficientBytes(err error) bool {
	var ib *InsufficientBytesError
	return errors.As(err, &ib)
}

// IsGzipMagic reports whether the first bytes carry the gzip magic number
// 0x1f 0x8b.
func IsGzipMagic(first []byte) (bool, error) {
	if len(first) < magicLen {
		return false, &InsufficientBytesError{Got: len(first), Need: magicLen}
	}
	return first[0] == 0x1f && first[1] == 0x8b, nil
}

// Detect peeks at br and classifies the stream. The peeked bytes remain
// buffered in br for the next reader.
func Detect(br *bufio.Reader) (Kind, error) {
	magic, err := br.Peek(magicLen)
	if err != nil && err != io.EOF {
		return Plain, fmt.Errorf("peek magic bytes: %w", err)
	}
	gz, err := IsGzipMagic(magic)
	if err != nil {
		return Plain, err
	}
	if !gz {
		return Plain, nil
	}
	if isBGZFHeader(br) {
		return BGZF, nil
	}
	return Gzip, nil
}

// isBGZFHeader walks the extra subfields of the first gzip member header
// looking for the BC subfield.
func isBGZFHeader(br *bufio.Reader) bool {
	hdr, err := br.Peek(gzipHeaderLen)
	if err != nil {
		return false
	}
	if hdr[3]&flagExtra == 0 {
		return false
	}
	xlen := int(binary.LittleEndian.Uint16(hdr[10:12]))
	full, err := br.Peek(gzipHeaderLen + xlen)
	if err != nil {
		return false
	}
	return hasBGZFSubfield(full[gzipHeaderLen:])
}

func hasBGZFSubfield(extra []byte) bool {
	for len(extra) >= 4 {
		si1, si2 := extra[0], extra[1]
		slen := int(binary.LittleEndian.Uint16(extra[2:4]))
		if si1 == bgzfSI1 && si2 == bgzfSI2 && slen == bgzfSLen {
			return true
		}
		if len(extra) < 4+slen {
			return false
		}
		extra = extra[4+slen:]
	}
	return false
}

// DetectFile opens path and classifies its contents.
func DetectFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return Plain, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Detect(bufio.NewReader(f))
}
