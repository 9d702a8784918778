package core

import (
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"bytescan/dtype"
)

// CompressionType identifies the stream compression wrapped around a text
// input file.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionGzip
	CompressionSnappy
	CompressionZstd
)

var compressionSuffixes = []struct {
	suffix string
	typ    CompressionType
}{
	{".gz", CompressionGzip},
	{".gzip", CompressionGzip},
	{".zst", CompressionZstd},
	{".zstd", CompressionZstd},
	{".sz", CompressionSnappy},
	{".snappy", CompressionSnappy},
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionSnappy:
		return "snappy"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// CompressionSuffix returns the compression extension of name, or "".
func CompressionSuffix(name string) string {
	lower := strings.ToLower(name)
	for _, cs := range compressionSuffixes {
		if strings.HasSuffix(lower, cs.suffix) {
			return name[len(name)-len(cs.suffix):]
		}
	}
	return ""
}

// CompressionFromPath picks the compression of a file from its extension.
func CompressionFromPath(path string) CompressionType {
	lower := strings.ToLower(path)
	for _, cs := range compressionSuffixes {
		if strings.HasSuffix(lower, cs.suffix) {
			return cs.typ
		}
	}
	return CompressionNone
}

// OpenInput opens a local file for reading, decompressing it on the fly when
// its extension names a supported compression. Closing the result closes the
// decoder and the file.
func OpenInput(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dtype.IOFailure(err, "open "+path)
	}
	rc, err := NewDecompressor(f, CompressionFromPath(path))
	if err != nil {
		f.Close()
		return nil, dtype.IOFailure(err, "open "+path)
	}
	return rc, nil
}

// NewDecompressor wraps r in a decoder for c. The returned ReadCloser closes
// r as well when r is an io.Closer.
func NewDecompressor(r io.Reader, c CompressionType) (io.ReadCloser, error) {
	closer, _ := r.(io.Closer)
	switch c {
	case CompressionNone:
		return &stackedReader{Reader: r, inner: closer}, nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "gzip header")
		}
		return &stackedReader{Reader: zr, decoder: zr.Close, inner: closer}, nil
	case CompressionSnappy:
		return &stackedReader{Reader: snappy.NewReader(r), inner: closer}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "zstd decoder")
		}
		return &stackedReader{
			Reader:  zr,
			decoder: func() error { zr.Close(); return nil },
			inner:   closer,
		}, nil
	default:
		return nil, errors.Newf("unsupported compression %d", c)
	}
}

// NewCompressor wraps w in an encoder for c. Closing the result flushes the
// encoder but leaves w open.
func NewCompressor(w io.Writer, c CompressionType) (io.WriteCloser, error) {
	switch c {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionSnappy:
		return snappy.NewBufferedWriter(w), nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, errors.Wrap(err, "zstd encoder")
		}
		return zw, nil
	default:
		return nil, errors.Newf("unsupported compression %d", c)
	}
}

// stackedReader closes the decoder and then the underlying file.
type stackedReader struct {
	io.Reader
	decoder func() error
	inner   io.Closer
	closed  bool
}

func (s *stackedReader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.decoder != nil {
		err = s.decoder()
	}
	if s.inner != nil {
		err = errors.CombineErrors(err, s.inner.Close())
	}
	return err
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
