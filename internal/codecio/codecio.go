// Package codecio adapts Go's io.Writer/io.Reader-shaped compression
// libraries (zlib, gzip, flate, zstd, ...) to squash's Splice and
// buffer vtable entry points, so a plugins/* package only has to supply
// the library's constructor functions.
package codecio

import (
	"bytes"
	"io"

	"github.com/distr1/squash"
)

// funcReader adapts a squash.ReadFunc to an io.Reader, latching EOF so
// the wrapped library never sees a second read after the stream ends.
type funcReader struct {
	read squash.ReadFunc
	done bool
}

func (r *funcReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	n, status := r.read(p)
	switch {
	case status.IsError():
		return n, status
	case status == squash.StatusEndOfStream:
		r.done = true
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	default:
		return n, nil
	}
}

// funcWriter adapts a squash.WriteFunc to an io.Writer.
type funcWriter struct{ write squash.WriteFunc }

func (w *funcWriter) Write(p []byte) (int, error) {
	n, status := w.write(p)
	if status.IsError() {
		return n, status
	}
	return n, nil
}

func statusFromErr(err error) squash.Status {
	if s, ok := err.(squash.Status); ok {
		return s
	}
	return squash.StatusFailed
}

const spliceChunk = 32 * 1024

// Splice builds a plugin Splice entry point out of a pair of
// opts-aware constructors: newWriter wraps a compressing io.WriteCloser
// around a sink, newReader wraps a decompressing io.Reader around a
// source. A plugin that only streams in one direction may pass nil for
// the other and will only ever be called in the direction it supports.
func Splice(
	newWriter func(dst io.Writer, opts *squash.Options) (io.WriteCloser, error),
	newReader func(src io.Reader, opts *squash.Options) (io.Reader, error),
) func(codec *squash.Codec, opts *squash.Options, direction squash.Direction, read squash.ReadFunc, write squash.WriteFunc) squash.Status {
	return func(codec *squash.Codec, opts *squash.Options, direction squash.Direction, read squash.ReadFunc, write squash.WriteFunc) squash.Status {
		source := &funcReader{read: read}
		sink := &funcWriter{write: write}

		if direction == squash.Compress {
			w, err := newWriter(sink, opts)
			if err != nil {
				return statusFromErr(err)
			}
			buf := make([]byte, spliceChunk)
			for {
				n, rerr := source.Read(buf)
				if n > 0 {
					if _, werr := w.Write(buf[:n]); werr != nil {
						return statusFromErr(werr)
					}
				}
				if rerr == io.EOF {
					if cerr := w.Close(); cerr != nil {
						return statusFromErr(cerr)
					}
					return squash.StatusOK
				}
				if rerr != nil {
					return statusFromErr(rerr)
				}
			}
		}

		r, err := newReader(source, opts)
		if err != nil {
			return statusFromErr(err)
		}
		buf := make([]byte, spliceChunk)
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				if _, werr := sink.Write(buf[:n]); werr != nil {
					return statusFromErr(werr)
				}
			}
			if rerr == io.EOF {
				return squash.StatusOK
			}
			if rerr != nil {
				return statusFromErr(rerr)
			}
		}
	}
}

// CompressBuffer runs a one-shot compress of in through newWriter into a
// buffer capped at outCap, returning StatusBufferFull rather than
// growing past it.
func CompressBuffer(newWriter func(dst io.Writer) (io.WriteCloser, error), outCap int, in []byte) ([]byte, squash.Status) {
	var buf boundedBuffer
	buf.limit = outCap
	w, err := newWriter(&buf)
	if err != nil {
		return nil, statusFromErr(err)
	}
	if _, err := w.Write(in); err != nil {
		return nil, statusFromErr(err)
	}
	if err := w.Close(); err != nil {
		return nil, statusFromErr(err)
	}
	return buf.buf.Bytes(), squash.StatusOK
}

// DecompressBuffer runs a one-shot decompress of in through newReader
// into a buffer capped at outSize.
func DecompressBuffer(newReader func(src io.Reader) (io.Reader, error), outSize int, in []byte) ([]byte, squash.Status) {
	r, err := newReader(bytes.NewReader(in))
	if err != nil {
		return nil, statusFromErr(err)
	}
	out := make([]byte, outSize+1)
	n := 0
	for n < len(out) {
		m, err := r.Read(out[n:])
		n += m
		if err == io.EOF {
			return out[:n], squash.StatusOK
		}
		if err != nil {
			return nil, statusFromErr(err)
		}
	}
	return nil, squash.StatusBufferFull
}

// boundedBuffer is a bytes.Buffer that reports squash.StatusBufferFull
// once it would exceed limit, so CompressBuffer can honor the caller's cap
// exactly instead of growing unbounded.
type boundedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.limit {
		return 0, squash.StatusBufferFull
	}
	return b.buf.Write(p)
}
