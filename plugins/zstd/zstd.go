// Package zstd registers the "zstd" codec, backed by
// klauspost/compress/zstd, already part of this module's dependency
// chain via pgzip.
package zstd

import (
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("zstd", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"zstd": {Priority: 80, Extension: ".zst", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

// Schema exposes zstd's EncoderLevel, expressed as the library's own
// 1..4 scale (SpeedFastest..SpeedBestCompression).
var Schema = squash.OptionSchema{
	{Name: "level", Type: squash.OptionRangeInt, Default: int64(zstd.SpeedDefault),
		RangeMin: int64(zstd.SpeedFastest), RangeMax: int64(zstd.SpeedBestCompression)},
}

func levelFrom(opts *squash.Options) zstd.EncoderLevel {
	if opts == nil {
		return zstd.SpeedDefault
	}
	if v, ok := opts.Get("level").(int64); ok {
		return zstd.EncoderLevel(v)
	}
	return zstd.SpeedDefault
}

func newWriterFor(opts *squash.Options) func(io.Writer) (io.WriteCloser, error) {
	level := levelFrom(opts)
	return func(dst io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(dst, zstd.WithEncoderLevel(level))
	}
}

func newWriter(dst io.Writer, opts *squash.Options) (io.WriteCloser, error) {
	return newWriterFor(opts)(dst)
}

// closingReader wraps a *zstd.Decoder so its Close method (which frees
// the decoder's background goroutines) runs once the caller has fully
// drained it, without requiring codecio's io.Reader-shaped callers to
// know about zstd specifically.
type closingReader struct {
	dec  *zstd.Decoder
	done bool
}

func (r *closingReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	n, err := r.dec.Read(p)
	if err == io.EOF {
		r.done = true
		r.dec.Close()
	}
	return n, err
}

func newReader(src io.Reader, _ *squash.Options) (io.Reader, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, err
	}
	return &closingReader{dec: dec}, nil
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		Schema:               Schema,
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize>>8 + 64 },
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.CompressBuffer(newWriterFor(opts), outCap, in)
		},
		DecompressBuffer: func(codec *squash.Codec, outSize int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.DecompressBuffer(func(src io.Reader) (io.Reader, error) { return newReader(src, opts) }, outSize, in)
		},
		Splice: codecio.Splice(newWriter, newReader),
	}, squash.StatusOK
}
