// Package brotli registers the "brotli" codec, backed by
// andybalholm/brotli, a pure-Go port of Google's reference encoder.
package brotli

import (
	"io"

	"github.com/andybalholm/brotli"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("brotli", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"brotli": {Priority: 45, Extension: ".br", License: []string{"MIT"}},
		},
	}, initCodec)
}

var Schema = squash.OptionSchema{
	{Name: "level", Type: squash.OptionRangeInt, Default: int64(brotli.DefaultCompression),
		RangeMin: int64(brotli.BestSpeed), RangeMax: int64(brotli.BestCompression)},
}

func levelFrom(opts *squash.Options) int {
	if opts == nil {
		return brotli.DefaultCompression
	}
	if v, ok := opts.Get("level").(int64); ok {
		return int(v)
	}
	return brotli.DefaultCompression
}

func newWriterFor(opts *squash.Options) func(io.Writer) (io.WriteCloser, error) {
	level := levelFrom(opts)
	return func(dst io.Writer) (io.WriteCloser, error) {
		return brotli.NewWriterLevel(dst, level), nil
	}
}

func newWriter(dst io.Writer, opts *squash.Options) (io.WriteCloser, error) {
	return newWriterFor(opts)(dst)
}

func newReader(src io.Reader, _ *squash.Options) (io.Reader, error) {
	return brotli.NewReader(src), nil
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		Schema:               Schema,
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize/100 + 128 },
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.CompressBuffer(newWriterFor(opts), outCap, in)
		},
		DecompressBuffer: func(codec *squash.Codec, outSize int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.DecompressBuffer(func(src io.Reader) (io.Reader, error) { return newReader(src, opts) }, outSize, in)
		},
		Splice: codecio.Splice(newWriter, newReader),
	}, squash.StatusOK
}
