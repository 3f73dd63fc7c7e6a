// Package gzip registers the "gzip" codec, backed by klauspost/pgzip, a
// parallel gzip implementation (as used for installed-package archives
// elsewhere in this codebase).
package gzip

import (
	"compress/flate"
	"io"

	"github.com/klauspost/pgzip"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("gzip", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"gzip": {Priority: 50, Extension: ".gz", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

// Schema exposes gzip's compression level, including flate.HuffmanOnly
// and DefaultCompression's -1 sentinel alongside gzip's 0..9 levels.
var Schema = squash.OptionSchema{
	{Name: "level", Type: squash.OptionRangeInt, Default: int64(pgzip.DefaultCompression),
		RangeMin: int64(flate.HuffmanOnly), RangeMax: int64(pgzip.BestCompression)},
}

func levelFrom(opts *squash.Options) int {
	if opts == nil {
		return pgzip.DefaultCompression
	}
	if v, ok := opts.Get("level").(int64); ok {
		return int(v)
	}
	return pgzip.DefaultCompression
}

func newWriterFor(opts *squash.Options) func(io.Writer) (io.WriteCloser, error) {
	level := levelFrom(opts)
	return func(dst io.Writer) (io.WriteCloser, error) {
		return pgzip.NewWriterLevel(dst, level)
	}
}

func newWriter(dst io.Writer, opts *squash.Options) (io.WriteCloser, error) {
	return newWriterFor(opts)(dst)
}

func newReader(src io.Reader, _ *squash.Options) (io.Reader, error) {
	return pgzip.NewReader(src)
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		Schema:               Schema,
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize>>10 + 64 },
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.CompressBuffer(newWriterFor(opts), outCap, in)
		},
		DecompressBuffer: func(codec *squash.Codec, outSize int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.DecompressBuffer(func(src io.Reader) (io.Reader, error) { return pgzip.NewReader(src) }, outSize, in)
		},
		Splice: codecio.Splice(newWriter, newReader),
	}, squash.StatusOK
}
