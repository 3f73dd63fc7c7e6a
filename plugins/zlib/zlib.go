// Package zlib registers the "zlib" codec, backed by the standard
// library's compress/zlib.
package zlib

import (
	"compress/flate"
	"compress/zlib"
	"io"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("zlib", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"zlib": {Priority: 50, Extension: ".zz", License: []string{"Zlib"}},
		},
	}, initCodec)
}

// Schema exposes zlib's compression level. The range includes
// flate.HuffmanOnly and DefaultCompression's -1 sentinel alongside the
// 0..9 levels zlib itself defines, since zlib's level constants are
// numerically identical to flate's.
var Schema = squash.OptionSchema{
	{Name: "level", Type: squash.OptionRangeInt, Default: int64(zlib.DefaultCompression),
		RangeMin: int64(flate.HuffmanOnly), RangeMax: int64(zlib.BestCompression)},
}

func levelFrom(opts *squash.Options) int {
	if opts == nil {
		return zlib.DefaultCompression
	}
	if v, ok := opts.Get("level").(int64); ok {
		return int(v)
	}
	return zlib.DefaultCompression
}

func newWriterFor(opts *squash.Options) func(io.Writer) (io.WriteCloser, error) {
	level := levelFrom(opts)
	return func(dst io.Writer) (io.WriteCloser, error) {
		return zlib.NewWriterLevel(dst, level)
	}
}

func newWriter(dst io.Writer, opts *squash.Options) (io.WriteCloser, error) {
	return newWriterFor(opts)(dst)
}

func newReader(src io.Reader, opts *squash.Options) (io.Reader, error) {
	return zlib.NewReader(src)
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		Schema:               Schema,
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize/1000 + 128 },
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.CompressBuffer(newWriterFor(opts), outCap, in)
		},
		DecompressBuffer: func(codec *squash.Codec, outSize int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.DecompressBuffer(func(src io.Reader) (io.Reader, error) { return zlib.NewReader(src) }, outSize, in)
		},
		Splice: codecio.Splice(newWriter, newReader),
	}, squash.StatusOK
}
