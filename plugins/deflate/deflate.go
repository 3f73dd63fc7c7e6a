// Package deflate registers the "deflate" codec, backed by
// klauspost/compress/flate — the optimized drop-in replacement for the
// standard library's compress/flate that the rest of the klauspost
// stack (pgzip, s2, zstd) builds on.
package deflate

import (
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("deflate", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"deflate": {Priority: 40, Extension: ".deflate", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

var Schema = squash.OptionSchema{
	{Name: "level", Type: squash.OptionRangeInt, Default: int64(flate.DefaultCompression),
		RangeMin: int64(flate.HuffmanOnly), RangeMax: int64(flate.BestCompression)},
}

func levelFrom(opts *squash.Options) int {
	if opts == nil {
		return flate.DefaultCompression
	}
	if v, ok := opts.Get("level").(int64); ok {
		return int(v)
	}
	return flate.DefaultCompression
}

func newWriterFor(opts *squash.Options) func(io.Writer) (io.WriteCloser, error) {
	level := levelFrom(opts)
	return func(dst io.Writer) (io.WriteCloser, error) {
		w, err := flate.NewWriter(dst, level)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}

func newWriter(dst io.Writer, opts *squash.Options) (io.WriteCloser, error) {
	return newWriterFor(opts)(dst)
}

func newReader(src io.Reader, _ *squash.Options) (io.Reader, error) {
	return flate.NewReader(src), nil
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		Schema:               Schema,
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize>>10 + 64 },
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.CompressBuffer(newWriterFor(opts), outCap, in)
		},
		DecompressBuffer: func(codec *squash.Codec, outSize int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.DecompressBuffer(func(src io.Reader) (io.Reader, error) { return flate.NewReader(src), nil }, outSize, in)
		},
		Splice: codecio.Splice(newWriter, newReader),
	}, squash.StatusOK
}
