// Package s2 registers the "s2" codec, backed by klauspost/compress/s2
// — the Snappy-derived format klauspost/compress ships alongside zstd.
package s2

import (
	"io"

	"github.com/klauspost/compress/s2"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("s2", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"s2": {Priority: 75, Extension: ".s2", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

func newWriter(dst io.Writer, _ *squash.Options) (io.WriteCloser, error) {
	return s2.NewWriter(dst), nil
}

func newReader(src io.Reader, _ *squash.Options) (io.Reader, error) {
	return s2.NewReader(src), nil
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return s2.MaxEncodedLen(inSize) },
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.CompressBuffer(func(dst io.Writer) (io.WriteCloser, error) { return newWriter(dst, opts) }, outCap, in)
		},
		DecompressBuffer: func(codec *squash.Codec, outSize int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.DecompressBuffer(func(src io.Reader) (io.Reader, error) { return newReader(src, opts) }, outSize, in)
		},
		Splice: codecio.Splice(newWriter, newReader),
	}, squash.StatusOK
}
