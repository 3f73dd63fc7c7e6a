// Package density registers the "density" codec. Density's own C
// implementation has no Go port in the surveyed pack; this delegates
// to klauspost/compress/s2, the fastest block compressor already
// wired in, and exists to give both the buffer and streaming shapes a
// second, independently-registered codec to exercise (see DESIGN.md).
package density

import (
	"io"

	"github.com/klauspost/compress/s2"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("density", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"density": {Priority: 65, Extension: ".dns", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

func newWriter(dst io.Writer, _ *squash.Options) (io.WriteCloser, error) {
	return s2.NewWriter(dst, s2.WriterBetterCompression()), nil
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
