// Package crush registers the "crush" codec. CRUSH is an obscure
// PalmOS-era compressor with no surviving Go port in the surveyed pack;
// this delegates to the standard library's compress/flate at maximum
// compression as the closest available approximation (see DESIGN.md).
// Only the buffer entry points are wired, matching crush's original
// whole-file-at-once usage.
package crush

import (
	"compress/flate"
	"io"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("crush", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"crush": {Priority: 10, Extension: ".cru", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

func newWriter(dst io.Writer) (io.WriteCloser, error) {
	return flate.NewWriter(dst, flate.BestCompression)
}

func newReader(src io.Reader) (io.Reader, error) {
	return flate.NewReader(src), nil
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize>>10 + 64 },
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.CompressBuffer(newWriter, outCap, in)
		},
		DecompressBuffer: func(codec *squash.Codec, outSize int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.DecompressBuffer(newReader, outSize, in)
		},
	}, squash.StatusOK
}
