// Package sharc registers the "sharc" codec. SHARC's reference
// encoder is proprietary DOS-era software with no Go equivalent in the
// surveyed pack; this delegates to the standard library's compress/zlib
// and exists mainly to exercise the core's WRAP_SIZE length-prefix
// machinery (see DESIGN.md) on a codec that only offers the splice
// shape, not a direct buffer entry point.
package sharc

import (
	"compress/zlib"
	"io"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("sharc", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"sharc": {Priority: 5, Extension: ".sharc", License: []string{"Zlib"}},
		},
	}, initCodec)
}

func newWriter(dst io.Writer, _ *squash.Options) (io.WriteCloser, error) {
	return zlib.NewWriter(dst), nil
}

func newReader(src io.Reader, _ *squash.Options) (io.Reader, error) {
	return zlib.NewReader(src)
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		Capabilities:         squash.WrapSize,
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize/1000 + 128 },
		Splice:               codecio.Splice(newWriter, newReader),
	}, squash.StatusOK
}
