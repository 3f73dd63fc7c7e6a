// Package xpress registers the "xpress" codec. Microsoft's XPRESS has
// no Go port in the surveyed pack; this delegates to the standard
// library's compress/flate. Like sharc and ncompress, xpress wires only
// Splice and no buffer entry points at all: buffer-shape calls run the
// splice function once over two in-memory buffers, and streams run it
// through the cooperative splice→stream worker (internal/bridge).
package xpress

import (
	"compress/flate"
	"io"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("xpress", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"xpress": {Priority: 15, Extension: ".xpr", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

func newWriter(dst io.Writer, _ *squash.Options) (io.WriteCloser, error) {
	return flate.NewWriter(dst, flate.DefaultCompression)
}

func newReader(src io.Reader, _ *squash.Options) (io.Reader, error) {
	return flate.NewReader(src), nil
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize>>10 + 64 },
		Splice:               codecio.Splice(newWriter, newReader),
	}, squash.StatusOK
}
