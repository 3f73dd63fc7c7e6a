// Package ncompress registers the "ncompress" codec. There is no
// third-party Go implementation of Unix compress(1)'s adaptive-width
// LZW in the surveyed pack, so this delegates to the standard library's
// compress/lzw, which implements the same family of algorithm (see
// DESIGN.md for why this one stays on the standard library).
package ncompress

import (
	"compress/lzw"
	"io"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("ncompress", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"ncompress": {Priority: 20, Extension: ".Z", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

const litWidth = 8

func newWriter(dst io.Writer, _ *squash.Options) (io.WriteCloser, error) {
	return lzw.NewWriter(dst, lzw.MSB, litWidth), nil
}

func newReader(src io.Reader, _ *squash.Options) (io.Reader, error) {
	return lzw.NewReader(src, lzw.MSB, litWidth), nil
}

// ncompress wires only Splice, matching the original's stream-API-only
// plugin shape (plugins/ncompress/compress.c has no one-shot buffer
// entry point either); CompressBuffer/DecompressBuffer fall back to
// the core's spliceBufferToBuffer synthesis.
func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize/2 + 64 },
		Splice:               codecio.Splice(newWriter, newReader),
	}, squash.StatusOK
}
