// Package lz4 registers the "lz4" codec, backed by pierrec/lz4. Only
// the buffer entry points are wired: lz4's frame writer keeps enough
// internal state (block dependencies, checksums) that splicing it
// through the cooperative worker bridge adds no value over draining it
// in one shot, so this plugin sticks to CompressBuffer/DecompressBuffer.
package lz4

import (
	"io"

	"github.com/pierrec/lz4"

	"github.com/distr1/squash"
	"github.com/distr1/squash/internal/codecio"
)

func init() {
	squash.RegisterBuiltin("lz4", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"lz4": {Priority: 60, Extension: ".lz4", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

func newWriter(dst io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(dst), nil
}

func newReader(src io.Reader) (io.Reader, error) {
	return lz4.NewReader(src), nil
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize + inSize/255 + 16 },
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.CompressBuffer(newWriter, outCap, in)
		},
		DecompressBuffer: func(codec *squash.Codec, outSize int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			return codecio.DecompressBuffer(newReader, outSize, in)
		},
	}, squash.StatusOK
}
