// Package snappy registers the "snappy" codec, backed by golang/snappy.
// Snappy's block format is a single self-contained frame (no flush
// boundaries to speak of), so only the buffer entry points are wired,
// using the library's block Encode/Decode directly rather than its
// streaming writer.
package snappy

import (
	"github.com/golang/snappy"

	"github.com/distr1/squash"
)

func init() {
	squash.RegisterBuiltin("snappy", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"snappy": {Priority: 70, Extension: ".snappy", License: []string{"BSD-3-Clause"}},
		},
	}, initCodec)
}

func initCodec(name string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		Capabilities:         squash.KnowsUncompressedSize,
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return snappy.MaxEncodedLen(inSize) },
		GetUncompressedSize: func(codec *squash.Codec, in []byte) (int, bool) {
			n, err := snappy.DecodedLen(in)
			if err != nil {
				return 0, false
			}
			return n, true
		},
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			if snappy.MaxEncodedLen(len(in)) > outCap {
				return nil, squash.StatusBufferFull
			}
			return snappy.Encode(nil, in), squash.StatusOK
		},
		DecompressBuffer: func(codec *squash.Codec, outSize int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			n, err := snappy.DecodedLen(in)
			if err != nil {
				return nil, squash.StatusInvalidBuffer
			}
			if n > outSize {
				return nil, squash.StatusBufferFull
			}
			out, err := snappy.Decode(make([]byte, 0, n), in)
			if err != nil {
				return nil, squash.StatusInvalidBuffer
			}
			return out, squash.StatusOK
		},
	}, squash.StatusOK
}
