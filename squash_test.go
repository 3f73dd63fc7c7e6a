package squash_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/distr1/squash"

	_ "github.com/distr1/squash/plugins/zlib"
)

// loremIpsum builds a 2725-byte block of filler text (spec §8 scenario
// 2) by repeating a fixed paragraph and trimming to the exact length,
// rather than hand-counting characters.
func loremIpsum(n int) []byte {
	const paragraph = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur. Excepteur sint occaecat cupidatat non proident, sunt in culpa qui officia deserunt mollit anim id est laborum. "
	buf := make([]byte, 0, n)
	for len(buf) < n {
		buf = append(buf, paragraph...)
	}
	return buf[:n]
}

// TestScenarioSingleByte is spec §8 scenario 1.
func TestScenarioSingleByte(t *testing.T) {
	eachBuiltinCodec(t, func(t *testing.T, c *squash.Codec) {
		in := []byte{0x5A}
		compressed, status := c.Compress(in, nil)
		if status != squash.StatusOK {
			t.Fatalf("Compress: %v", status)
		}
		out, status := c.Decompress(compressed, nil)
		if status != squash.StatusOK {
			t.Fatalf("Decompress: %v", status)
		}
		if len(out) != 1 || out[0] != 0x5A {
			t.Fatalf("got %x, want [5A]", out)
		}
	})
}

// TestScenarioLoremIpsum is spec §8 scenario 2: round trip the
// 2725-byte block, then confirm a 1-byte-short output buffer fails.
func TestScenarioLoremIpsum(t *testing.T) {
	in := loremIpsum(2725)
	eachBuiltinCodec(t, func(t *testing.T, c *squash.Codec) {
		// CompressBuffer/DecompressBuffer are the raw per-call shape
		// (no WrapSize prefix), paired so a WrapSize codec like sharc
		// stays self-consistent across the compress/decompress call.
		bound, status := c.GetMaxCompressedSize(len(in))
		if status != squash.StatusOK {
			t.Fatalf("GetMaxCompressedSize: %v", status)
		}
		compressed, status := c.CompressBuffer(bound, in, nil)
		if status != squash.StatusOK {
			t.Fatalf("CompressBuffer: %v", status)
		}
		out, status := c.DecompressBuffer(len(in), compressed, nil)
		if status != squash.StatusOK {
			t.Fatalf("DecompressBuffer(exact cap): %v", status)
		}
		if !bytes.Equal(out, in) {
			t.Fatalf("decompressed output is not byte-identical to input")
		}
		if _, status := c.DecompressBuffer(len(in)-1, compressed, nil); !status.IsError() {
			t.Errorf("DecompressBuffer(len-1) = %v, want a negative status", status)
		}
	})
}

// TestScenarioStreaming1ByteWindows is spec §8 scenario 3: feed the
// lorem text one byte at a time into a compress stream.
func TestScenarioStreaming1ByteWindows(t *testing.T) {
	in := loremIpsum(2725)
	eachBuiltinCodec(t, func(t *testing.T, c *squash.Codec) {
		cs, status := squash.NewStream(c, squash.Compress, nil)
		if status != squash.StatusOK {
			t.Fatalf("NewStream: %v", status)
		}
		defer cs.Unref()

		var compressed bytes.Buffer
		out := make([]byte, 64)
		for i := 0; i < len(in); i++ {
			window := in[i : i+1]
			for len(window) > 0 {
				consumed, produced, status := cs.Process(window, out)
				compressed.Write(out[:produced])
				window = window[consumed:]
				if status.IsError() {
					t.Fatalf("Process at byte %d: %v", i, status)
				}
			}
		}
		for {
			_, produced, status := cs.Finish(nil, out)
			compressed.Write(out[:produced])
			if status == squash.StatusOK {
				break
			}
			if status.IsError() {
				t.Fatalf("Finish: %v", status)
			}
		}

		// Decoded via the stream shape, matching how it was produced
		// (see TestStreamingEquivalence: a WrapSize codec's prefix is
		// buffer-shape-only, so stream output must be decoded by a
		// stream, not by Codec.Decompress).
		decoded := decodeViaStream(t, c, compressed.Bytes())
		if !bytes.Equal(decoded, in) {
			t.Fatalf("streamed-then-decoded output mismatch")
		}
	})
}

// identityFlushBackend is a StreamBackend that always makes full
// progress and is willing to honor a flush boundary: since it holds no
// internal buffering, flush is a no-op beyond whatever Process already
// emitted. It exists purely to drive the state machine's Flush path
// with a real CanFlush codec, since no shipped plugin advertises that
// capability (splice-synthesized streams have no way to recognize a
// flush boundary; see DESIGN.md).
type identityFlushBackend struct{}

func (identityFlushBackend) Process(op squash.Operation, in, out []byte) (int, int, squash.Status) {
	n := copy(out, in)
	if n < len(in) {
		return n, n, squash.StatusProcessing
	}
	return n, n, squash.StatusOK
}

func (identityFlushBackend) Close() {}

func init() {
	squash.RegisterBuiltin("flush-fixture", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"flush-fixture": {Priority: 10},
		},
	}, func(name string) (*squash.Implementation, squash.Status) {
		return &squash.Implementation{
			Capabilities: squash.CanFlush,
			CreateStream: func(codec *squash.Codec, direction squash.Direction, opts *squash.Options) (squash.StreamBackend, squash.Status) {
				return identityFlushBackend{}, squash.StatusOK
			},
			GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize },
		}, squash.StatusOK
	})
}

// TestScenarioFlushMidpoint is spec §8 scenario 4: flush partway
// through a compress stream, confirm what's been produced so far
// decompresses to exactly the bytes fed before the flush, then finish
// the remainder and confirm the tail.
func TestScenarioFlushMidpoint(t *testing.T) {
	in := loremIpsum(2725)
	const n = 1000

	c, status := squash.GetCodec("flush-fixture")
	if status != squash.StatusOK {
		t.Fatalf("GetCodec: %v", status)
	}
	if c.Capabilities()&squash.CanFlush == 0 {
		t.Fatalf("flush-fixture must advertise CanFlush")
	}

	cs, status := squash.NewStream(c, squash.Compress, nil)
	if status != squash.StatusOK {
		t.Fatalf("NewStream compress: %v", status)
	}
	defer cs.Unref()

	var firstPart bytes.Buffer
	out := make([]byte, len(in))
	consumed, produced, status := cs.Process(in[:n], out)
	firstPart.Write(out[:produced])
	if status != squash.StatusOK || consumed != n {
		t.Fatalf("Process(first %d) = %d,%d,%v", n, consumed, produced, status)
	}

	_, produced, status = cs.Flush(nil, out)
	firstPart.Write(out[:produced])
	if status != squash.StatusOK {
		t.Fatalf("Flush: %v", status)
	}

	ds, status := squash.NewStream(c, squash.Decompress, nil)
	if status != squash.StatusOK {
		t.Fatalf("NewStream decompress: %v", status)
	}
	var decodedFirst bytes.Buffer
	consumed, produced, status = ds.Process(firstPart.Bytes(), out)
	decodedFirst.Write(out[:produced])
	if status != squash.StatusOK || consumed != firstPart.Len() {
		t.Fatalf("decompress Process(first part) = %d,%d,%v", consumed, produced, status)
	}
	if !bytes.Equal(decodedFirst.Bytes(), in[:n]) {
		t.Fatalf("decoded flush output = %q, want the first %d bytes", decodedFirst.Bytes(), n)
	}
	ds.Unref()

	var tail bytes.Buffer
	rest := in[n:]
	consumed, produced, status = cs.Process(rest, out)
	tail.Write(out[:produced])
	if status != squash.StatusOK || consumed != len(rest) {
		t.Fatalf("Process(remainder) = %d,%d,%v", consumed, produced, status)
	}
	_, produced, status = cs.Finish(nil, out)
	tail.Write(out[:produced])
	if status != squash.StatusOK {
		t.Fatalf("Finish: %v", status)
	}

	ds2, status := squash.NewStream(c, squash.Decompress, nil)
	if status != squash.StatusOK {
		t.Fatalf("NewStream decompress tail: %v", status)
	}
	defer ds2.Unref()
	var decodedTail bytes.Buffer
	consumed, produced, status = ds2.Process(tail.Bytes(), out)
	decodedTail.Write(out[:produced])
	if status != squash.StatusOK || consumed != tail.Len() {
		t.Fatalf("decompress Process(tail) = %d,%d,%v", consumed, produced, status)
	}
	if !bytes.Equal(decodedTail.Bytes(), rest) {
		t.Fatalf("decoded tail mismatch")
	}
}

// identityImpl is the same trivial identity codec used on both sides
// of the interop scenario below: the point is that two independently
// registered plugins agree on wire format, not that either does real
// compression.
func identityImpl(codecName string) (*squash.Implementation, squash.Status) {
	return &squash.Implementation{
		CompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			if outCap < len(in) {
				return nil, squash.StatusBufferFull
			}
			return append([]byte(nil), in...), squash.StatusOK
		},
		DecompressBuffer: func(codec *squash.Codec, outCap int, in []byte, opts *squash.Options) ([]byte, squash.Status) {
			if outCap < len(in) {
				return nil, squash.StatusBufferFull
			}
			return append([]byte(nil), in...), squash.StatusOK
		},
		GetMaxCompressedSize: func(codec *squash.Codec, inSize int) int { return inSize },
	}, squash.StatusOK
}

func init() {
	squash.RegisterBuiltin("interop-plugin-a", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"interop-codec": {Priority: 5},
		},
	}, identityImpl)
	squash.RegisterBuiltin("interop-plugin-b", squash.Manifest{
		Codecs: map[string]squash.ManifestCodec{
			"interop-codec": {Priority: 5},
		},
	}, identityImpl)
}

// TestScenarioInterop is spec §8 scenario 5: compressed output from
// one plugin's codec decompresses correctly via a different plugin
// registering the same codec name (equal priority, disambiguated here
// by the plugin-qualified lookup form rather than relying on which one
// the registry happens to prefer).
func TestScenarioInterop(t *testing.T) {
	a, status := squash.GetCodec("interop-plugin-a:interop-codec")
	if status != squash.StatusOK {
		t.Fatalf("GetCodec(a): %v", status)
	}
	b, status := squash.GetCodec("interop-plugin-b:interop-codec")
	if status != squash.StatusOK {
		t.Fatalf("GetCodec(b): %v", status)
	}
	if a == b {
		t.Fatalf("expected two distinct Codec values for the same bare name")
	}

	in := []byte(strings.Repeat("interop payload ", 30))
	compressed, status := a.Compress(in, nil)
	if status != squash.StatusOK {
		t.Fatalf("a.Compress: %v", status)
	}
	out, status := b.Decompress(compressed, nil)
	if status != squash.StatusOK {
		t.Fatalf("b.Decompress: %v", status)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("cross-plugin round trip mismatch")
	}
}

// TestStateMachineProcessAfterFinishIsState and
// TestStateMachineFlushWithoutCapabilityIsInvalidOperation are spec
// §8's state-machine-errors law, exercised against a real registered
// codec (zlib) rather than only the internal fake backend stream_test.go
// already covers.
func TestStateMachineProcessAfterFinishIsState(t *testing.T) {
	c, status := squash.GetCodec("zlib")
	if status != squash.StatusOK {
		t.Fatalf("GetCodec: %v", status)
	}
	s, status := squash.NewStream(c, squash.Compress, nil)
	if status != squash.StatusOK {
		t.Fatalf("NewStream: %v", status)
	}
	defer s.Unref()

	out := make([]byte, 256)
	for {
		_, _, status := s.Finish(nil, out)
		if status == squash.StatusOK {
			break
		}
		if status.IsError() {
			t.Fatalf("Finish: %v", status)
		}
	}
	if _, _, status := s.Process([]byte("x"), out); status != squash.StatusState {
		t.Errorf("Process after Finish = %v, want StatusState", status)
	}
}

func TestStateMachineFlushWithoutCapabilityIsInvalidOperation(t *testing.T) {
	c, status := squash.GetCodec("zlib")
	if status != squash.StatusOK {
		t.Fatalf("GetCodec: %v", status)
	}
	if c.Capabilities()&squash.CanFlush != 0 {
		t.Fatalf("zlib unexpectedly advertises CanFlush; this test needs a non-flushing codec")
	}
	s, status := squash.NewStream(c, squash.Compress, nil)
	if status != squash.StatusOK {
		t.Fatalf("NewStream: %v", status)
	}
	defer s.Unref()

	if _, _, status := s.Flush(nil, make([]byte, 16)); status != squash.StatusInvalidOperation {
		t.Errorf("Flush without CanFlush = %v, want StatusInvalidOperation", status)
	}
}
