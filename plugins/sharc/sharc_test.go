package sharc_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/distr1/squash"
	_ "github.com/distr1/squash/plugins/sharc"
)

func TestSharcWrapSizeRoundTrip(t *testing.T) {
	c, status := squash.GetCodec("sharc")
	if status != squash.StatusOK {
		t.Fatalf("GetCodec: %v", status)
	}
	in := []byte(strings.Repeat("sharc wrap-size payload ", 50))

	wrapped, status := c.Compress(in, nil)
	if status != squash.StatusOK {
		t.Fatalf("Compress: %v", status)
	}
	// Sanity: the wrapped form must be at least long enough to hold a
	// varint prefix plus something, and differ from a bare Splice round
	// trip through CompressBuffer (which carries no prefix).
	raw, status := c.CompressBuffer(1<<20, in, nil)
	if status != squash.StatusOK {
		t.Fatalf("CompressBuffer: %v", status)
	}
	if len(wrapped) <= len(raw) {
		t.Fatalf("expected wrapped form to carry a length prefix: wrapped=%d raw=%d", len(wrapped), len(raw))
	}

	out, status := c.Decompress(wrapped, nil)
	if status != squash.StatusOK {
		t.Fatalf("Decompress: %v", status)
	}
	if !bytes.Equal(out, in) {
		t.Fatalf("round trip mismatch")
	}
}
