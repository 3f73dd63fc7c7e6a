package crush_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/distr1/squash"
	_ "github.com/distr1/squash/plugins/crush"
)

func TestCrushCompressDecompressRoundTrip(t *testing.T) {
	c, status := squash.GetCodec("crush")
	if status != squash.StatusOK {
		t.Fatalf("GetCodec: %v", status)
	}
	in := []byte(strings.Repeat("crush plugin round trip payload ", 50))

	compressed, status := c.CompressBuffer(1<<20, in, nil)
	if status != squash.StatusOK {
		t.Fatalf("CompressBuffer: %v", status)
	}
	decompressed, status := c.DecompressBuffer(len(in), compressed, nil)
	if status != squash.StatusOK {
		t.Fatalf("DecompressBuffer: %v", status)
	}
	if !bytes.Equal(decompressed, in) {
		t.Fatalf("round trip mismatch")
	}
}
