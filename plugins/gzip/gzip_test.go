package gzip_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/distr1/squash"
	_ "github.com/distr1/squash/plugins/gzip"
)

func TestGzipCompressDecompressRoundTrip(t *testing.T) {
	c, status := squash.GetCodec("gzip")
	if status != squash.StatusOK {
		t.Fatalf("GetCodec: %v", status)
	}
	in := []byte(strings.Repeat("gzip plugin round trip payload ", 50))

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

func TestGzipStreamRoundTrip(t *testing.T) {
	c, status := squash.GetCodec("gzip")
	if status != squash.StatusOK {
		t.Fatalf("GetCodec: %v", status)
	}
	in := []byte(strings.Repeat("gzip streamed through the splice bridge. ", 80))

	cs, status := squash.NewStream(c, squash.Compress, nil)
	if status != squash.StatusOK {
		t.Fatalf("NewStream compress: %v", status)
	}
	defer cs.Unref()

	var compressed bytes.Buffer
	out := make([]byte, 256)
	in1 := in
	for len(in1) > 0 {
		consumed, produced, status := cs.Process(in1, out)
		in1 = in1[consumed:]
		compressed.Write(out[:produced])
		if status.IsError() {
			t.Fatalf("Process: %v", status)
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

	ds, status := squash.NewStream(c, squash.Decompress, nil)
	if status != squash.StatusOK {
		t.Fatalf("NewStream decompress: %v", status)
	}
	defer ds.Unref()

	var decompressed bytes.Buffer
	compBytes := compressed.Bytes()
	for len(compBytes) > 0 {
		consumed, produced, status := ds.Process(compBytes, out)
		compBytes = compBytes[consumed:]
		decompressed.Write(out[:produced])
		if status.IsError() {
			t.Fatalf("Process decompress: %v", status)
		}
	}
	for {
		_, produced, status := ds.Finish(nil, out)
		decompressed.Write(out[:produced])
		if status == squash.StatusOK {
			break
		}
		if status.IsError() {
			t.Fatalf("Finish decompress: %v", status)
		}
	}

	if !bytes.Equal(decompressed.Bytes(), in) {
		t.Fatalf("stream round trip mismatch: got %d bytes, want %d", decompressed.Len(), len(in))
	}
}
