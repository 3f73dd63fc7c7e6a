// Command squashcat is a thin CLI over the squash package: it
// compresses or decompresses a single stream using whichever codec is
// named or inferred from the output/input file extension.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/distr1/squash"

	_ "github.com/distr1/squash/plugins/brotli"
	_ "github.com/distr1/squash/plugins/crush"
	_ "github.com/distr1/squash/plugins/deflate"
	_ "github.com/distr1/squash/plugins/density"
	_ "github.com/distr1/squash/plugins/gzip"
	_ "github.com/distr1/squash/plugins/lz4"
	_ "github.com/distr1/squash/plugins/ncompress"
	_ "github.com/distr1/squash/plugins/s2"
	_ "github.com/distr1/squash/plugins/sharc"
	_ "github.com/distr1/squash/plugins/snappy"
	_ "github.com/distr1/squash/plugins/xpress"
	_ "github.com/distr1/squash/plugins/zlib"
	_ "github.com/distr1/squash/plugins/zstd"
)

var (
	codecName = flag.String("codec", "", "codec to use (zlib, gzip, deflate, lz4, zstd, s2, snappy, brotli, ncompress, crush, density, sharc, xpress); inferred from -o's extension when omitted")
	output    = flag.String("o", "", "output path (default: stdout)")
	option    = flag.String("option", "", "codec option as name=value, e.g. level=9")
)

const ioBufSize = 64 * 1024

// readWriter adapts a one-directional os.File (or os.Stdin/os.Stdout)
// into the io.ReadWriter squash.NewFile requires; the unused half is
// never called because a File's direction is locked by its first use.
type readWriter struct {
	io.Reader
	io.Writer
}

func codecOptions(codec *squash.Codec) (*squash.Options, error) {
	opts := squash.NewOptions(codec)
	if *option == "" {
		return opts, nil
	}
	name, value, ok := strings.Cut(*option, "=")
	if !ok {
		return nil, fmt.Errorf("-option must be name=value, got %q", *option)
	}
	if status := opts.ParseOption(name, value); status != squash.StatusOK {
		return nil, fmt.Errorf("option %s: %v", name, status)
	}
	return opts, nil
}

func resolveCodec(outPath, inPath string) (*squash.Codec, error) {
	if *codecName != "" {
		codec, status := squash.GetCodec(*codecName)
		if status != squash.StatusOK {
			return nil, fmt.Errorf("codec %q: %v", *codecName, status)
		}
		return codec, nil
	}
	for _, path := range []string{outPath, inPath} {
		ext := extOf(path)
		if ext == "" {
			continue
		}
		if codec, status := squash.GetCodecFromExtension(ext); status == squash.StatusOK {
			return codec, nil
		}
	}
	return nil, fmt.Errorf("no -codec given and none could be inferred from %q / %q", outPath, inPath)
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func runCompress(inPath string) error {
	in, err := openInput(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := openOutput(*output)
	if err != nil {
		return err
	}

	codec, err := resolveCodec(*output, inPath)
	if err != nil {
		out.Close()
		return err
	}
	opts, err := codecOptions(codec)
	if err != nil {
		out.Close()
		return err
	}

	f := squash.NewFile(codec, readWriter{Writer: out}, out, opts)
	buf := make([]byte, ioBufSize)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, status := f.Write(buf[:n]); status != squash.StatusOK {
				f.Close()
				return fmt.Errorf("compress: %v", status)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			return fmt.Errorf("read %s: %w", inPath, rerr)
		}
	}
	if status := f.Close(); status != squash.StatusOK {
		return fmt.Errorf("finishing compression: %v", status)
	}
	return nil
}

func runDecompress(inPath string) error {
	in, err := openInput(inPath)
	if err != nil {
		return err
	}

	out, err := openOutput(*output)
	if err != nil {
		in.Close()
		return err
	}
	defer out.Close()

	codec, err := resolveCodec(inPath, inPath)
	if err != nil {
		in.Close()
		return err
	}
	opts, err := codecOptions(codec)
	if err != nil {
		in.Close()
		return err
	}

	f := squash.NewFile(codec, readWriter{Reader: in}, in, opts)
	buf := make([]byte, ioBufSize)
	for {
		n, status := f.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", *output, err)
			}
		}
		if status == squash.StatusEndOfStream {
			break
		}
		if status.IsError() {
			f.Close()
			return fmt.Errorf("decompress: %v", status)
		}
	}
	if status := f.Close(); status != squash.StatusOK {
		return fmt.Errorf("closing decompressor: %v", status)
	}
	return nil
}

func run() error {
	flag.Parse()
	verb := flag.Arg(0)
	inPath := flag.Arg(1)

	switch verb {
	case "compress":
		return runCompress(inPath)
	case "decompress":
		return runDecompress(inPath)
	case "list":
		return listCodecs()
	default:
		return fmt.Errorf("usage: squashcat [-codec name] [-o path] [-option name=value] <compress|decompress|list> [input]")
	}
}

func listCodecs() error {
	for _, name := range []string{"zlib", "gzip", "deflate", "lz4", "zstd", "s2", "snappy", "brotli", "ncompress", "crush", "density", "sharc", "xpress"} {
		codec, status := squash.GetCodec(name)
		if status != squash.StatusOK {
			fmt.Printf("%-10s unavailable: %v\n", name, status)
			continue
		}
		fmt.Printf("%-10s extension=%-10s capabilities=%v\n", name, codec.Extension, codec.Capabilities())
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "squashcat:", err)
		os.Exit(1)
	}
}
