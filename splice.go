package squash

import "io"

// defaultSpliceBufferSize is the bounded buffer Splice/SpliceCustom
// move data through (spec §4.5 path (c): streaming with a bounded
// buffer — the only path available in Go, since there is no portable
// wrapper for splice(2) nor a reason to special-case mmap when the
// spec treats both as pure optimizations, §9).
const defaultSpliceBufferSize = 64 * 1024

// Splice transfers size bytes (0 means "the rest of src") from src to
// dst through codec, compressing or decompressing per direction (spec
// §4.5).
func Splice(codec *Codec, direction Direction, dst io.Writer, src io.Reader, size int64, opts *Options) Status {
	return SpliceCustom(codec, direction, readerToReadFunc(src), writerToWriteFunc(dst), size, opts)
}

// SpliceCustom is Splice's callback-based variant (spec §6.3
// splice_custom): size caps input bytes consumed when direction is
// Compress, and output bytes produced when direction is Decompress; 0
// means unbounded.
func SpliceCustom(codec *Codec, direction Direction, read ReadFunc, write WriteFunc, size int64, opts *Options) Status {
	impl, status := codec.implementation()
	if status != StatusOK {
		return status
	}
	backend, status := synthesizeStream(codec, impl, direction, opts)
	if status != StatusOK {
		return status
	}
	defer backend.Close()

	inLimited := direction == Compress && size > 0
	outLimited := direction == Decompress && size > 0

	inBuf := make([]byte, defaultSpliceBufferSize)
	outBuf := make([]byte, defaultSpliceBufferSize)

	var consumedTotal, producedTotal int64

	for {
		chunkCap := len(inBuf)
		if inLimited {
			remaining := size - consumedTotal
			if remaining < int64(chunkCap) {
				chunkCap = int(remaining)
			}
		}

		var n int
		var rstatus Status
		if chunkCap > 0 {
			n, rstatus = read(inBuf[:chunkCap])
		} else {
			rstatus = StatusEndOfStream
		}
		if rstatus.IsError() {
			return rstatus
		}

		op := OpProcess
		last := rstatus == StatusEndOfStream || (inLimited && consumedTotal+int64(n) >= size)
		if last {
			op = OpFinish
		}

		in := inBuf[:n]
		for {
			window := outBuf
			if outLimited {
				remaining := size - producedTotal
				if remaining <= 0 {
					return StatusEndOfStream
				}
				if int64(len(window)) > remaining {
					window = window[:remaining]
				}
			}

			consumed, produced, status := backend.Process(op, in, window)
			consumedTotal += int64(consumed)
			in = in[consumed:]

			if produced > 0 {
				if _, wstatus := write(window[:produced]); wstatus.IsError() {
					return wstatus
				}
				producedTotal += int64(produced)
				if outLimited && producedTotal >= size {
					return StatusEndOfStream
				}
			}

			if status.IsError() {
				return status
			}
			if status == StatusOK {
				break
			}
			if op == OpProcess && len(in) == 0 {
				// The whole chunk has been handed to the backend; it
				// reported PROCESSING only because it wants more input
				// than this chunk had (a splice-backed stream blocks
				// internally until its underlying writer is ready to
				// emit). Re-driving Process with an empty window here
				// would just spin forever — go back to the outer loop
				// and read the next chunk instead.
				break
			}
			// StatusProcessing: either more input remains to feed, or
			// the backend just needs a fresh output window — either
			// way, loop again.
		}

		if op == OpFinish {
			return StatusOK
		}
	}
}

func readerToReadFunc(r io.Reader) ReadFunc {
	return func(p []byte) (int, Status) {
		n, err := r.Read(p)
		switch {
		case err == io.EOF:
			if n > 0 {
				return n, StatusOK
			}
			return 0, StatusEndOfStream
		case err != nil:
			return n, StatusIO
		default:
			return n, StatusOK
		}
	}
}

func writerToWriteFunc(w io.Writer) WriteFunc {
	return func(p []byte) (int, Status) {
		n, err := w.Write(p)
		if err != nil {
			return n, StatusIO
		}
		return n, StatusOK
	}
}
