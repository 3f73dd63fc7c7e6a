package squash

import (
	"io"
	"os"
	"sync"
)

// fileBufSize is the internal I/O buffer a File uses between its
// stdio-like handle and its lazily-created Stream (spec §3 File,
// mirroring the reference implementation's SQUASH_FILE_BUF_SIZE).
const fileBufSize = 1 << 20

// File is a buffered, stdio-like read/write layer atop a Stream (spec
// §3 File / component K): a single File is always exclusively a
// decompressor or a compressor, decided by the first Read or Write
// call made on it.
//
// File exposes a Lock/Unlock pair for callers that want to group
// several *Unlocked operations atomically (spec §5: "the exception is
// File, which carries a recursive mutex"). Go has no native recursive
// mutex, so unlike the reference implementation's internal locking,
// the locked and unlocked entry points are two distinct method sets —
// callers pick one discipline or the other for a given File, never
// both concurrently.
type File struct {
	mu sync.Mutex

	rw     io.ReadWriter
	closer io.Closer

	codec *Codec
	opts  *Options

	stream    *Stream
	direction Direction
	haveDir   bool

	buf     []byte
	pending []byte // unconsumed input left over from the last underlying Read
	eof     bool   // underlying reader has returned io.EOF
	done    bool   // stream has fully finished (Read will return StatusEndOfStream)
	lastErr Status
}

// Open opens filename with the given os.OpenFile flags/perm and wraps
// it in a File for codec (spec §6.3 file_open).
func Open(codec *Codec, filename string, flag int, perm os.FileMode, opts *Options) (*File, Status) {
	f, err := os.OpenFile(filename, flag, perm)
	if err != nil {
		return nil, StatusIO
	}
	return NewFile(codec, f, f, opts), StatusOK
}

// NewFile wraps an existing reader/writer/closer in a File (spec
// squash_file_steal_*): useful for stdin/stdout or any io.ReadWriter
// the caller already owns.
func NewFile(codec *Codec, rw io.ReadWriter, closer io.Closer, opts *Options) *File {
	if opts != nil {
		opts.Ref()
	}
	return &File{
		rw:     rw,
		closer: closer,
		codec:  codec,
		opts:   opts,
		buf:    make([]byte, fileBufSize),
	}
}

// Lock/Unlock group several *Unlocked calls into one atomic section.
func (f *File) Lock()   { f.mu.Lock() }
func (f *File) Unlock() { f.mu.Unlock() }

func (f *File) ensureStream(direction Direction) Status {
	if f.haveDir && f.direction != direction {
		return StatusInvalidOperation
	}
	if f.stream != nil {
		return StatusOK
	}
	s, status := NewStream(f.codec, direction, f.opts)
	if status != StatusOK {
		return status
	}
	f.stream = s
	f.direction = direction
	f.haveDir = true
	return StatusOK
}

// Read decompresses into p, returning how much of p it filled (spec
// §6.3 file_read). Returns StatusEndOfStream once the underlying
// reader and the decompressor have both been fully drained.
func (f *File) Read(p []byte) (int, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ReadUnlocked(p)
}

// ReadUnlocked is Read without taking the lock; the caller must
// already hold it via Lock.
func (f *File) ReadUnlocked(p []byte) (int, Status) {
	if f.lastErr.IsError() {
		return 0, f.lastErr
	}
	if f.done {
		return 0, StatusEndOfStream
	}
	if status := f.ensureStream(Decompress); status != StatusOK {
		f.lastErr = status
		return 0, status
	}

	out := p
	produced := 0

	for len(out) > 0 {
		if len(f.pending) == 0 && !f.eof {
			n, err := f.rw.Read(f.buf)
			f.pending = f.buf[:n]
			if err == io.EOF {
				f.eof = true
			} else if err != nil {
				f.lastErr = StatusIO
				return produced, StatusIO
			}
		}

		var consumed, n int
		var status Status
		if f.eof {
			consumed, n, status = f.stream.Finish(f.pending, out)
		} else {
			consumed, n, status = f.stream.Process(f.pending, out)
		}
		f.pending = f.pending[consumed:]
		produced += n
		out = out[n:]

		if status.IsError() {
			f.lastErr = status
			return produced, status
		}
		if status == StatusOK && f.eof {
			f.done = true
			break
		}
		if status == StatusOK && !f.eof && n == 0 && len(f.pending) == 0 {
			continue // need another underlying Read before more progress is possible
		}
		// StatusProcessing, or StatusOK with room still to fill: loop.
	}

	if produced == 0 && f.done {
		return 0, StatusEndOfStream
	}
	return produced, StatusOK
}

// Write compresses p, emitting output to the underlying writer as the
// codec's internal buffering allows (spec §6.3 file_write).
func (f *File) Write(p []byte) (int, Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.WriteUnlocked(p)
}

// WriteUnlocked is Write without taking the lock.
func (f *File) WriteUnlocked(p []byte) (int, Status) {
	return f.writeInternal(p, OpProcess)
}

func (f *File) writeInternal(p []byte, op Operation) (int, Status) {
	if f.lastErr.IsError() {
		return 0, f.lastErr
	}
	if status := f.ensureStream(Compress); status != StatusOK {
		f.lastErr = status
		return 0, status
	}

	in := p
	out := make([]byte, fileBufSize)
	consumedTotal := 0

	for {
		var consumed, produced int
		var status Status
		switch op {
		case OpFlush:
			consumed, produced, status = f.stream.Flush(in, out)
		case OpFinish:
			consumed, produced, status = f.stream.Finish(in, out)
		default:
			consumed, produced, status = f.stream.Process(in, out)
		}
		in = in[consumed:]
		consumedTotal += consumed

		if produced > 0 {
			if _, err := f.rw.Write(out[:produced]); err != nil {
				f.lastErr = StatusIO
				return consumedTotal, StatusIO
			}
		}
		if status.IsError() {
			f.lastErr = status
			return consumedTotal, status
		}
		if status == StatusOK {
			if len(in) == 0 {
				return consumedTotal, StatusOK
			}
			continue
		}
		// StatusProcessing: backend needs another round, either to
		// consume the rest of in or to drain more output.
	}
}

// Flush immediately writes any buffered compressed data (spec §6.3
// file_flush); returns StatusInvalidOperation for codecs that don't
// advertise CanFlush.
func (f *File) Flush() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FlushUnlocked()
}

// FlushUnlocked is Flush without taking the lock.
func (f *File) FlushUnlocked() Status {
	if f.stream == nil {
		return StatusOK
	}
	if f.direction != Compress {
		return StatusInvalidOperation
	}
	_, status := f.writeInternal(nil, OpFlush)
	return status
}

// EOF reports whether the decompressor has been fully drained.
func (f *File) EOF() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Error returns the last negative Status this File encountered, or
// StatusOK if none.
func (f *File) Error() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lastErr.IsError() {
		return f.lastErr
	}
	return StatusOK
}

// Close finishes a compressing File's stream (flushing any buffered
// output) and closes the underlying handle (spec §6.3 file_close).
func (f *File) Close() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	status := StatusOK
	if f.stream != nil && f.direction == Compress {
		_, status = f.writeInternal(nil, OpFinish)
	}
	if f.stream != nil {
		f.stream.Unref()
		f.stream = nil
	}
	f.opts.Unref()
	if f.closer != nil {
		if err := f.closer.Close(); err != nil && !status.IsError() {
			return StatusIO
		}
	}
	return status
}
