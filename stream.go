package squash

import "sync"

// Operation is one of the four values the stream state machine
// understands (spec glossary): Process/Flush/Finish are driven by
// callers, Terminate is internal (issued only by Stream teardown).
type Operation int

const (
	OpProcess Operation = iota
	OpFlush
	OpFinish
	OpTerminate
)

// level is an operation's position in the process < flush < finish
// ordering used by the state machine's ordering invariant (spec §4.4).
func (op Operation) level() int {
	switch op {
	case OpProcess:
		return 1
	case OpFlush:
		return 2
	case OpFinish:
		return 3
	default:
		return 4
	}
}

// State is a Stream's position in the state machine (spec §4.4).
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFlushing
	StateFinishing
	StateFinished
)

// level mirrors Operation.level: the state a stream is left in after an
// operation carries that operation's level, and the ordering invariant
// compares an incoming operation's level against the current state's.
func (s State) level() int {
	switch s {
	case StateIdle:
		return 0
	case StateRunning:
		return 1
	case StateFlushing:
		return 2
	case StateFinishing:
		return 3
	case StateFinished:
		return 4
	default:
		return 4
	}
}

// streamBackend is the internal engine a Stream drives: either a
// plugin's native StreamBackend, the splice→stream bridge, or the
// buffer-accumulation synthesis, chosen by synthesizeStream (spec
// §4.4). All three speak the same Process/Close shape as the public
// Implementation.CreateStream contract.
type streamBackend = StreamBackend

// Stream is the incremental push API (spec §3, §4.4): process → flush
// → finish, with a caller-managed I/O window and a bounded-buffer
// handshake when backed by synthesis. Not intrinsically thread-safe
// (spec §5) — callers own synchronization of a single Stream.
type Stream struct {
	refCount

	codec     *Codec
	direction Direction
	opts      *Options

	mu      sync.Mutex
	state   State
	backend streamBackend

	totalIn  int64
	totalOut int64

	// latched holds the first negative status this stream has ever
	// returned; once set, every subsequent call returns it unchanged
	// without touching the backend again (spec §7 propagation rule).
	latched Status
}

// NewStream creates a Stream over codec for direction, synthesizing
// whichever engine the codec's Implementation supports (spec §4.4).
// Takes a reference on opts (may be nil, in which case schema defaults
// apply).
func NewStream(codec *Codec, direction Direction, opts *Options) (*Stream, Status) {
	impl, status := codec.implementation()
	if status != StatusOK {
		return nil, status
	}
	if opts == nil {
		opts = NewOptions(codec)
	} else {
		opts.Ref()
	}

	backend, status := synthesizeStream(codec, impl, direction, opts)
	if status != StatusOK {
		opts.Unref()
		return nil, status
	}

	s := &Stream{
		codec:     codec,
		direction: direction,
		opts:      opts,
		state:     StateIdle,
	}
	s.backend = backend
	s.refCount = newOwnedRef(s.destroy)
	return s, StatusOK
}

func (s *Stream) destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend != nil {
		s.backend.Close()
		s.backend = nil
	}
	s.opts.Unref()
}

// Ref/Unref follow the ownership rules in spec §3.
func (s *Stream) Ref() *Stream { s.refCount.ref(); return s }
func (s *Stream) Unref()       { s.refCount.unref() }

// Codec returns the stream's codec.
func (s *Stream) Codec() *Codec { return s.codec }

// Direction returns the stream's compress/decompress direction.
func (s *Stream) Direction() Direction { return s.direction }

// TotalIn and TotalOut report running totals across every call made so
// far (spec §4.4 I/O window contract).
func (s *Stream) TotalIn() int64  { s.mu.Lock(); defer s.mu.Unlock(); return s.totalIn }
func (s *Stream) TotalOut() int64 { s.mu.Lock(); defer s.mu.Unlock(); return s.totalOut }

// Process feeds in into the stream and drains as much compressed (or
// decompressed) output into out as is available, returning how much of
// each it consumed/produced.
func (s *Stream) Process(in, out []byte) (consumed, produced int, status Status) {
	return s.step(OpProcess, in, out)
}

// Flush requests the backend emit everything it can reconstruct
// without more input, without ending the stream. Returns
// StatusInvalidOperation if the codec lacks CanFlush.
func (s *Stream) Flush(in, out []byte) (consumed, produced int, status Status) {
	return s.step(OpFlush, in, out)
}

// Finish signals end of input and drains the remaining output,
// transitioning the stream to Finished on success.
func (s *Stream) Finish(in, out []byte) (consumed, produced int, status Status) {
	return s.step(OpFinish, in, out)
}

func (s *Stream) step(op Operation, in, out []byte) (int, int, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latched.IsError() {
		return 0, 0, s.latched
	}
	if s.state == StateFinished {
		return 0, 0, StatusState
	}
	if op.level() < s.state.level() {
		return 0, 0, StatusState
	}
	if op == OpFlush && !s.codec.Capabilities().has(CanFlush) {
		return 0, 0, StatusInvalidOperation
	}

	// Zero-output-buffer sentinel (spec §4.4): substitute a one-byte
	// internal buffer so plugins that refuse to make progress on an
	// empty output window can still be driven forward.
	sentinel := false
	if len(out) == 0 {
		out = make([]byte, 1)
		sentinel = true
	}

	consumed, produced, status := s.backend.Process(op, in, out)
	s.totalIn += int64(consumed)
	s.totalOut += int64(produced)

	if sentinel && produced > 0 {
		// The plugin actually wrote into the sentinel byte, which the
		// caller has no room for: unrecoverable for this window.
		produced = 0
		status = StatusBufferFull
	}

	// Return-code canonicalization (spec §4.4): END_OF_STREAM from a
	// finish call is treated as OK.
	if op == OpFinish && status == StatusEndOfStream {
		status = StatusOK
	}

	switch {
	case status.IsError():
		s.latched = status
		s.state = StateFinished
	case status == StatusOK:
		switch op {
		case OpFinish:
			s.state = StateFinished
		default:
			s.state = StateIdle
		}
	case status == StatusProcessing:
		switch op {
		case OpProcess:
			s.state = StateRunning
		case OpFlush:
			s.state = StateFlushing
		case OpFinish:
			s.state = StateFinishing
		}
	case status == StatusEndOfStream:
		s.state = StateFinished
	}

	return consumed, produced, status
}
