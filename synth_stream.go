package squash

import "github.com/distr1/squash/internal/bridge"

// synthesizeStream picks the streaming engine for codec/direction out
// of whichever entry points impl provides (spec §4.4): a plugin's
// native CreateStream is used directly when present; otherwise a
// splice-backed plugin gets the cooperative worker bridge; otherwise a
// buffer-only plugin gets the accumulate-then-drain synthesis.
func synthesizeStream(codec *Codec, impl *Implementation, direction Direction, opts *Options) (StreamBackend, Status) {
	if impl.CreateStream != nil {
		return impl.CreateStream(codec, direction, opts)
	}
	if impl.Splice != nil {
		return newSpliceStreamBackend(codec, impl, direction, opts), StatusOK
	}
	if impl.CompressBuffer != nil || impl.CompressBufferUnsafe != nil || impl.DecompressBuffer != nil {
		return newBufferStreamBackend(codec, impl, direction, opts), StatusOK
	}
	return nil, StatusBadParam
}

// --- splice→stream bridge backend (spec §4.4 component I) ---

func toBridgeOp(op Operation) bridge.Operation {
	switch op {
	case OpProcess:
		return bridge.OpProcess
	case OpFlush:
		return bridge.OpFlush
	case OpFinish:
		return bridge.OpFinish
	default:
		return bridge.OpTerminate
	}
}

func fromBridgeStatus(s bridge.Status) Status {
	switch s {
	case bridge.StatusOK:
		return StatusOK
	case bridge.StatusProcessing:
		return StatusProcessing
	case bridge.StatusEndOfStream:
		return StatusEndOfStream
	default:
		if s.IsError() {
			return Status(s) // a negative Status passed through toBridgeStatus comes back unchanged
		}
		return StatusFailed
	}
}

func toBridgeStatus(s Status) bridge.Status {
	switch s {
	case StatusOK:
		return bridge.StatusOK
	case StatusProcessing:
		return bridge.StatusProcessing
	case StatusEndOfStream:
		return bridge.StatusEndOfStream
	default:
		return bridge.Status(s) // any negative Status passes through as a negative bridge.Status
	}
}

// spliceStreamBackend adapts an internal/bridge.Worker to the
// StreamBackend interface: the worker is spawned lazily, on the first
// Process call, since bridge.NewWorker requires the first window up
// front (a splice-backed stream has no "armed but idle" state).
type spliceStreamBackend struct {
	codec     *Codec
	impl      *Implementation
	direction Direction
	opts      *Options

	worker *bridge.Worker
}

func newSpliceStreamBackend(codec *Codec, impl *Implementation, direction Direction, opts *Options) *spliceStreamBackend {
	return &spliceStreamBackend{codec: codec, impl: impl, direction: direction, opts: opts}
}

func (b *spliceStreamBackend) spliceFn(read bridge.ReadFunc, write bridge.WriteFunc) bridge.Status {
	rf := func(p []byte) (int, Status) {
		n, s := read(p)
		return n, fromBridgeStatus(s)
	}
	wf := func(p []byte) (int, Status) {
		n, s := write(p)
		return n, fromBridgeStatus(s)
	}
	status := b.impl.Splice(b.codec, b.opts, b.direction, rf, wf)
	return toBridgeStatus(status)
}

func (b *spliceStreamBackend) Process(op Operation, in, out []byte) (int, int, Status) {
	req := bridge.Request{Op: toBridgeOp(op), In: in, Out: out}
	var res bridge.Result
	if b.worker == nil {
		b.worker = bridge.NewWorker(b.spliceFn, req)
		res = b.worker.Await()
	} else {
		res = b.worker.Drive(req)
	}
	return res.Consumed, res.Produced, fromBridgeStatus(res.Status)
}

func (b *spliceStreamBackend) Close() {
	if b.worker != nil {
		b.worker.Terminate()
	}
}

// --- buffer-accumulation synthesis (spec §4.4 "Synthesis over
// buffer-to-buffer") ---

// bufferStreamBackend accumulates all input, then on Finish runs the
// full buffer codec call and drains the result incrementally across
// however many calls the caller needs.
type bufferStreamBackend struct {
	codec     *Codec
	impl      *Implementation
	direction Direction
	opts      *Options

	accumulated Buffer
	result      []byte
	resultErr   Status
	finished    bool
	drained     int
}

func newBufferStreamBackend(codec *Codec, impl *Implementation, direction Direction, opts *Options) *bufferStreamBackend {
	return &bufferStreamBackend{codec: codec, impl: impl, direction: direction, opts: opts}
}

func (b *bufferStreamBackend) Process(op Operation, in, out []byte) (int, int, Status) {
	switch op {
	case OpProcess, OpFlush:
		b.accumulated.Append(in)
		return len(in), 0, StatusOK

	case OpFinish, OpTerminate:
		b.accumulated.Append(in)
		consumed := len(in)

		if !b.finished {
			b.runFull()
			b.finished = true
		}
		if b.resultErr.IsError() {
			return consumed, 0, b.resultErr
		}

		remaining := b.result[b.drained:]
		n := copy(out, remaining)
		b.drained += n
		if b.drained >= len(b.result) {
			return consumed, n, StatusOK
		}
		return consumed, n, StatusProcessing
	}
	return 0, 0, StatusBadParam
}

func (b *bufferStreamBackend) runFull() {
	in := b.accumulated.Bytes()
	if b.direction == Compress {
		if b.impl.CompressBufferUnsafe != nil {
			out, status := b.impl.CompressBufferUnsafe(b.codec, in, b.opts)
			b.result, b.resultErr = out, status
			return
		}
		maxSize := b.impl.GetMaxCompressedSize(b.codec, len(in))
		out, status := b.impl.CompressBuffer(b.codec, maxSize, in, b.opts)
		b.result, b.resultErr = out, status
		return
	}
	// A synthesized stream has no caller-supplied output size to pass
	// through to DecompressBuffer (unlike the buffer-shape entry point,
	// which the caller sizes directly) — fall back to the same
	// growing-buffer probing the buffer-to-buffer path uses when the
	// codec doesn't self-describe its size.
	out, status := b.codec.decompressGrowing(b.impl, in, b.opts)
	b.result, b.resultErr = out, status
}

func (b *bufferStreamBackend) Close() {}
