package squash

// Buffer→buffer synthesis (spec §4.3): Codec.Compress/Decompress pick
// the cheapest entry point a plugin provides (direct buffer call,
// single-pass splice over two buffers, or a full stream drive),
// applying the WRAP_SIZE length prefix and the decompress-to-growing-
// buffer retry policy around whichever one is used.

// Compress compresses the whole of in in one call, automatically
// sizing the output to the codec's worst case (plus a WRAP_SIZE prefix
// if the codec advertises it).
func (c *Codec) Compress(in []byte, opts *Options) ([]byte, Status) {
	impl, status := c.implementation()
	if status != StatusOK {
		return nil, status
	}
	maxSize := impl.GetMaxCompressedSize(c, len(in))

	var prefix []byte
	if c.Capabilities().has(WrapSize) {
		prefix = appendVarint(nil, uint64(len(in)))
	}

	compressed, status := c.compressRaw(impl, maxSize, in, opts)
	if status != StatusOK {
		return nil, status
	}
	if prefix == nil {
		return compressed, StatusOK
	}
	out := make([]byte, 0, len(prefix)+len(compressed))
	out = append(out, prefix...)
	out = append(out, compressed...)
	return out, StatusOK
}

// CompressBuffer compresses in into a buffer of at most outCap bytes,
// honoring the caller's cap exactly as the underlying vtable entry
// point would (spec §4.3 point 2): BufferFull is returned, not
// retried, if outCap is smaller than necessary. Unlike Compress, this
// does not apply a WRAP_SIZE prefix — it is the raw per-call shape.
func (c *Codec) CompressBuffer(outCap int, in []byte, opts *Options) ([]byte, Status) {
	impl, status := c.implementation()
	if status != StatusOK {
		return nil, status
	}
	return c.compressRaw(impl, outCap, in, opts)
}

func (c *Codec) compressRaw(impl *Implementation, outCap int, in []byte, opts *Options) ([]byte, Status) {
	maxSize := impl.GetMaxCompressedSize(c, len(in))

	switch {
	case impl.CompressBuffer != nil || impl.CompressBufferUnsafe != nil:
		if outCap >= maxSize && impl.CompressBufferUnsafe != nil {
			return impl.CompressBufferUnsafe(c, in, opts)
		}
		if impl.CompressBuffer != nil {
			return impl.CompressBuffer(c, outCap, in, opts)
		}
		// Only the unsafe entry point exists but the caller's cap is
		// below the worst case: still safe to call since it always
		// writes at most maxSize bytes, but the caller asked for a
		// smaller cap, which the unsafe entry point can't honor.
		return nil, StatusBufferFull

	case impl.Splice != nil:
		return spliceBufferToBuffer(c, impl, Compress, outCap, in, opts)

	default:
		return streamBufferToBuffer(c, impl, Compress, outCap, in, opts)
	}
}

// Decompress decompresses the whole of in in one call. If the codec
// advertises WrapSize, the varint-prefixed uncompressed length drives
// allocation directly; if it advertises KnowsUncompressedSize, the
// backend is asked to peek the size from its own header; otherwise the
// growing-buffer retry policy (spec §4.3) is used.
func (c *Codec) Decompress(in []byte, opts *Options) ([]byte, Status) {
	impl, status := c.implementation()
	if status != StatusOK {
		return nil, status
	}

	if c.Capabilities().has(WrapSize) {
		declared, n, ok := readVarint(in)
		if !ok {
			return nil, StatusInvalidBuffer
		}
		payload := in[n:]
		out, status := c.decompressRaw(impl, int(declared), payload, opts)
		if status != StatusOK {
			return nil, status
		}
		if uint64(len(out)) != declared {
			return nil, StatusInvalidBuffer
		}
		return out, StatusOK
	}

	if c.Capabilities().has(KnowsUncompressedSize) && impl.GetUncompressedSize != nil {
		if size, ok := impl.GetUncompressedSize(c, in); ok {
			return c.decompressRaw(impl, size, in, opts)
		}
	}

	return c.decompressGrowing(impl, in, opts)
}

// DecompressBuffer decompresses in into a buffer of at most outCap
// bytes (the raw per-call shape, spec §4.3 mirror of CompressBuffer;
// no WRAP_SIZE handling).
func (c *Codec) DecompressBuffer(outCap int, in []byte, opts *Options) ([]byte, Status) {
	impl, status := c.implementation()
	if status != StatusOK {
		return nil, status
	}
	return c.decompressRaw(impl, outCap, in, opts)
}

func (c *Codec) decompressRaw(impl *Implementation, outSize int, in []byte, opts *Options) ([]byte, Status) {
	switch {
	case impl.DecompressBuffer != nil:
		return impl.DecompressBuffer(c, outSize, in, opts)
	case impl.Splice != nil:
		return spliceBufferToBuffer(c, impl, Decompress, outSize, in, opts)
	default:
		return streamBufferToBuffer(c, impl, Decompress, outSize, in, opts)
	}
}

// decompressGrowing implements the "Decompress-to-growing-buffer"
// policy (spec §4.3): start at nextPow2(len(in))<<3 - 1 (nextPow2
// floors at the page size),
// double on BufferFull, and if the codec ever reports RANGE (its own
// API caps buffer size below what the worst case would demand),
// switch to halving instead. Gives up once growth stops changing the
// size without success.
func (c *Codec) decompressGrowing(impl *Implementation, in []byte, opts *Options) ([]byte, Status) {
	size := nextPow2(len(in))<<3 - 1
	if size < 1 {
		size = 1
	}
	growing := true

	for attempt := 0; attempt < 64; attempt++ {
		out, status := c.decompressRaw(impl, size, in, opts)
		switch status {
		case StatusOK:
			return out, StatusOK
		case StatusBufferFull:
			if !growing {
				return nil, StatusBufferFull
			}
			size *= 2
		case StatusRange:
			growing = false
			next := size / 2
			if next == size || next < 1 {
				return nil, StatusRange
			}
			size = next
		default:
			return nil, status
		}
	}
	return nil, StatusMemory
}

// spliceBufferToBuffer drives a plugin's Splice entry point over two
// in-memory buffers in a single pass (spec §4.3 point 3): the read
// callback walks in, the write callback walks a fixed-capacity output
// slice, overflowing with BufferFull.
func spliceBufferToBuffer(codec *Codec, impl *Implementation, direction Direction, outCap int, in []byte, opts *Options) ([]byte, Status) {
	out := make([]byte, 0, outCap)
	pos := 0

	read := func(p []byte) (int, Status) {
		n := copy(p, in[pos:])
		pos += n
		if pos >= len(in) {
			if n > 0 {
				return n, StatusOK
			}
			return 0, StatusEndOfStream
		}
		return n, StatusOK
	}
	write := func(p []byte) (int, Status) {
		if len(out)+len(p) > outCap {
			room := outCap - len(out)
			out = append(out, p[:room]...)
			return room, StatusBufferFull
		}
		out = append(out, p...)
		return len(p), StatusOK
	}

	status := impl.Splice(codec, opts, direction, read, write)
	if status != StatusOK {
		return nil, status
	}
	return out, StatusOK
}

// streamBufferToBuffer drives a synthesized stream over two in-memory
// buffers when only the streaming shape is available (spec §4.3 point
// 4). It hands the whole input to OpFinish calls, repeated until the
// stream reports OK; it issues no separate OpProcess call.
func streamBufferToBuffer(codec *Codec, impl *Implementation, direction Direction, outCap int, in []byte, opts *Options) ([]byte, Status) {
	backend, status := synthesizeStream(codec, impl, direction, opts)
	if status != StatusOK {
		return nil, status
	}
	defer backend.Close()

	out := make([]byte, outCap)
	produced := 0
	remainingIn := in

	for {
		window := out[produced:]
		if len(window) == 0 {
			return nil, StatusBufferFull
		}
		consumed, n, status := backend.Process(OpFinish, remainingIn, window)
		remainingIn = remainingIn[consumed:]
		produced += n
		switch {
		case status == StatusOK:
			return out[:produced], StatusOK
		case status == StatusProcessing:
			continue
		default:
			return nil, status
		}
	}
}
