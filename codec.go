package squash

import "sync"

// Direction selects compression or decompression for a stream or splice
// call.
type Direction int

const (
	Compress Direction = iota
	Decompress
)

// Capability is a bitmask of the optional behaviors a codec advertises
// (spec §4.2).
type Capability uint32

const (
	// CanFlush: the backend supports mid-stream flush.
	CanFlush Capability = 1 << iota
	// KnowsUncompressedSize: the compressed stream self-describes its
	// decompressed length.
	KnowsUncompressedSize
	// NativeStreaming: the plugin has a true streaming API.
	NativeStreaming
	// WrapSize: the core prefixes compressed bytes with a varint
	// uncompressed length, and decodes it on the way back.
	WrapSize
	// DecompressUnsafe: decompression is not safe on untrusted input
	// (purely informational).
	DecompressUnsafe
)

func (c Capability) has(bit Capability) bool { return c&bit != 0 }

// ReadFunc fills p from the splice/stream source, returning the number
// of bytes read and a Status (StatusOK/StatusProcessing while more is
// expected, StatusEndOfStream once exhausted, negative on error).
type ReadFunc func(p []byte) (n int, status Status)

// WriteFunc drains p to the splice/stream sink, returning the number of
// bytes accepted and a Status.
type WriteFunc func(p []byte) (n int, status Status)

// Implementation is the per-codec vtable a plugin fills in (spec §4.2,
// §6.1). At least one of CreateStream/Splice/DecompressBuffer/
// CompressBuffer/CompressBufferUnsafe must be non-nil;
// GetMaxCompressedSize is mandatory.
type Implementation struct {
	Capabilities Capability

	// Schema is the codec's statically-supplied option schema (spec
	// §3 OptionSchema): installed onto the owning Codec the first time
	// initialization succeeds.
	Schema OptionSchema

	CreateStream  func(codec *Codec, direction Direction, opts *Options) (StreamBackend, Status)
	Splice        func(codec *Codec, opts *Options, direction Direction, read ReadFunc, write WriteFunc) Status
	DecompressBuffer func(codec *Codec, outSize int, in []byte, opts *Options) (out []byte, status Status)
	CompressBuffer   func(codec *Codec, outCap int, in []byte, opts *Options) (out []byte, status Status)
	// CompressBufferUnsafe may assume outCap >= GetMaxCompressedSize(len(in));
	// it may write up to that bound without additional bounds-checking.
	CompressBufferUnsafe func(codec *Codec, in []byte, opts *Options) (out []byte, status Status)

	GetUncompressedSize func(codec *Codec, in []byte) (size int, ok bool)
	// GetMaxCompressedSize is required: worst-case output size for an
	// input of inSize bytes.
	GetMaxCompressedSize func(codec *Codec, inSize int) int
}

// validate checks the vtable contract from spec §4.2.
func (impl *Implementation) validate() Status {
	if impl.GetMaxCompressedSize == nil {
		return StatusBadParam
	}
	if impl.CreateStream == nil && impl.Splice == nil &&
		impl.DecompressBuffer == nil && impl.CompressBuffer == nil &&
		impl.CompressBufferUnsafe == nil {
		return StatusBadParam
	}
	return StatusOK
}

// StreamBackend is what a plugin's CreateStream returns: the native
// streaming half of the Implementation vtable (entry point 1 in §4.2).
type StreamBackend interface {
	// Process consumes from in and produces into out, advancing both
	// and returning how much of each it used, plus a Status. op is one
	// of OpProcess/OpFlush/OpFinish.
	Process(op Operation, in []byte, out []byte) (consumed, produced int, status Status)
	// Close releases any backend-private resources.
	Close()
}

// Codec is a named compression algorithm realization, owned by one
// Plugin (spec §3). Codecs are created during manifest parsing and
// mutated only during one-shot initialization; thereafter immutable.
type Codec struct {
	Name      string
	Priority  uint32
	Extension string
	Plugin    *Plugin
	Schema    OptionSchema

	mu          sync.Mutex
	initialized bool
	impl        *Implementation
	initErr     Status
}

// Capabilities returns the codec's capability bitmask, or 0 if it
// hasn't been initialized.
func (c *Codec) Capabilities() Capability {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.impl == nil {
		return 0
	}
	return c.impl.Capabilities
}

// GetMaxCompressedSize reports the worst-case compressed size for an
// input of inSize bytes (spec §3, entry point 7): the backend's raw
// bound, which Compress itself allocates against before calling into
// CompressBuffer(Unsafe), plus, for a WrapSize codec, room for the
// core-managed length prefix Compress prepends, so the bound stays a
// true upper limit on Compress's actual return value, not just the raw
// backend payload.
func (c *Codec) GetMaxCompressedSize(inSize int) (int, Status) {
	impl, status := c.implementation()
	if status != StatusOK {
		return 0, status
	}
	size := impl.GetMaxCompressedSize(c, inSize)
	if c.Capabilities().has(WrapSize) {
		size += maxVarintLen
	}
	return size, StatusOK
}

// implementation returns the initialized vtable, initializing the codec
// first if necessary (spec §4.6).
func (c *Codec) implementation() (*Implementation, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return c.impl, c.initErr
	}
	impl, status := c.Plugin.initCodec(c.Name)
	c.initialized = true
	if status != StatusOK {
		c.initErr = status
		return nil, status
	}
	if v := impl.validate(); v != StatusOK {
		c.initErr = v
		return nil, v
	}
	c.impl = impl
	c.initErr = StatusOK
	if impl.Schema != nil {
		c.Schema = impl.Schema
	}
	return c.impl, StatusOK
}
