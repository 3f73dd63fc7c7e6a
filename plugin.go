package squash

import (
	"fmt"
	"path/filepath"
	"plugin"
	"sync"

	"golang.org/x/xerrors"
)

// Manifest is the parsed form of a plugin's squash.ini (spec §4.1,
// §6.2): one section per codec name.
type Manifest struct {
	Codecs map[string]ManifestCodec
}

// ManifestCodec is one section of a manifest.
type ManifestCodec struct {
	License   []string
	Priority  uint32
	Extension string
}

// InitFunc initializes one codec by name, returning its vtable. It
// plays the role of the plugin ABI's plugin_init_codec symbol (spec
// §6.1).
type InitFunc func(codecName string) (*Implementation, Status)

// Plugin is a discoverable, lazily loaded unit that publishes one or
// more codecs (spec §3). Library load and the plugin's self-
// registration callback fire on first use, under Plugin.mu, matching
// the one-shot-per-plugin lifecycle described in §4.6/§5.
type Plugin struct {
	Name      string
	Directory string // empty for built-in plugins
	Manifest  Manifest

	mu       sync.Mutex
	loaded   bool
	loadErr  Status
	handle   *plugin.Plugin
	initFunc InitFunc // set once loaded, either from the .so or a builtin

	Codecs map[string]*Codec
}

// Licenses returns the plugin's declared license tags, deduplicated
// across its codecs' manifest sections.
func (p *Plugin) Licenses() []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range p.Manifest.Codecs {
		for _, l := range c.License {
			if !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	return out
}

// load ensures the plugin's backing shared library (or built-in
// registration) has been resolved. Safe for concurrent use; the actual
// load happens at most once (spec §4.6, §5).
func (p *Plugin) load() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return p.loadErr
	}
	p.loaded = true

	if p.initFunc != nil {
		// Already wired up as a built-in via RegisterBuiltin.
		p.loadErr = StatusOK
		return StatusOK
	}

	if p.Directory == "" {
		p.loadErr = StatusUnableToLoad
		return p.loadErr
	}

	libPath := filepath.Join(p.Directory, sharedLibraryName(p.Name))
	handle, err := plugin.Open(libPath)
	if err != nil {
		p.loadErr = StatusUnableToLoad
		return p.loadErr
	}
	sym, err := handle.Lookup("PluginInitCodec")
	if err != nil {
		p.loadErr = StatusUnableToLoad
		return p.loadErr
	}
	fn, ok := sym.(func(string) (*Implementation, Status))
	if !ok {
		p.loadErr = StatusUnableToLoad
		return p.loadErr
	}
	p.handle = handle
	p.initFunc = fn
	p.loadErr = StatusOK
	return StatusOK
}

// initCodec loads the plugin if necessary and invokes its init entry
// point for codecName (spec §4.6, §6.1).
func (p *Plugin) initCodec(codecName string) (*Implementation, Status) {
	if status := p.load(); status != StatusOK {
		return nil, status
	}
	return p.initFunc(codecName)
}

// sharedLibraryName is the plugin shared-library filename convention
// from spec §6.2: libsquash{api-version}-plugin-{name}.{suffix}.
func sharedLibraryName(name string) string {
	return fmt.Sprintf("libsquash%d-plugin-%s%s", apiVersion, name, platformSuffix())
}

const apiVersion = 1

func platformSuffix() string { return ".so" }

// builtins is the process-wide static registry of compiled-in plugins
// (spec §9 Design Notes: "a statically linked registry of (name,
// init_fn) pairs" is an explicitly sanctioned alternative to dynamic
// loading). Each plugins/* package populates this from its own init().
var builtins struct {
	mu      sync.Mutex
	entries map[string]builtinEntry
}

type builtinEntry struct {
	manifest Manifest
	init     InitFunc
}

// RegisterBuiltin registers a compiled-in plugin under name. Called
// from the init() function of a plugins/* package that is blank-
// imported by the binary, mirroring the "Built-in Plugins" pattern used
// by streamspace's plugin registry (self-registration via package
// init()).
func RegisterBuiltin(name string, manifest Manifest, init InitFunc) {
	builtins.mu.Lock()
	defer builtins.mu.Unlock()
	if builtins.entries == nil {
		builtins.entries = make(map[string]builtinEntry)
	}
	builtins.entries[name] = builtinEntry{manifest: manifest, init: init}
}

func lookupBuiltin(name string) (builtinEntry, bool) {
	builtins.mu.Lock()
	defer builtins.mu.Unlock()
	e, ok := builtins.entries[name]
	return e, ok
}

// wrapLoadError builds an xerrors-wrapped error naming op and path, for
// surfaces outside the Status vocabulary. Nothing in this package calls
// it: discovery and plugin loading report failures as Status values.
func wrapLoadError(op, path string, err error) error {
	return xerrors.Errorf("%s %s: %w", op, path, err)
}
