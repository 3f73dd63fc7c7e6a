package squash

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/distr1/squash/internal/ini"
)

// SearchPathEnvVar is the environment variable consulted for the plugin
// directory search path (spec §4.1). Read exactly once per Context
// (spec §5 "Shared-resource policy").
const SearchPathEnvVar = "SQUASH_PLUGINS"

// DefaultPluginPath is the compile-time fallback search path used when
// SQUASH_PLUGINS is unset or empty. Embedders may override it before
// the first call to DefaultContext.
var DefaultPluginPath []string

// Context is the process-wide registry (spec §3 Context): plugin
// directory search path, name->Plugin, name->preferred Codec, and
// extension->preferred Codec maps. For every codec present in the
// extension map, the same codec is present in the codec map.
type Context struct {
	searchPath []string

	mu         sync.RWMutex
	plugins    map[string]*Plugin
	codecs     map[string]*Codec
	extensions map[string]*Codec

	discoverOnce sync.Once
}

var (
	defaultContext     *Context
	defaultContextOnce sync.Once
)

// DefaultContext returns the process-wide singleton Context, lazily
// initialized on first access (spec §3, §9 "Global context singleton").
func DefaultContext() *Context {
	defaultContextOnce.Do(func() {
		defaultContext = NewContext(searchPathFromEnv())
	})
	return defaultContext
}

func searchPathFromEnv() []string {
	if v, ok := os.LookupEnv(SearchPathEnvVar); ok && v != "" {
		return ini.SplitSearchPath(v)
	}
	return DefaultPluginPath
}

// NewContext returns a fresh, independent Context with the given plugin
// directory search path. Most callers should use DefaultContext; this
// constructor exists for callers that want an explicit handle instead
// of the process-wide singleton.
func NewContext(searchPath []string) *Context {
	return &Context{
		searchPath: searchPath,
		plugins:    make(map[string]*Plugin),
		codecs:     make(map[string]*Codec),
		extensions: make(map[string]*Codec),
	}
}

// registerBuiltins is called lazily so built-in plugins registered via
// RegisterBuiltin (from plugins/* package init()s, which may run after
// package squash's own init order in another binary) are visible.
func (ctx *Context) registerBuiltins() {
	builtins.mu.Lock()
	defer builtins.mu.Unlock()
	for name, entry := range builtins.entries {
		ctx.registerPlugin(name, "", entry.manifest, entry.init)
	}
}

func (ctx *Context) registerPlugin(name, dir string, manifest Manifest, initFn InitFunc) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if _, exists := ctx.plugins[name]; exists {
		return // first registration wins (spec §4.1)
	}
	p := &Plugin{
		Name:      name,
		Directory: dir,
		Manifest:  manifest,
		initFunc:  initFn,
		Codecs:    make(map[string]*Codec),
	}
	ctx.plugins[name] = p

	for codecName, mc := range manifest.Codecs {
		priority := mc.Priority
		if priority == 0 {
			priority = 50
		}
		c := &Codec{
			Name:      codecName,
			Priority:  priority,
			Extension: mc.Extension,
			Plugin:    p,
		}
		p.Codecs[codecName] = c
		ctx.registerCodec(c)
	}
}

// registerCodec applies the priority-disambiguation rule (spec §4.1):
// a codec name's entry in the codec map is replaced only by a strictly
// higher-priority alias; the extension map mirrors the same choice so
// its invariant (every extension-mapped codec is also codec-mapped)
// holds by construction. ctx.mu must be held.
func (ctx *Context) registerCodec(c *Codec) {
	if existing, ok := ctx.codecs[c.Name]; !ok || c.Priority > existing.Priority {
		ctx.codecs[c.Name] = c
		if c.Extension != "" {
			ctx.extensions[c.Extension] = c
		}
	}
}

// discover performs on-disk plugin discovery (spec §4.1) plus built-in
// registration, exactly once per Context.
func (ctx *Context) discover() {
	ctx.discoverOnce.Do(func() {
		ctx.registerBuiltins()
		for _, dir := range ctx.searchPath {
			ctx.discoverDir(dir)
		}
	})
}

func (ctx *Context) discoverDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pluginDir := filepath.Join(dir, e.Name())
		manifestPath := filepath.Join(pluginDir, "squash.ini")
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			continue
		}
		parsed, err := ini.Parse(string(data))
		if err != nil {
			continue
		}
		manifest := manifestFromINI(parsed)
		ctx.registerPlugin(e.Name(), pluginDir, manifest, nil)
	}
}

func manifestFromINI(parsed ini.Manifest) Manifest {
	m := Manifest{Codecs: make(map[string]ManifestCodec)}
	for _, sec := range parsed.Sections {
		mc := ManifestCodec{Priority: 50}
		if v, ok := sec.Values["priority"]; ok {
			mc.Priority = ini.ParseUintDefault(v, 50)
		}
		if v, ok := sec.Values["extension"]; ok {
			mc.Extension = v
		}
		if v, ok := sec.Values["license"]; ok {
			for _, tag := range strings.Split(v, ";") {
				if tag = strings.TrimSpace(tag); tag != "" {
					mc.License = append(mc.License, tag)
				}
			}
		}
		m.Codecs[sec.Name] = mc
	}
	return m
}

// GetCodec resolves a codec by name, triggering lazy initialization on
// success (spec §4.1). name may be qualified as "plugin:codec" to
// bypass the priority map and select a specific plugin.
func (ctx *Context) GetCodec(name string) (*Codec, Status) {
	ctx.discover()

	if pluginName, codecName, ok := splitQualified(name); ok {
		ctx.mu.RLock()
		p, exists := ctx.plugins[pluginName]
		ctx.mu.RUnlock()
		if !exists {
			return nil, StatusNotFound
		}
		p.mu.Lock()
		c, exists := p.Codecs[codecName]
		p.mu.Unlock()
		if !exists {
			return nil, StatusNotFound
		}
		return initAndReturn(c)
	}

	ctx.mu.RLock()
	c, exists := ctx.codecs[name]
	ctx.mu.RUnlock()
	if !exists {
		return nil, StatusNotFound
	}
	return initAndReturn(c)
}

// GetCodecFromExtension resolves a codec by its preferred file
// extension (spec §4.1).
func (ctx *Context) GetCodecFromExtension(ext string) (*Codec, Status) {
	ctx.discover()
	ctx.mu.RLock()
	c, exists := ctx.extensions[ext]
	ctx.mu.RUnlock()
	if !exists {
		return nil, StatusNotFound
	}
	return initAndReturn(c)
}

func initAndReturn(c *Codec) (*Codec, Status) {
	if _, status := c.implementation(); status != StatusOK {
		return nil, status
	}
	return c, StatusOK
}

func splitQualified(name string) (pluginName, codecName string, ok bool) {
	i := strings.IndexByte(name, ':')
	if i < 0 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

// ForeachPlugin calls fn for each registered plugin until fn returns
// false or all plugins have been visited (spec "Supplemented features").
func (ctx *Context) ForeachPlugin(fn func(*Plugin) bool) {
	ctx.discover()
	ctx.mu.RLock()
	plugins := make([]*Plugin, 0, len(ctx.plugins))
	for _, p := range ctx.plugins {
		plugins = append(plugins, p)
	}
	ctx.mu.RUnlock()
	for _, p := range plugins {
		if !fn(p) {
			return
		}
	}
}

// ForeachCodec calls fn for each codec currently preferred by name
// (i.e. the values of the codec map, not every same-named alias) until
// fn returns false or all codecs have been visited.
func (ctx *Context) ForeachCodec(fn func(*Codec) bool) {
	ctx.discover()
	ctx.mu.RLock()
	codecs := make([]*Codec, 0, len(ctx.codecs))
	for _, c := range ctx.codecs {
		codecs = append(codecs, c)
	}
	ctx.mu.RUnlock()
	for _, c := range codecs {
		if !fn(c) {
			return
		}
	}
}

// GetCodec / GetCodecFromExtension against the process-wide default
// Context, for callers that don't need an explicit handle.
func GetCodec(name string) (*Codec, Status)         { return DefaultContext().GetCodec(name) }
func GetCodecFromExtension(ext string) (*Codec, Status) {
	return DefaultContext().GetCodecFromExtension(ext)
}
