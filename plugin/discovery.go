package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"unsafe"

	"github.com/go-webgpu/goffi/ffi"
	"github.com/go-webgpu/goffi/types"
)

// SearchPaths returns the ordered list discovery walks: the directory the
// interposer itself was loaded from, then any additional host-supplied
// paths, in the order given.
func SearchPaths(interposerDir string, extra []string) []string {
	paths := make([]string, 0, 1+len(extra))
	if interposerDir != "" {
		paths = append(paths, interposerDir)
	}
	paths = append(paths, extra...)
	return paths
}

func pluginExtension() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// Candidate is one discovered plugin library file, not yet loaded.
type Candidate struct {
	Path string
}

// Discover walks paths (non-recursively -- plugins are not expected to
// nest in subdirectories) collecting every file with the platform's shared
// library extension.
func Discover(paths []string) ([]Candidate, error) {
	ext := pluginExtension()
	var found []Candidate
	for _, dir := range paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("plugin: reading search path %q: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.EqualFold(filepath.Ext(e.Name()), ext) {
				found = append(found, Candidate{Path: filepath.Join(dir, e.Name())})
			}
		}
	}
	return found, nil
}

// PluginFunc is a plugin-exported entry point resolved through
// slGetPluginFunction: JSON request in, JSON reply out. Every plugin ABI
// call in this module uses this shape; the NGX/DRS-specific argument
// marshaling a real plugin ultimately needs on top of it is the
// external-collaborator boundary the design notes place out of scope, so
// callers above this layer only ever see JSON.
type PluginFunc func(request []byte) (reply []byte, err error)

// Library is a loaded plugin module.
type Library interface {
	// GetFunction resolves one named export via the plugin's single
	// slGetPluginFunction(name) entry point.
	GetFunction(name string) (PluginFunc, bool)
	Close() error
}

// Loader opens a candidate plugin library. NewGoffiLoader is the
// production implementation; tests use a fake.
type Loader interface {
	Load(path string) (Library, error)
}

// goffiLoader is the production Loader, built on goffi (the Vulkan code in
// this module uses goki/vulkan instead, not goffi):
// LoadLibrary/GetSymbol for the dynamic-library half, and a single cached
// CallInterface describing slGetPluginFunction's C signature
// (`void* slGetPluginFunction(const char* name)`) for the call half.
// Plugins are assumed to follow the same JSON-buffer-in/JSON-buffer-out
// convention for every function slGetPluginFunction resolves, matching
// PluginFunc above; a plugin with a different per-function ABI is outside
// what this loader can bind and is the host's integration problem, not
// this module's.
type goffiLoader struct {
	mu       sync.Mutex
	prepared bool
	cif      types.CallInterface // slGetPluginFunction(name) -> void*
	callCif  types.CallInterface // the uniform JSON-in/JSON-out ABI every resolved export follows
}

// NewGoffiLoader constructs the production plugin Loader.
func NewGoffiLoader() Loader {
	return &goffiLoader{}
}

func (l *goffiLoader) prepare() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.prepared {
		return nil
	}
	if err := l.doPrepare(); err != nil {
		return err
	}
	l.prepared = true
	return nil
}

func (l *goffiLoader) doPrepare() error {
	if err := ffi.PrepareCallInterface(&l.cif, types.DefaultCall,
		types.PointerTypeDescriptor, // void* return (the resolved function pointer)
		[]*types.TypeDescriptor{
			types.PointerTypeDescriptor, // const char* name
		}); err != nil {
		return err
	}
	// Every export slGetPluginFunction resolves follows PluginFunc's own
	// contract: a JSON request buffer in, a JSON reply buffer out, per
	// uint32 fn(const void* request, uint64 requestLen, void** reply,
	// uint64* replyLen), non-zero return on success.
	return ffi.PrepareCallInterface(&l.callCif, types.DefaultCall,
		types.UInt32TypeDescriptor,
		[]*types.TypeDescriptor{
			types.PointerTypeDescriptor, // const void* request
			types.UInt64TypeDescriptor,  // uint64 requestLen
			types.PointerTypeDescriptor, // void** reply
			types.PointerTypeDescriptor, // uint64* replyLen
		})
}

func (l *goffiLoader) Load(path string) (Library, error) {
	if err := l.prepare(); err != nil {
		return nil, fmt.Errorf("plugin: preparing slGetPluginFunction call interface: %w", err)
	}
	lib, err := ffi.LoadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: loading %q: %w", path, err)
	}
	entry, err := ffi.GetSymbol(lib, "slGetPluginFunction")
	if err != nil {
		_ = ffi.FreeLibrary(lib)
		return nil, fmt.Errorf("plugin: %q does not export slGetPluginFunction: %w", path, err)
	}
	return &goffiLibrary{loader: l, lib: lib, entry: entry}, nil
}

type goffiLibrary struct {
	loader *goffiLoader
	lib    unsafe.Pointer
	entry  unsafe.Pointer
}

func (g *goffiLibrary) GetFunction(name string) (PluginFunc, bool) {
	cname := append([]byte(name), 0)
	namePtr := unsafe.Pointer(&cname[0])
	var result unsafe.Pointer
	args := [1]unsafe.Pointer{unsafe.Pointer(&namePtr)}
	if err := ffi.CallFunction(&g.loader.cif, g.entry, unsafe.Pointer(&result), args[:]); err != nil || result == nil {
		return nil, false
	}

	entry := result
	cif := &g.loader.callCif
	fn := func(request []byte) ([]byte, error) {
		var reqPtr unsafe.Pointer
		if len(request) > 0 {
			reqPtr = unsafe.Pointer(&request[0])
		}
		reqLen := uint64(len(request))
		var replyPtr unsafe.Pointer
		var replyLen uint64
		callArgs := [4]unsafe.Pointer{
			unsafe.Pointer(&reqPtr),
			unsafe.Pointer(&reqLen),
			unsafe.Pointer(&replyPtr),
			unsafe.Pointer(&replyLen),
		}
		var ok uint32
		if err := ffi.CallFunction(cif, entry, unsafe.Pointer(&ok), callArgs[:]); err != nil {
			return nil, fmt.Errorf("plugin: calling %q: %w", name, err)
		}
		if ok == 0 {
			return nil, fmt.Errorf("plugin: %q reported failure", name)
		}
		if replyPtr == nil || replyLen == 0 {
			return nil, nil
		}
		return unsafe.Slice((*byte)(replyPtr), replyLen), nil
	}
	return fn, true
}

func (g *goffiLibrary) Close() error {
	return ffi.FreeLibrary(g.lib)
}

// MergeJSON merges loaderConfig onto a plugin's embedded manifest JSON --
// loaderConfig wins on key conflicts, matching slOnPluginLoad's "merged
// JSON of loader config + plugin's embedded JSON" contract -- and decodes
// the result into a Manifest.
func MergeJSON(embedded, loaderConfig []byte) (Manifest, error) {
	var merged map[string]any
	if len(embedded) > 0 {
		if err := json.Unmarshal(embedded, &merged); err != nil {
			return Manifest{}, fmt.Errorf("plugin: decoding embedded manifest: %w", err)
		}
	}
	if merged == nil {
		merged = map[string]any{}
	}
	if len(loaderConfig) > 0 {
		var overrides map[string]any
		if err := json.Unmarshal(loaderConfig, &overrides); err != nil {
			return Manifest{}, fmt.Errorf("plugin: decoding loader config: %w", err)
		}
		for k, v := range overrides {
			merged[k] = v
		}
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, fmt.Errorf("plugin: decoding merged manifest: %w", err)
	}
	return m, nil
}
