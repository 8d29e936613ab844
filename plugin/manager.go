package plugin

import (
	"fmt"
	"sort"
	"sync"

	streamline "github.com/sl-streamline/core"
	"github.com/sl-streamline/core/core"
)

// HookPhase is where in a proxy call a registered hook runs.
type HookPhase int

const (
	// PhaseBefore runs before the native call; it cannot suppress it.
	PhaseBefore HookPhase = iota
	// PhaseReplace runs instead of the native call when it reports skip=true.
	PhaseReplace
	// PhaseAfter runs after the native call (or after a replace that ran).
	PhaseAfter
)

// HookFunc is one registered hook body. skip, meaningful only for
// PhaseReplace, tells the proxy to suppress the native call -- the
// frame-generation "insert its own Present" and present-skip scenarios.
type HookFunc func(args any) (skip bool, err error)

type hookKey struct {
	APIFunctionID string
	Phase         HookPhase
}

type hookEntry struct {
	plugin string
	fn     HookFunc
}

// loadedPlugin is one plugin's manager-side bookkeeping: its manifest, the
// library handle (nil once the plugin is unloaded), and the adapter mask
// gating assigned it.
type loadedPlugin struct {
	manifest Manifest
	lib      Library
	mask     AdapterMask
}

// Manager implements plugin discovery, gating, load ordering, hook
// registration, and evaluateFeature dispatch. Its zero value is not
// usable; construct with NewManager.
type Manager struct {
	mu sync.Mutex

	commonPluginName string
	loader           Loader

	plugins map[string]*loadedPlugin
	order   []string // load order, common plugin first

	hooks map[hookKey][]hookEntry

	features map[core.Feature]streamline.FeatureHandlers
}

// NewManager constructs an empty Manager. commonPluginName identifies the
// plugin TopoSort must place first among any plugin that (transitively)
// depends on it; loader resolves candidate plugin libraries (use
// NewGoffiLoader in production, a fake in tests).
func NewManager(commonPluginName string, loader Loader) *Manager {
	return &Manager{
		commonPluginName: commonPluginName,
		loader:           loader,
		plugins:          make(map[string]*loadedPlugin),
		hooks:            make(map[hookKey][]hookEntry),
		features:         make(map[core.Feature]streamline.FeatureHandlers),
	}
}

// LoadAll runs the discovery -> gate -> order pipeline: discovers
// candidates across paths, resolves each one's Manifest and Library through
// manifestOf (in discovery order; manifestOf is what opens the library),
// gates it against caps, closes and drops unsupported (mask-zero) plugins,
// and topologically sorts the remainder into the recorded load order.
// loaderConfig is not read here; manifestOf is expected to have merged it.
// Returns the names of plugins dropped by gating, plus the paths of
// candidates manifestOf failed on, for diagnostics -- it is not an error
// for a plugin to be unsupported.
func (m *Manager) LoadAll(paths []string, loaderConfig []byte, caps SystemCaps, manifestOf func(Candidate) (Manifest, Library, error)) ([]string, error) {
	candidates, err := Discover(paths)
	if err != nil {
		return nil, err
	}

	manifests := make(map[string]Manifest, len(candidates))
	var dropped []string

	for _, c := range candidates {
		manifest, lib, err := manifestOf(c)
		if err != nil {
			dropped = append(dropped, c.Path)
			continue
		}
		req := manifest.FromManifest()
		mask := Gate(caps, req)
		if !mask.Supported() {
			dropped = append(dropped, manifest.Name)
			if lib != nil {
				_ = lib.Close()
			}
			continue
		}
		manifests[manifest.Name] = manifest

		m.mu.Lock()
		m.plugins[manifest.Name] = &loadedPlugin{manifest: manifest, lib: lib, mask: mask}
		m.mu.Unlock()
	}

	order, err := TopoSort(manifests, m.commonPluginName)
	if err != nil {
		return dropped, err
	}

	m.mu.Lock()
	m.order = order
	for _, name := range order {
		for _, hd := range manifests[name].Hooks {
			phase := parsePhase(hd.Phase)
			key := hookKey{APIFunctionID: hd.APIFunctionID, Phase: phase}
			// Declared hooks are not registered here: nothing is
			// recorded for them. Hook bodies enter the table only
			// through RegisterHook, and Hooks orders them by the load
			// order recorded above.
			_ = key
		}
	}
	m.mu.Unlock()

	return dropped, nil
}

// ResolveManifest is the production manifestOf LoadAll expects: it opens
// path through the Manager's configured Loader, then merges embeddedJSON
// (the plugin's own compiled-in manifest, conventionally returned by a
// slGetPluginFunction("slOnPluginLoad") call the host makes before handing
// the library to the manager) with loaderConfig. Tests that don't exercise
// real dynamic loading supply their own manifestOf instead.
func (m *Manager) ResolveManifest(path string, embeddedJSON, loaderConfig []byte) (Manifest, Library, error) {
	if m.loader == nil {
		return Manifest{}, nil, fmt.Errorf("plugin: no loader configured")
	}
	lib, err := m.loader.Load(path)
	if err != nil {
		return Manifest{}, nil, err
	}
	manifest, err := MergeJSON(embeddedJSON, loaderConfig)
	if err != nil {
		_ = lib.Close()
		return Manifest{}, nil, err
	}
	return manifest, lib, nil
}

// RegisterHook adds fn as a hook for (apiFunctionID, phase), keyed to
// plugin for later removal on unload. Hooks run in the plugin load order
// within the same phase, matching the design notes' "explicit ordering"
// requirement.
func (m *Manager) RegisterHook(plugin, apiFunctionID string, phase HookPhase, fn HookFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := hookKey{APIFunctionID: apiFunctionID, Phase: phase}
	m.hooks[key] = append(m.hooks[key], hookEntry{plugin: plugin, fn: fn})
}

// Hooks returns the registered hooks for (apiFunctionID, phase), ordered
// by plugin load order.
func (m *Manager) Hooks(apiFunctionID string, phase HookPhase) []HookFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.hooks[hookKey{APIFunctionID: apiFunctionID, Phase: phase}]
	if len(entries) == 0 {
		return nil
	}
	rank := make(map[string]int, len(m.order))
	for i, name := range m.order {
		rank[name] = i
	}
	sorted := make([]hookEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return rank[sorted[i].plugin] < rank[sorted[j].plugin] })

	fns := make([]HookFunc, len(sorted))
	for i, e := range sorted {
		fns[i] = e.fn
	}
	return fns
}

// RegisterFeature records the (begin, end) pair a feature plugin exposes
// for feature, making it resolvable by EvaluateFeature's Resolve call.
func (m *Manager) RegisterFeature(feature core.Feature, handlers streamline.FeatureHandlers) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.features[feature] = handlers
}

// Resolve implements streamline.FeatureResolver: Instance.EvaluateFeature
// calls this (via Instance.SetFeatureResolver) to look up a feature's
// begin/end pair.
func (m *Manager) Resolve(feature streamline.Feature) (streamline.FeatureHandlers, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.features[feature]
	return h, ok
}

// LoadOrder returns a copy of the resolved plugin load order.
func (m *Manager) LoadOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// SupportedMask reports the adapter mask gating assigned name, or 0 if
// name was never loaded.
func (m *Manager) SupportedMask(name string) AdapterMask {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plugins[name]; ok {
		return p.mask
	}
	return 0
}

// Shutdown unloads every plugin in reverse load order -- the common
// plugin, loaded first, is torn down last since its dependents' own
// teardown may still read the tag/constants store it owns.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	order := make([]string, len(m.order))
	copy(order, m.order)
	m.mu.Unlock()

	var firstErr error
	for i := len(order) - 1; i >= 0; i-- {
		m.mu.Lock()
		p := m.plugins[order[i]]
		m.mu.Unlock()
		if p == nil || p.lib == nil {
			continue
		}
		if err := p.lib.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("plugin: unloading %q: %w", order[i], err)
		}
	}
	return firstErr
}

func parsePhase(s string) HookPhase {
	switch s {
	case "replace":
		return PhaseReplace
	case "after":
		return PhaseAfter
	default:
		return PhaseBefore
	}
}
