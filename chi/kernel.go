package chi

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
)

// Kernel is an interned compute kernel: portable IR produced by translating
// WGSL source through naga, plus the content hash every dispatch path hashes
// root signatures and pipeline state objects against (root-sig-hash plus
// kernel-hash, per the D3D12 dispatch path).
type Kernel struct {
	Hash   uint64
	Source string
	IR     *naga.Module
}

// KernelCache interns kernels at process scope, keyed by the hash of their
// WGSL source, so two features requesting the same compute shader share one
// translated module and (downstream, in the backend) one compiled pipeline.
type KernelCache struct {
	mu      sync.Mutex
	kernels map[uint64]*Kernel
}

// NewKernelCache constructs an empty process-scoped kernel cache.
func NewKernelCache() *KernelCache {
	return &KernelCache{kernels: make(map[uint64]*Kernel)}
}

// Intern translates wgslSource through naga if it has not been seen before,
// and returns the interned Kernel either way.
func (c *KernelCache) Intern(wgslSource string) (*Kernel, error) {
	hash := hashSource(wgslSource)

	c.mu.Lock()
	if k, ok := c.kernels[hash]; ok {
		c.mu.Unlock()
		return k, nil
	}
	c.mu.Unlock()

	ast, err := naga.Parse(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("chi: kernel WGSL parse: %w", err)
	}
	ir, err := naga.LowerWithSource(ast, wgslSource)
	if err != nil {
		return nil, fmt.Errorf("chi: kernel WGSL lower: %w", err)
	}

	k := &Kernel{Hash: hash, Source: wgslSource, IR: ir}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.kernels[hash]; ok {
		return existing, nil
	}
	c.kernels[hash] = k
	return k, nil
}

// Lookup returns the interned kernel for hash, if any.
func (c *KernelCache) Lookup(hash uint64) (*Kernel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.kernels[hash]
	return k, ok
}

func hashSource(src string) uint64 {
	sum := sha1.Sum([]byte(src))
	return binary.LittleEndian.Uint64(sum[:8])
}

// copyCSSource is the dedicated resource-translation compute shader used by
// fetchTranslatedResourceFromCache to copy a source resource into a
// shareable clone (needed for D3D11->D3D12 because many depth/stencil
// formats are not NT-shareable).
const copyCSSource = `
@group(0) @binding(0) var src: texture_2d<f32>;
@group(0) @binding(1) var dst: texture_storage_2d<rgba32float, write>;

@compute @workgroup_size(8, 8, 1)
fn copy_cs(@builtin(global_invocation_id) id: vec3<u32>) {
    let texel = textureLoad(src, vec2<i32>(id.xy), 0);
    textureStore(dst, vec2<i32>(id.xy), texel);
}
`

// InternCopyKernel interns and returns the copy_cs kernel used by the
// shared/translated resource cache.
func (c *KernelCache) InternCopyKernel() (*Kernel, error) {
	return c.Intern(copyCSSource)
}
