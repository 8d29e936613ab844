// Package chi is the compute abstraction: a graphics-API-agnostic layer that
// unifies resource description, descriptor management, command recording,
// synchronization, and VRAM accounting across D3D11, D3D12, and Vulkan
// backends (chi/d3d11, chi/d3d12, chi/vulkan), plus a chi/noop backend for
// headless tests. Everything in this package is backend-generic; the
// backend subpackages implement the Backend/Device/CommandListContext
// interfaces declared here.
package chi
