// Command sl-interposer is the host-facing C ABI surface: built with
// `go build -buildmode=c-shared`, it exports slInit, slShutdown,
// slSetD3DDevice, slSetVulkanInfo, slSetTag, slSetConstants,
// slGetNewFrameToken, slEvaluateFeature, slIsFeatureSupported and
// slGetFeatureVersion as thin wrappers around the root streamline package,
// package plugin, and package interposer. getNativeInterface,
// upgradeInterface, getFeatureRequirements, getFeatureFunction and
// allocateResources/freeResources are not exported. It owns no behavior of its own beyond marshaling: every
// decision (gating, dispatch, state save/restore) is made by the packages
// it wires together.
//
// The native vtable/struct layouts a real host passes across this boundary
// (ID3D12Device*, VkInstance, adapter LUID tables) are represented here as
// opaque addresses (C.uintptr_t) rather than reproduced field-for-field;
// the interposer package's NativePointer seam is exactly this same
// decision made one layer down, so this file does not re-litigate it.
package main

/*
#include <stdint.h>

typedef struct SLTagInput {
	uint32_t tagType;
	uint32_t lifecycle;
	uintptr_t nativeResource;
	uint32_t width;
	uint32_t height;
} SLTagInput;
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	streamline "github.com/sl-streamline/core"
	"github.com/sl-streamline/core/chi"
	"github.com/sl-streamline/core/chi/noop"
	chivulkan "github.com/sl-streamline/core/chi/vulkan"
	"github.com/sl-streamline/core/core"
	"github.com/sl-streamline/core/internal/log"
	"github.com/sl-streamline/core/interposer"
	interposervulkan "github.com/sl-streamline/core/interposer/vulkan"
	"github.com/sl-streamline/core/plugin"
)

var (
	mgrMu      sync.Mutex
	manager    *plugin.Manager
	dispatcher *interposer.Dispatcher
	vkLayer    *interposervulkan.Table

	// renderAPI is recorded at slInit and consulted by setD3DDevice (see
	// d3ddevice_windows.go) to pick the matching chi.Backend once the host
	// hands over its native device.
	renderAPI streamline.RenderAPI
	// chiDevice is the CHI device the backend matching renderAPI builds
	// itself over, once the host supplies a native device/Vulkan handle.
	// This is what the generic-CHI callbacks a loaded feature plugin calls
	// back into the host through (resource creation, dispatch, resource
	// transitions) are ultimately served from.
	chiDevice chi.Device
)

// rawAddress adapts a bare address crossing the C ABI (an opaque
// ID3D12Device*/VkDevice the host passed in as a uintptr_t) to
// interposer.NativePointer, the only thing a proxy needs from it.
type rawAddress uintptr

func (r rawAddress) Pointer() unsafe.Pointer { return unsafe.Pointer(uintptr(r)) }

//export slInit
func slInit(logLevel C.int, renderAPIArg C.int, flags C.uint32_t, sdkVersion *C.char) C.int {
	prefs := streamline.Preferences{
		LogLevel:  log.Level(logLevel),
		RenderAPI: streamline.RenderAPI(renderAPIArg),
		Flags:     streamline.Flag(flags),
	}
	version := C.GoString(sdkVersion)

	inst, err := streamline.Init(prefs, version)
	if err != nil {
		return C.int(streamline.AsResult(err))
	}

	mgrMu.Lock()
	manager = plugin.NewManager("sl.common", plugin.NewGoffiLoader())
	dispatcher = interposer.NewDispatcher(manager)
	renderAPI = prefs.RenderAPI
	if renderAPI == streamline.RenderAPIUnknown {
		// No native device is coming for a host that never declares a
		// render API (headless hosts, and this module's own test harness);
		// the no-op backend lets evaluateFeature still run its dispatch
		// path against a real chi.Device instead of a nil one.
		chiDevice, _ = noop.NewBackend().NewDevice(nil)
	}
	mgrMu.Unlock()
	inst.SetFeatureResolver(manager)

	return C.int(streamline.ResultOk)
}

//export slShutdown
func slShutdown() C.int {
	inst := currentInstance()
	if inst == nil {
		return C.int(streamline.ResultNotInitialized)
	}

	mgrMu.Lock()
	m := manager
	manager = nil
	dispatcher = nil
	vkLayer = nil
	chiDevice = nil
	mgrMu.Unlock()
	clearD3DDevice()
	if m != nil {
		if err := m.Shutdown(); err != nil {
			log.Errorf("sl-interposer: shutdown: unloading plugins: %v", err)
		}
	}

	if err := inst.Shutdown(); err != nil {
		return C.int(streamline.AsResult(err))
	}
	return C.int(streamline.ResultOk)
}

// setD3DDevice and setVulkanInfo are where the interposer proxy layer
// actually comes alive: the host hands over the real device address once,
// here, and everything downstream (ExecuteCommandLists dispatch, the
// Vulkan dispatch-table layer's present hooks) runs against the proxy
// these two entry points construct over it. slSetD3DDevice's actual proxy
// construction lives in d3ddevice_windows.go / d3ddevice_other.go, since
// interposer.D3D12Device only builds under GOOS=windows.
//
//export slSetD3DDevice
func slSetD3DDevice(device C.uintptr_t) C.int {
	if currentInstance() == nil {
		return C.int(streamline.ResultInitNotCalled)
	}
	setD3DDevice(uintptr(device))
	log.Infof("sl-interposer: setD3DDevice(%#x)", uintptr(device))
	return C.int(streamline.ResultOk)
}

//export slSetVulkanInfo
func slSetVulkanInfo(instance, physicalDevice, device C.uintptr_t) C.int {
	if currentInstance() == nil {
		return C.int(streamline.ResultInitNotCalled)
	}
	mgrMu.Lock()
	vkLayer = interposervulkan.NewTable(vk.Device(uintptr(device)))
	if renderAPI == streamline.RenderAPIVulkan {
		// The host's compute queue is not handed over through this entry
		// point; the backend does not dereference it until a submit path
		// that isn't wired yet, so a null queue is safe to build the device
		// over for now.
		backend := chivulkan.NewBackend(vk.Device(uintptr(device)), vk.Queue(0))
		d, err := backend.NewDevice(nil)
		if err != nil {
			log.Errorf("sl-interposer: building vulkan chi device: %v", err)
		} else {
			chiDevice = d
		}
	}
	mgrMu.Unlock()
	log.Infof("sl-interposer: setVulkanInfo(instance=%#x, physicalDevice=%#x, device=%#x)",
		uintptr(instance), uintptr(physicalDevice), uintptr(device))
	return C.int(streamline.ResultOk)
}

//export slSetTag
func slSetTag(viewport C.uint32_t, tags *C.SLTagInput, n C.uint32_t, cmdBuffer C.uintptr_t) C.int {
	inst := currentInstance()
	if inst == nil {
		return C.int(streamline.ResultInitNotCalled)
	}
	if tags == nil || n == 0 {
		return C.int(streamline.ResultMissingInputParameter)
	}

	slice := unsafe.Slice(tags, int(n))
	for _, t := range slice {
		res := streamline.Resource{
			Native: uintptr(t.nativeResource),
			Width:  uint32(t.width),
			Height: uint32(t.height),
		}
		err := inst.SetTag(core.Viewport(viewport), streamline.TagType(t.tagType), res,
			streamline.Lifecycle(t.lifecycle), uintptr(cmdBuffer))
		if err != nil {
			return C.int(streamline.AsResult(err))
		}
	}
	return C.int(streamline.ResultOk)
}

//export slSetConstants
func slSetConstants(viewport C.uint32_t, frame C.uint32_t) C.int {
	inst := currentInstance()
	if inst == nil {
		return C.int(streamline.ResultInitNotCalled)
	}
	// No camera/jitter data crosses this boundary: the entry point takes
	// only viewport and frame, and records a zero-valued
	// streamline.Constants for that pair.
	err := inst.SetConstants(core.Viewport(viewport), uint32(frame), streamline.Constants{})
	return C.int(streamline.AsResult(err))
}

//export slGetNewFrameToken
func slGetNewFrameToken(frameIndex *C.uint32_t) C.uint64_t {
	inst := currentInstance()
	if inst == nil {
		return 0
	}
	var idx *uint32
	if frameIndex != nil {
		v := uint32(*frameIndex)
		idx = &v
	}
	token, err := inst.GetNewFrameToken(idx)
	if err != nil {
		return 0
	}
	return C.uint64_t(token.Index())
}

//export slEvaluateFeature
func slEvaluateFeature(feature C.uint32_t, viewport C.uint32_t, frame C.uint32_t, tags *C.SLTagInput, n C.uint32_t, cmdBuffer C.uintptr_t) C.int {
	inst := currentInstance()
	if inst == nil {
		return C.int(streamline.ResultInitNotCalled)
	}

	// inputs[] always carries a ViewportHandle entry (spec's own
	// evaluateFeature signature has no separate viewport argument); the
	// host's explicit viewport param is how this C boundary marshals it.
	inputs := make([]streamline.TagInput, 0, int(n)+1)
	inputs = append(inputs, streamline.TagInput{Type: streamline.TagViewportHandle, Viewport: core.Viewport(viewport)})
	if tags != nil && n > 0 {
		for _, t := range unsafe.Slice(tags, int(n)) {
			inputs = append(inputs, streamline.TagInput{
				Type: streamline.TagType(t.tagType),
				Resource: streamline.Resource{
					Native: uintptr(t.nativeResource),
					Width:  uint32(t.width),
					Height: uint32(t.height),
				},
			})
		}
	}

	err := inst.EvaluateFeature(core.Feature(feature), uint32(frame), inputs, uintptr(cmdBuffer))
	return C.int(streamline.AsResult(err))
}

//export slIsFeatureSupported
func slIsFeatureSupported(feature C.uint32_t) C.int {
	mgrMu.Lock()
	m := manager
	mgrMu.Unlock()
	if m == nil {
		return C.int(streamline.ResultInitNotCalled)
	}
	if _, ok := m.Resolve(core.Feature(feature)); !ok {
		return C.int(streamline.ResultFeatureNotSupported)
	}
	return C.int(streamline.ResultOk)
}

//export slGetFeatureVersion
func slGetFeatureVersion(feature C.uint32_t, slMajor, slMinor, slPatch *C.uint32_t) C.int {
	mgrMu.Lock()
	m := manager
	mgrMu.Unlock()
	if m == nil {
		return C.int(streamline.ResultInitNotCalled)
	}
	if _, ok := m.Resolve(core.Feature(feature)); !ok {
		return C.int(streamline.ResultFeatureMissing)
	}
	// The SL-side version written is a fixed 1.0.0. No NGX (plugin-reported)
	// version is returned by this entry point.
	if slMajor != nil {
		*slMajor = 1
	}
	if slMinor != nil {
		*slMinor = 0
	}
	if slPatch != nil {
		*slPatch = 0
	}
	return C.int(streamline.ResultOk)
}

func currentInstance() *streamline.Instance {
	return streamline.Current()
}

func main() {
	// Required by `go build -buildmode=c-shared` but never runs: every
	// entry point is reached through the //export wrappers above once the
	// host dlopen's this library.
	fmt.Println("sl-interposer: this binary is a c-shared library, not meant to run directly")
}
