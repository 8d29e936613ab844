//go:build windows

package main

import (
	streamline "github.com/sl-streamline/core"
	"github.com/sl-streamline/core/chi/d3d11"
	"github.com/sl-streamline/core/chi/d3d12"
	"github.com/sl-streamline/core/internal/log"
	"github.com/sl-streamline/core/interposer"
)

var d3dDevice *interposer.D3D12Device

// rawContext adapts a bare address to chi/d3d11's NativeContext, which
// (unlike D3D12's NativeDevice) wants a uintptr rather than an
// unsafe.Pointer -- the D3D11 backend never dereferences it directly,
// only threads it through to the host's own Map/Unmap calls.
type rawContext uintptr

func (r rawContext) Pointer() uintptr { return uintptr(r) }

// setD3DDevice wraps the host's raw device address in a D3D12Device proxy,
// replacing whatever was wired from a previous slSetD3DDevice call, and
// builds the chi.Device the renderAPI recorded at slInit calls for.
func setD3DDevice(device uintptr) {
	mgrMu.Lock()
	defer mgrMu.Unlock()

	d3dDevice = interposer.NewD3D12Device(rawAddress(device), dispatcher)

	switch renderAPI {
	case streamline.RenderAPID3D12:
		d, err := d3d12.NewBackend(rawAddress(device)).NewDevice(nil)
		if err != nil {
			log.Errorf("sl-interposer: building d3d12 chi device: %v", err)
			return
		}
		chiDevice = d
	case streamline.RenderAPID3D11:
		d, err := d3d11.NewBackend(rawContext(device)).NewDevice(nil)
		if err != nil {
			log.Errorf("sl-interposer: building d3d11 chi device: %v", err)
			return
		}
		chiDevice = d
	}
}

func clearD3DDevice() {
	mgrMu.Lock()
	d3dDevice = nil
	mgrMu.Unlock()
}
