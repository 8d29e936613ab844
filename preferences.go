package streamline

import "github.com/sl-streamline/core/internal/config"

// Preferences is the host-facing alias of the ambient preferences the
// interposer configures itself from: re-exported here so callers of this
// package don't need to import internal/config directly.
type Preferences = config.Preferences

// Flag re-exports the preference flag bits (eUseDXGIFactoryProxy,
// eUseManualHooking, eBypassOSVersionCheck, eAllowOTA).
type Flag = config.Flag

const (
	FlagUseDXGIFactoryProxy  = config.FlagUseDXGIFactoryProxy
	FlagUseManualHooking     = config.FlagUseManualHooking
	FlagBypassOSVersionCheck = config.FlagBypassOSVersionCheck
	FlagAllowOTA             = config.FlagAllowOTA
)

// RenderAPI re-exports the render-API enumeration.
type RenderAPI = config.RenderAPI

const (
	RenderAPIUnknown = config.RenderAPIUnknown
	RenderAPID3D11   = config.RenderAPID3D11
	RenderAPID3D12   = config.RenderAPID3D12
	RenderAPIVulkan  = config.RenderAPIVulkan
)
