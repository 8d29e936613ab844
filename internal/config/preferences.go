// Package config holds the host-supplied preferences, the TOML/env/registry
// override chain for logging configuration, and the plugin-directory watch
// used to pick up dropped-in plugins without a restart.
package config

import (
	"github.com/sl-streamline/core/internal/log"
)

// Flag is one of the boolean preference flags a host can set on Preferences.
type Flag uint32

const (
	FlagUseDXGIFactoryProxy Flag = 1 << iota
	FlagUseManualHooking
	FlagBypassOSVersionCheck
	FlagAllowOTA
)

// RenderAPI identifies which native graphics API the host is running.
type RenderAPI int

const (
	RenderAPIUnknown RenderAPI = iota
	RenderAPID3D11
	RenderAPID3D12
	RenderAPIVulkan
)

// AllocateCallback and ReleaseCallback let the host intercept native
// resource allocation/release performed on its behalf by the CHI.
type AllocateCallback func(desc any) (resource any, err error)
type ReleaseCallback func(resource any)

// Preferences mirrors the structure the host passes to init(preferences,
// sdkVersion): logging configuration, render API, frame-limit hints,
// feature flags, and the optional allocate/release callback pair.
type Preferences struct {
	LogLevel      log.Level
	LogPath       string
	LogCallback   func(level log.Level, msg string)
	EnableConsole bool

	RenderAPI RenderAPI

	FrameLimitHint uint32

	Flags Flag

	AllocateCallback AllocateCallback
	ReleaseCallback  ReleaseCallback

	// PluginSearchPaths lists additional directories to search for plugins,
	// beyond the directory the interposer itself was loaded from.
	PluginSearchPaths []string
}

// Has reports whether flag is set in p.Flags.
func (p Preferences) Has(flag Flag) bool {
	return p.Flags&flag != 0
}

// ToLogPreferences projects the logging-relevant fields of p into the form
// internal/log.Init expects.
func (p Preferences) ToLogPreferences() log.Preferences {
	return log.Preferences{
		Level:    p.LogLevel,
		Path:     p.LogPath,
		Callback: p.LogCallback,
	}
}
