package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/sl-streamline/core/internal/log"
)

// LogOverrides holds the logging-relevant settings that can be overridden
// out-of-band from the three sources below, independent of what the host
// passed to init().
type LogOverrides struct {
	Level   *log.Level
	Path    *string
	Verbose *bool
}

// devConfig is the shape of the in-dev interposer override file
// (sl.interposer.toml, dropped next to the interposer binary).
type devConfig struct {
	Log struct {
		Level   string `toml:"level"`
		Path    string `toml:"path"`
		Verbose bool   `toml:"verbose"`
	} `toml:"log"`
}

// registryShim stands in for the Windows registry values
// (HKLM/SOFTWARE/NVIDIA/Streamline on the real platform); on every platform
// this module runs tests on, it's backed by a map populated through
// NewRegistryShim. Production builds populate it from the real registry in
// a platform-specific file (not included here -- the registry access layer
// itself is out of scope, see package doc).
type registryShim struct {
	values map[string]string
}

var emptyShim = &registryShim{values: map[string]string{}}

// ResolveLogOverrides applies the three override sources -- in-dev TOML
// config file (JSON is not parsed), environment variables, and registry
// values -- in the
// precedence order actually implemented (registry wins, then environment,
// then the file), matching the design notes' explicit precedence table
// rather than the narrative text elsewhere that describes it backwards.
//
// devConfigPath may be empty, in which case the file source contributes
// nothing. shim may be nil, in which case no registry values are applied.
func ResolveLogOverrides(devConfigPath string, shim *registryShim) LogOverrides {
	var out LogOverrides

	// Lowest precedence: in-dev config file.
	if devConfigPath != "" {
		if data, err := os.ReadFile(devConfigPath); err == nil {
			var cfg devConfig
			if err := toml.Unmarshal(data, &cfg); err == nil {
				if lvl, ok := parseLevel(cfg.Log.Level); ok {
					out.Level = &lvl
				}
				if cfg.Log.Path != "" {
					path := cfg.Log.Path
					out.Path = &path
				}
				verbose := cfg.Log.Verbose
				out.Verbose = &verbose
			}
		}
	}

	// Middle precedence: environment variables.
	if v := os.Getenv("SL_LOG_LEVEL"); v != "" {
		if lvl, ok := parseLevel(v); ok {
			out.Level = &lvl
		}
	}
	if v := os.Getenv("SL_LOG_PATH"); v != "" {
		out.Path = &v
	}
	if v := os.Getenv("SL_LOG_VERBOSE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			out.Verbose = &b
		}
	}

	// Highest precedence: registry values.
	if shim == nil {
		shim = emptyShim
	}
	if v, ok := shim.values["LogLevel"]; ok {
		if lvl, ok := parseLevel(v); ok {
			out.Level = &lvl
		}
	}
	if v, ok := shim.values["LogPath"]; ok {
		out.Path = &v
	}
	if v, ok := shim.values["LogVerbose"]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			out.Verbose = &b
		}
	}

	return out
}

// Apply merges overrides onto base, returning the effective preferences.
func (o LogOverrides) Apply(base log.Preferences) log.Preferences {
	out := base
	if o.Level != nil {
		out.Level = *o.Level
	}
	if o.Path != nil {
		out.Path = *o.Path
	}
	if o.Verbose != nil {
		out.Verbose = *o.Verbose
	}
	return out
}

func parseLevel(s string) (log.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return log.LevelOff, true
	case "error":
		return log.LevelError, true
	case "warn", "warning":
		return log.LevelWarn, true
	case "info":
		return log.LevelInfo, true
	case "debug", "verbose":
		return log.LevelDebug, true
	default:
		return 0, false
	}
}

// NewRegistryShim constructs a registry shim from an explicit value map, for
// tests and for platforms that read the real registry into this shape
// before calling ResolveLogOverrides.
func NewRegistryShim(values map[string]string) *registryShim {
	return &registryShim{values: values}
}
