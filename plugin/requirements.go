package plugin

// Manifest is a plugin's embedded JSON, merged with the loader's own JSON
// before being handed to slOnPluginLoad: name, versions, dependencies,
// supported render APIs, declared hooks, required tags, minimum OS/driver
// versions, and -- for NGX-backed plugins -- the NGX feature id used to
// query requirements at startup.
type Manifest struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Dependencies []string `json:"dependencies"`

	SupportedRenderAPIs []string `json:"supportedRenderAPIs"`

	Hooks        []HookDecl        `json:"hooks"`
	RequiredTags []RequiredTagDecl `json:"requiredTags"`

	MinOSVersion     string `json:"minOSVersion"`
	MinDriverVersion string `json:"minDriverVersion"`

	// NGXFeatureID is set only for NGX-backed plugins; nil for plugins
	// that do not go through NGX (Reflex, DirectSR, ...). The manager
	// does not read it: LoadAll gates on FromManifest alone and issues no
	// NGX requirement query.
	NGXFeatureID *uint32 `json:"ngxFeatureId,omitempty"`
}

// HookDecl is one (apiFunctionId, phase) pair a plugin's manifest declares
// it wants registered once the plugin is loaded.
type HookDecl struct {
	APIFunctionID string `json:"apiFunctionId"`
	Phase         string `json:"phase"` // "before" | "replace" | "after"
}

// RequiredTagDecl is one (tagType, lifecycle) pair a plugin's manifest
// declares it needs -- published so the common plugin can decide at
// set-tag time whether to clone, without waiting for the plugin to call
// RequireTag itself during its first evaluate.
type RequiredTagDecl struct {
	TagType   uint32 `json:"tagType"`
	Lifecycle int    `json:"lifecycle"`
}

// FeatureRequirements is what a plugin publishes (via its manifest, or an
// NGX feature-requirement query overriding the manifest's declared
// minimums) about what it needs to run: minimum OS/driver versions and the
// adapter architectures it supports. Gate merges this against
// SystemCaps to produce a plugin's supportedAdapters mask.
type FeatureRequirements struct {
	MinOSVersion     string
	MinDriverVersion string
	// SupportedArchitectures, if non-empty, restricts matching adapters to
	// these architecture strings (e.g. "turing", "ada"); empty means any
	// architecture satisfying the version minimums qualifies.
	SupportedArchitectures []string
}

// FromManifest derives the baseline FeatureRequirements a plugin's own
// manifest declares, before any NGX override is applied.
func (m Manifest) FromManifest() FeatureRequirements {
	return FeatureRequirements{
		MinOSVersion:     m.MinOSVersion,
		MinDriverVersion: m.MinDriverVersion,
	}
}

// NGXRequirementQuery resolves the possibly-overridden requirements for an
// NGX-backed plugin. Manager never calls a query of this type; it gates
// every plugin, NGX-backed or not, on the manifest's FromManifest result.
// This is the boundary to the NGX SDK, an external collaborator out of
// scope for this module -- the manager depends only on this function
// type, supplied by whatever NGX integration the host wires in.
type NGXRequirementQuery func(featureID uint32) (FeatureRequirements, error)
