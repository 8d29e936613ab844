// Package plugin implements the plugin manager: discovery of sibling
// plugin modules, OS/driver/adapter gating, dependency load ordering,
// per-feature hook registration, and evaluateFeature dispatch through the
// common plugin's frame-coordination core.
//
// The manager depends on package core for the Feature id it keys features
// by, and on package streamline (the module root) for the Feature and
// FeatureHandlers types of the FeatureResolver interface it implements --
// Manager never uses the root package's concrete Instance type, and the
// root package does not import plugin, keeping the dependency
// one-directional.
package plugin
