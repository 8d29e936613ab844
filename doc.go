// Package streamline is the host-facing entry point of the injection layer:
// preferences, the error taxonomy every C-ABI function returns, and the
// per-frame API (getNewFrameToken, setConstants, setTag, evaluateFeature)
// that drives the frame coordination core in package core. The interposer
// (package interposer), the compute abstraction (package chi), and the
// plugin manager (package plugin) sit below this package; cmd/sl-interposer
// is the thin entry point a host's import library actually links against.
package streamline
