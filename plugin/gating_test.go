package plugin

import "testing"

func TestGateOSVersionBelowMinimum(t *testing.T) {
	caps := SystemCaps{OSVersion: "10.0.19041", Adapters: []AdapterCaps{{Index: 0, DriverVersion: "551.0"}}}
	req := FeatureRequirements{MinOSVersion: "10.0.22000"}
	if mask := Gate(caps, req); mask.Supported() {
		t.Fatalf("expected unsupported OS to zero the mask, got %v", mask)
	}
}

func TestGateAdapterDriverVersion(t *testing.T) {
	caps := SystemCaps{Adapters: []AdapterCaps{
		{Index: 0, DriverVersion: "550.0"},
		{Index: 1, DriverVersion: "552.10"},
	}}
	req := FeatureRequirements{MinDriverVersion: "551.0"}
	mask := Gate(caps, req)
	if mask != (1 << 1) {
		t.Fatalf("got mask %v, want only adapter 1 supported", mask)
	}
}

func TestGateArchitectureFilter(t *testing.T) {
	caps := SystemCaps{Adapters: []AdapterCaps{
		{Index: 0, Architecture: "turing", DriverVersion: "551.0"},
		{Index: 1, Architecture: "ada", DriverVersion: "551.0"},
	}}
	req := FeatureRequirements{SupportedArchitectures: []string{"ada"}}
	mask := Gate(caps, req)
	if mask != (1 << 1) {
		t.Fatalf("got mask %v, want only the ada adapter", mask)
	}
}

func TestGateNoRequirementsSupportsEveryAdapter(t *testing.T) {
	caps := SystemCaps{Adapters: []AdapterCaps{{Index: 0}, {Index: 2}}}
	mask := Gate(caps, FeatureRequirements{})
	if mask != (1<<0 | 1<<2) {
		t.Fatalf("got mask %v, want adapters 0 and 2", mask)
	}
}

func TestVersionLess(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"551.23", "552.0", true},
		{"552.0", "551.23", false},
		{"551.0", "551.0", false},
		{"", "1.0", true},
		{"1", "1.0.1", true},
	}
	for _, c := range cases {
		if got := versionLess(c.a, c.b); got != c.want {
			t.Errorf("versionLess(%q,%q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
