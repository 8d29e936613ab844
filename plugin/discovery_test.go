package plugin

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDiscoverFindsPlatformExtension(t *testing.T) {
	dir := t.TempDir()
	ext := pluginExtension()
	if err := os.WriteFile(filepath.Join(dir, "dlss"+ext), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	found, err := Discover([]string{dir})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(found) != 1 || filepath.Base(found[0].Path) != "dlss"+ext {
		t.Fatalf("got %v, want exactly one %s file", found, ext)
	}
}

func TestDiscoverSkipsMissingDir(t *testing.T) {
	found, err := Discover([]string{filepath.Join(t.TempDir(), "does-not-exist")})
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("got %v, want none", found)
	}
}

func TestPluginExtensionMatchesGOOS(t *testing.T) {
	want := map[string]string{"windows": ".dll", "darwin": ".dylib", "linux": ".so"}[runtime.GOOS]
	if want == "" {
		want = ".so"
	}
	if got := pluginExtension(); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMergeJSONLoaderConfigWins(t *testing.T) {
	embedded := []byte(`{"name":"dlss","minOSVersion":"10.0.19041"}`)
	loaderConfig := []byte(`{"minOSVersion":"10.0.22000"}`)

	m, err := MergeJSON(embedded, loaderConfig)
	if err != nil {
		t.Fatalf("MergeJSON: %v", err)
	}
	if m.Name != "dlss" {
		t.Fatalf("got name %q, want dlss (preserved from embedded)", m.Name)
	}
	if m.MinOSVersion != "10.0.22000" {
		t.Fatalf("got MinOSVersion %q, want loader config's override", m.MinOSVersion)
	}
}

func TestMergeJSONEmptyInputs(t *testing.T) {
	m, err := MergeJSON(nil, nil)
	if err != nil {
		t.Fatalf("MergeJSON: %v", err)
	}
	if m.Name != "" {
		t.Fatalf("got %+v, want zero value", m)
	}
}
