package chi

import "testing"

func TestGetCorrectFormatReplacesDepthAndTypeless(t *testing.T) {
	cases := map[Format]Format{
		FormatD32Float:         FormatR32Float,
		FormatD32FloatTypeless: FormatR32Float,
		FormatR32Typeless:      FormatR32Float,
		FormatD24UnormS8Uint:   FormatR32Uint,
		FormatRGBA8Typeless:    FormatRGBA8Unorm,
		FormatRGBA8Unorm:       FormatRGBA8Unorm,
	}
	for in, want := range cases {
		if got := getCorrectFormat(in); got != want {
			t.Errorf("getCorrectFormat(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestFlagsHas(t *testing.T) {
	f := FlagShaderResource | FlagConstantBuffer
	if !f.Has(FlagShaderResource) || !f.Has(FlagConstantBuffer) {
		t.Fatal("expected both set flags to report Has")
	}
	if f.Has(FlagColorAttachment) {
		t.Fatal("unset flag reported Has")
	}
}

func TestDescriptorHashKeyDistinguishesDimensions(t *testing.T) {
	a := Descriptor{Width: 64, Height: 64, NativeFormat: FormatRGBA8Unorm}
	b := Descriptor{Width: 128, Height: 64, NativeFormat: FormatRGBA8Unorm}
	if a.hashKey() == b.hashKey() {
		t.Fatal("expected different widths to hash differently")
	}
}

func TestTrackedTableDetectsRecycledPointer(t *testing.T) {
	tt := NewTrackedTable()
	ptrA := new(int)
	ptrB := new(int)

	if recycled := tt.Start(7, ptrA); recycled {
		t.Fatal("first Start for an id must not report recycled")
	}
	if recycled := tt.Start(7, ptrA); recycled {
		t.Fatal("re-tracking the same pointer must not report recycled")
	}
	if recycled := tt.Start(7, ptrB); !recycled {
		t.Fatal("tracking a different pointer under the same id must report recycled")
	}
}

func TestTrackedTableStopRemoves(t *testing.T) {
	tt := NewTrackedTable()
	tt.Start(1, "x")
	tt.Stop(1)
	if _, ok := tt.Lookup(1); ok {
		t.Fatal("expected Lookup to miss after Stop")
	}
}
