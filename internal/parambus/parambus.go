// Package parambus implements the process-wide parameters bus: a concurrent
// typed map keyed by string, used as the inter-plugin communication channel
// described in the design notes ("model it as a concurrent map from string
// key to a tagged union of supported types"). The NGXContext a plugin
// receives on slOnPluginStartup travels over this bus, as do feature-specific
// settings that one plugin publishes for another to consume.
package parambus

import (
	"fmt"
	"sync"
)

// Kind tags the type stored under a bus key.
type Kind int

const (
	KindInvalid Kind = iota
	KindFunc
	KindPointer
	KindInt
	KindFloat
	KindString
)

// Value is a tagged union over the bus's five supported payload shapes.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind    Kind
	Func    any // function value, e.g. a createFeature/evaluateFeature callback
	Pointer any // opaque interface pointer, e.g. *NGX_Parameter
	Int     int64
	Float   float64
	Str     string
}

func FuncValue(f any) Value      { return Value{Kind: KindFunc, Func: f} }
func PointerValue(p any) Value   { return Value{Kind: KindPointer, Pointer: p} }
func IntValue(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// ErrWrongKind is returned by the typed accessors when a key holds a value
// of a different Kind than requested.
type ErrWrongKind struct {
	Key  string
	Want Kind
	Have Kind
}

func (e *ErrWrongKind) Error() string {
	return fmt.Sprintf("parambus: key %q: want kind %d, have %d", e.Key, e.Want, e.Have)
}

// ErrNotFound is returned when a key has never been set.
type ErrNotFound struct{ Key string }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("parambus: key %q not found", e.Key) }

// Bus is a concurrent string-keyed parameter table. The zero value is not
// usable; construct with New.
type Bus struct {
	mu   sync.RWMutex
	vals map[string]Value
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{vals: make(map[string]Value)}
}

// Set stores v under key, overwriting any previous value.
func (b *Bus) Set(key string, v Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vals[key] = v
}

// SetFunc, SetPointer, SetInt, SetFloat, SetString are Set convenience
// wrappers matching the plugin-facing slSetParameter* entry points.
func (b *Bus) SetFunc(key string, f any)      { b.Set(key, FuncValue(f)) }
func (b *Bus) SetPointer(key string, p any)   { b.Set(key, PointerValue(p)) }
func (b *Bus) SetInt(key string, i int64)     { b.Set(key, IntValue(i)) }
func (b *Bus) SetFloat(key string, f float64) { b.Set(key, FloatValue(f)) }
func (b *Bus) SetString(key string, s string) { b.Set(key, StringValue(s)) }

// Get retrieves the raw tagged value under key.
func (b *Bus) Get(key string) (Value, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.vals[key]
	if !ok {
		return Value{}, &ErrNotFound{Key: key}
	}
	return v, nil
}

// GetFunc retrieves a function-kind value under key.
func (b *Bus) GetFunc(key string) (any, error) {
	v, err := b.Get(key)
	if err != nil {
		return nil, err
	}
	if v.Kind != KindFunc {
		return nil, &ErrWrongKind{Key: key, Want: KindFunc, Have: v.Kind}
	}
	return v.Func, nil
}

// GetPointer retrieves a pointer-kind value under key.
func (b *Bus) GetPointer(key string) (any, error) {
	v, err := b.Get(key)
	if err != nil {
		return nil, err
	}
	if v.Kind != KindPointer {
		return nil, &ErrWrongKind{Key: key, Want: KindPointer, Have: v.Kind}
	}
	return v.Pointer, nil
}

// GetInt retrieves an int-kind value under key.
func (b *Bus) GetInt(key string) (int64, error) {
	v, err := b.Get(key)
	if err != nil {
		return 0, err
	}
	if v.Kind != KindInt {
		return 0, &ErrWrongKind{Key: key, Want: KindInt, Have: v.Kind}
	}
	return v.Int, nil
}

// GetFloat retrieves a float-kind value under key.
func (b *Bus) GetFloat(key string) (float64, error) {
	v, err := b.Get(key)
	if err != nil {
		return 0, err
	}
	if v.Kind != KindFloat {
		return 0, &ErrWrongKind{Key: key, Want: KindFloat, Have: v.Kind}
	}
	return v.Float, nil
}

// GetString retrieves a string-kind value under key.
func (b *Bus) GetString(key string) (string, error) {
	v, err := b.Get(key)
	if err != nil {
		return "", err
	}
	if v.Kind != KindString {
		return "", &ErrWrongKind{Key: key, Want: KindString, Have: v.Kind}
	}
	return v.Str, nil
}

// Has reports whether key currently has a value set.
func (b *Bus) Has(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.vals[key]
	return ok
}

// Delete removes key, if present.
func (b *Bus) Delete(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.vals, key)
}

// Keys returns a snapshot of every key currently set, for diagnostics.
func (b *Bus) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.vals))
	for k := range b.vals {
		keys = append(keys, k)
	}
	return keys
}
