// Package nativeloader abstracts the operating system's dynamic
// library loader behind a small interface, so the library manager
// (§4.D) can be tested without linking real shared objects. The
// default implementation wraps the standard library's plugin package;
// tests substitute an in-memory fake.
package nativeloader

import (
	"errors"
	"plugin"
	"reflect"

	"github.com/ncw/comrt/internal/errcode"
)

// Handle identifies an opened native library. Its concrete type is
// private to the Loader implementation that produced it.
type Handle any

// Loader opens native libraries, resolves symbols in them, and closes
// them. Every method call here may block on I/O, per §5's suspension
// notes.
type Loader interface {
	Open(path string) (Handle, error)
	Symbol(h Handle, name string) (any, bool)
	Close(h Handle) error
}

// PluginLoader is the default Loader, backed by Go's plugin package.
// Go plugins cannot be unloaded once opened — Close is a documented
// no-op, matching the host platform's own constraint rather than
// papering over it.
type PluginLoader struct{}

var _ Loader = PluginLoader{}

// Open loads the plugin at path.
func (PluginLoader) Open(path string) (Handle, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, errcode.LibraryNotFound
	}
	return p, nil
}

// Symbol resolves name in the library identified by h. A plugin
// exported as a package-level function yields its value directly; one
// exported as a package-level variable (the only way to give it one of
// this package's named func types, so that type assertions against
// InitFunc/TeardownFunc/GetClassObjectFunc/CanUnloadNowFunc succeed)
// yields a pointer to that variable, per the plugin package's own
// Lookup contract. Symbol dereferences the latter so callers only ever
// see the function value either way.
func (PluginLoader) Symbol(h Handle, name string) (any, bool) {
	p, ok := h.(*plugin.Plugin)
	if !ok {
		return nil, false
	}
	sym, err := p.Lookup(name)
	if err != nil {
		return nil, false
	}
	if v := reflect.ValueOf(sym); v.Kind() == reflect.Ptr && v.Elem().Kind() == reflect.Func {
		return v.Elem().Interface(), true
	}
	return sym, true
}

// Close is a no-op: the plugin package provides no unload primitive.
func (PluginLoader) Close(Handle) error { return nil }

// FakeLoader is an in-memory Loader for tests. Register a library's
// path and its exported symbols before Open is called with that path.
type FakeLoader struct {
	libs       map[string]map[string]any
	OpenCount  map[string]int
	CloseCount map[string]int
}

var _ Loader = (*FakeLoader)(nil)

// NewFake returns an empty FakeLoader.
func NewFake() *FakeLoader {
	return &FakeLoader{
		libs:       make(map[string]map[string]any),
		OpenCount:  make(map[string]int),
		CloseCount: make(map[string]int),
	}
}

// Register makes path openable, exposing symbols.
func (f *FakeLoader) Register(path string, symbols map[string]any) {
	f.libs[path] = symbols
}

type fakeHandle struct {
	path string
}

// Open looks up a previously Registered path.
func (f *FakeLoader) Open(path string) (Handle, error) {
	if _, ok := f.libs[path]; !ok {
		return nil, errcode.LibraryNotFound
	}
	f.OpenCount[path]++
	return &fakeHandle{path: path}, nil
}

// Symbol resolves name among h's registered symbols.
func (f *FakeLoader) Symbol(h Handle, name string) (any, bool) {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return nil, false
	}
	sym, ok := f.libs[fh.path][name]
	return sym, ok
}

// Close records that h was closed.
func (f *FakeLoader) Close(h Handle) error {
	fh, ok := h.(*fakeHandle)
	if !ok {
		return errors.New("nativeloader: not a fake handle")
	}
	f.CloseCount[fh.path]++
	return nil
}
