// Package library implements the library manager (§4.D): load/unload
// deduplication over native libraries keyed by canonical path, symbol
// resolution, and the can-unload-now accounting that backs the
// runtime's free-unused-libraries sweep.
package library

import (
	"strings"
	"sync"

	"github.com/ncw/comrt/internal/comif"
	"github.com/ncw/comrt/internal/errcode"
	"github.com/ncw/comrt/internal/guid"
	"github.com/ncw/comrt/internal/intrlist"
	"github.com/ncw/comrt/internal/nativeloader"
)

// Well-known per-library entry point names (§6).
const (
	SymbolGetClassObject = "DllGetClassObject"
	SymbolCanUnloadNow   = "DllCanUnloadNow"
)

// Default init/teardown entry point names (§6).
const (
	DefaultInitSymbol     = "__init_com_"
	DefaultTeardownSymbol = "__expunge_com_"
)

// InitFunc is the signature a library's optional init entry point
// must have.
type InitFunc func() errcode.Code

// TeardownFunc is the signature a library's optional teardown entry
// point must have.
type TeardownFunc func()

// GetClassObjectFunc is the signature of the mandatory per-library
// DllGetClassObject entry point.
type GetClassObjectFunc func(clsid, iid guid.Identifier) (comif.Unknown, error)

// CanUnloadNowFunc is the signature of the optional DllCanUnloadNow
// entry point.
type CanUnloadNowFunc func() errcode.Code

// Node is a loaded library's bookkeeping record. Its fields are
// private; callers hold a Handle and operate on it through the
// Manager.
type Node struct {
	path      string
	native    nativeloader.Handle
	loadCount int
	elem      *intrlist.Element
}

// Path returns the canonical path this node was loaded from.
func (n *Node) Path() string { return n.path }

// LoadCount returns the node's current load count.
func (n *Node) LoadCount() int { return n.loadCount }

// Handle identifies a loaded library to every other Manager method.
type Handle = *Node

// Option configures a Manager.
type Option func(*Manager)

// WithLoader overrides the native loader, the default being
// nativeloader.PluginLoader{}.
func WithLoader(l nativeloader.Loader) Option {
	return func(m *Manager) { m.loader = l }
}

// WithInitSymbol overrides the init entry point name.
func WithInitSymbol(name string) Option {
	return func(m *Manager) { m.initSymbol = name }
}

// WithTeardownSymbol overrides the teardown entry point name.
func WithTeardownSymbol(name string) Option {
	return func(m *Manager) { m.teardownSymbol = name }
}

// WithCaseInsensitivePaths makes path comparison case-insensitive,
// for filesystems that are (§4.D defaults to case-sensitive, the
// POSIX behavior).
func WithCaseInsensitivePaths() Option {
	return func(m *Manager) { m.caseSensitive = false }
}

// Manager is the process-wide library manager. The zero value is not
// usable; use New.
type Manager struct {
	mu   sync.Mutex
	list *intrlist.List

	loader         nativeloader.Loader
	initSymbol     string
	teardownSymbol string
	caseSensitive  bool
}

// New returns a Manager with its node list empty.
func New(opts ...Option) *Manager {
	m := &Manager{
		list:           intrlist.New(),
		loader:         nativeloader.PluginLoader{},
		initSymbol:     DefaultInitSymbol,
		teardownSymbol: DefaultTeardownSymbol,
		caseSensitive:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) samePath(a, b string) bool {
	if m.caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

func (m *Manager) find(path string) *Node {
	var found *Node
	m.list.Each(func(e *intrlist.Element) {
		if found != nil {
			return
		}
		if n := e.Value.(*Node); m.samePath(n.path, path) {
			found = n
		}
	})
	return found
}

// Load returns the handle for path, loading it if it isn't already
// resident. The library mutex is held from the cache probe through
// the native open and list append, so two concurrent Load calls for
// the same path can never both open it, and each logical call still
// gets its own increment of the node's load count, which matching
// Unload calls rely on.
func (m *Manager) Load(path string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := m.find(path); n != nil {
		n.loadCount++
		return n, nil
	}

	native, err := m.loader.Open(path)
	if err != nil {
		return nil, errcode.LibraryNotFound
	}

	n := &Node{path: path, native: native, loadCount: 1}
	n.elem = m.list.PushBack(n)

	if sym, ok := m.loader.Symbol(native, m.initSymbol); ok {
		initFn, ok := sym.(InitFunc)
		if !ok || errcode.Failed(initFn()) {
			m.list.Remove(n.elem)
			_ = m.loader.Close(native)
			return nil, errcode.LibraryNotFound
		}
	}

	return n, nil
}

// Unload decrements h's load count; at zero it invokes the library's
// optional teardown entry point, removes the node, and closes the
// native library.
func (m *Manager) Unload(h Handle) error {
	if h == nil {
		return errcode.InvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if h.loadCount > 0 {
		h.loadCount--
	}
	if h.loadCount > 0 {
		return nil
	}

	if sym, ok := m.loader.Symbol(h.native, m.teardownSymbol); ok {
		if fn, ok := sym.(TeardownFunc); ok {
			fn()
		}
	}
	m.list.Remove(h.elem)
	return m.loader.Close(h.native)
}

// GetSymbol resolves name in h's library.
func (m *Manager) GetSymbol(h Handle, name string) (any, error) {
	if h == nil {
		return nil, errcode.InvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sym, ok := m.loader.Symbol(h.native, name)
	if !ok {
		return nil, errcode.NoInterface
	}
	return sym, nil
}

// GetClassObject resolves h's mandatory DllGetClassObject entry point
// and calls it with clsid and iid.
func (m *Manager) GetClassObject(h Handle, clsid, iid guid.Identifier) (comif.Unknown, error) {
	sym, err := m.GetSymbol(h, SymbolGetClassObject)
	if err != nil {
		return nil, errcode.SymbolNotFound
	}
	fn, ok := sym.(GetClassObjectFunc)
	if !ok {
		return nil, errcode.SymbolNotFound
	}
	return fn(clsid, iid)
}

// CanUnloadNow resolves h's optional DllCanUnloadNow entry point and
// reports true only when it returns errcode.OK; absence is treated
// conservatively as false.
func (m *Manager) CanUnloadNow(h Handle) bool {
	sym, err := m.GetSymbol(h, SymbolCanUnloadNow)
	if err != nil {
		return false
	}
	fn, ok := sym.(CanUnloadNowFunc)
	if !ok {
		return false
	}
	return fn() == errcode.OK
}

// FreeUnused walks every loaded library once and unloads those whose
// CanUnloadNow reports true, returning how many were freed. Unlike
// the original CoFreeUnusedLibraries, this always advances to the
// next node regardless of whether the current one was freed — the
// original's loop never advanced on refusal and so could spin forever
// on the first busy library (see SPEC_FULL.md / spec.md §9).
func (m *Manager) FreeUnused() int {
	m.mu.Lock()
	handles := make([]Handle, 0, m.list.Len())
	for e := m.list.Front(); e != nil; e = e.Next() {
		handles = append(handles, e.Value.(*Node))
	}
	m.mu.Unlock()

	freed := 0
	for _, h := range handles {
		if m.CanUnloadNow(h) {
			if err := m.Unload(h); err == nil {
				freed++
			}
		}
	}
	return freed
}

// Len returns the number of distinct libraries currently resident.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list.Len()
}

// Info is a snapshot of one resident library's bookkeeping, for
// listing tools.
type Info struct {
	Path      string
	LoadCount int
}

// Snapshot returns one Info per currently resident library, in load
// order, for operator tooling such as cmd/comrtctl's list-libraries.
func (m *Manager) Snapshot() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]Info, 0, m.list.Len())
	for e := m.list.Front(); e != nil; e = e.Next() {
		n := e.Value.(*Node)
		infos = append(infos, Info{Path: n.path, LoadCount: n.loadCount})
	}
	return infos
}
