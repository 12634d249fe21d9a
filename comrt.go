// Package comrt is a Go-native re-implementation of a minimal
// in-process component-object activation runtime (§4.U and friends):
// an on-disk class registry, a dynamic-library load manager, a class
// activator built on top of them, and the lifecycle glue that ties
// their three pieces of shared mutable state to a single init counter.
package comrt

import (
	"context"
	"sync"

	"github.com/ncw/comrt/internal/activator"
	"github.com/ncw/comrt/internal/alloc"
	"github.com/ncw/comrt/internal/corelog"
	"github.com/ncw/comrt/internal/errcode"
	"github.com/ncw/comrt/internal/library"
	"github.com/ncw/comrt/internal/nativeloader"
	"github.com/ncw/comrt/internal/registry"
)

// Config configures a Runtime's registry root, subspace names, and
// native-loader collaborator, threaded in the teacher's
// functional-option style.
type Config struct {
	registryRoot    string
	registryOptions []registry.Option
	libraryOptions  []library.Option
}

// Option configures a Config.
type Option func(*Config)

// WithRegistryRoot sets the directory the class registry is rooted at.
func WithRegistryRoot(root string) Option {
	return func(c *Config) { c.registryRoot = root }
}

// WithRegistrySubspaceNames overrides the three registry subspace
// directory names (default: InprocServers, InprocHandlers, TreatAs).
func WithRegistrySubspaceNames(inprocServers, inprocHandlers, treatAs string) Option {
	return func(c *Config) {
		c.registryOptions = append(c.registryOptions, registry.WithSubspaceNames(inprocServers, inprocHandlers, treatAs))
	}
}

// WithLoader overrides the native-library loader, the default being
// the Go plugin package.
func WithLoader(l nativeloader.Loader) Option {
	return func(c *Config) { c.libraryOptions = append(c.libraryOptions, library.WithLoader(l)) }
}

// WithEntryPointSymbols overrides the per-library init/teardown symbol
// names (default: __init_com_, __expunge_com_).
func WithEntryPointSymbols(initSymbol, teardownSymbol string) Option {
	return func(c *Config) {
		c.libraryOptions = append(c.libraryOptions,
			library.WithInitSymbol(initSymbol),
			library.WithTeardownSymbol(teardownSymbol))
	}
}

func newConfig(opts ...Option) Config {
	c := Config{}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Runtime is one instance of the component-object runtime: the
// registry, library manager, and activator, gated behind an init
// counter exactly as §4.U and §5 specify. The zero value is not
// usable; use New.
//
// The init mutex is a leaf: neither the allocator nor the library
// manager ever takes it, so no other lock is held when it is acquired.
// Initialize only constructs those pieces while holding it;
// Uninitialize runs the allocator's leak sweep, which takes the
// allocation mutex, while still holding it.
type Runtime struct {
	cfg Config

	initMu    sync.Mutex
	initCount int

	allocator *alloc.Allocator
	registry  *registry.Registry
	library   *library.Manager
	activator *activator.Activator
}

// New returns a Runtime configured by opts. It is not initialized;
// call Initialize before using any other method.
func New(opts ...Option) *Runtime {
	return &Runtime{cfg: newConfig(opts...)}
}

// Initialize performs the runtime's 0→1 initialization transition:
// allocator init, then library-manager init (the original's "loader
// init" — here just constructing the manager, since Go has no global
// loader state to bring up separately). Every additional call beyond
// the first increments the counter and succeeds without doing
// anything further; every Initialize must be matched by an
// Uninitialize.
func (r *Runtime) Initialize() errcode.Code {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	r.initCount++
	if r.initCount > 1 {
		return errcode.OK
	}

	r.allocator = alloc.New()
	r.registry = registry.New(registry.NewConfig(r.cfg.registryRoot, r.cfg.registryOptions...))
	r.library = library.New(r.cfg.libraryOptions...)
	r.activator = activator.New(r.registry, r.library)
	corelog.Info(context.Background(), "runtime initialized", "registry_root", r.cfg.registryRoot)
	return errcode.OK
}

// Uninitialize performs the runtime's decrement; on the 1→0
// transition it tears down in reverse order of Initialize (loader,
// then allocator), running the allocator's debugging leak sweep last.
// Calling Uninitialize more times than Initialize is a programming
// error and reports Unexpected without touching anything.
func (r *Runtime) Uninitialize() errcode.Code {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	if r.initCount == 0 {
		return errcode.Unexpected
	}
	r.initCount--
	if r.initCount > 0 {
		return errcode.OK
	}

	r.library = nil
	r.activator = nil
	r.registry = nil
	leaked := r.allocator.Close()
	if leaked > 0 {
		corelog.Warn(context.Background(), "runtime uninitialized with outstanding allocations", "count", leaked)
	} else {
		corelog.Info(context.Background(), "runtime uninitialized")
	}
	r.allocator = nil
	return errcode.OK
}

// InitCount reports the current init counter, for tests and
// diagnostics.
func (r *Runtime) InitCount() int {
	r.initMu.Lock()
	defer r.initMu.Unlock()
	return r.initCount
}

// Activator returns the runtime's class activator. Nil before
// Initialize or after the final Uninitialize.
func (r *Runtime) Activator() *activator.Activator {
	r.initMu.Lock()
	defer r.initMu.Unlock()
	return r.activator
}

// Registry returns the runtime's class registry. Nil before
// Initialize or after the final Uninitialize.
func (r *Runtime) Registry() *registry.Registry {
	r.initMu.Lock()
	defer r.initMu.Unlock()
	return r.registry
}

// Allocator returns the runtime's task allocator. Nil before
// Initialize or after the final Uninitialize.
func (r *Runtime) Allocator() *alloc.Allocator {
	r.initMu.Lock()
	defer r.initMu.Unlock()
	return r.allocator
}

// Library returns the runtime's library manager. Nil before
// Initialize or after the final Uninitialize.
func (r *Runtime) Library() *library.Manager {
	r.initMu.Lock()
	defer r.initMu.Unlock()
	return r.library
}

// FreeUnusedLibraries walks the library manager's node list and
// unloads every node whose can-unload-now reports true, returning how
// many were freed. A no-op returning 0 before Initialize.
func (r *Runtime) FreeUnusedLibraries() int {
	lib := func() *library.Manager {
		r.initMu.Lock()
		defer r.initMu.Unlock()
		return r.library
	}()
	if lib == nil {
		return 0
	}
	return lib.FreeUnused()
}

// Version is the runtime's packed major/revision build identifier,
// the Go-native equivalent of the original's CoBuildVersion: a
// harmless diagnostic exposed for operator tooling, not a
// behavior-affecting feature.
type Version struct {
	Major    uint16
	Revision uint16
}

// BuildVersion returns the runtime's build version.
func BuildVersion() Version {
	return Version{Major: 1, Revision: 0}
}
