// Package activator implements the class activator (§4.F): resolving
// a class-id through emulation, locating and loading the library that
// hosts it, and the create-instance/create-instance-ex convenience
// wrappers built on top of a class factory.
package activator

import (
	"github.com/ncw/comrt/internal/comif"
	"github.com/ncw/comrt/internal/errcode"
	"github.com/ncw/comrt/internal/guid"
	"github.com/ncw/comrt/internal/library"
	"github.com/ncw/comrt/internal/registry"
)

// ContextFlags is the bit set over activation locations (§6). Only
// InprocServer and InprocHandler are supported; LocalServer and
// RemoteServer bits are silently ignored wherever they appear.
type ContextFlags uint32

const (
	ContextInprocServer  ContextFlags = 1
	ContextInprocHandler ContextFlags = 2
	ContextLocalServer   ContextFlags = 4
	ContextRemoteServer  ContextFlags = 16
)

// locations pairs each context-flag bit with the registry subspace it
// reads from, in the activation order §4.F specifies.
var locations = []struct {
	flag  ContextFlags
	space registry.Subspace
}{
	{ContextInprocServer, registry.InprocServers},
	{ContextInprocHandler, registry.InprocHandlers},
}

// Activator resolves and activates classes against a Registry and a
// library.Manager.
type Activator struct {
	registry *registry.Registry
	library  *library.Manager
}

// New returns an Activator backed by reg and lib.
func New(reg *registry.Registry, lib *library.Manager) *Activator {
	return &Activator{registry: reg, library: lib}
}

// GetClassObject resolves clsid through the emulation resolver, then
// tries each requested location in context in order (in-proc-server,
// in-proc-handler). For each, it reads the resolved class-id's
// registry entry to get a library path, loads that library, and asks
// it for a class object using the *original*, unresolved clsid — the
// original's documented behavior, preserved here because a library
// may host several emulated classes and needs the caller's own id to
// pick the right one. The first location to succeed wins; a read,
// load or class-object failure at one location is never surfaced
// itself: once every requested location has failed, ClassNotRegistered
// is returned.
func (a *Activator) GetClassObject(clsid guid.Identifier, ctx ContextFlags, iid guid.Identifier) (comif.Unknown, error) {
	resolved, err := a.registry.ResolveTreatAs(clsid)
	if err != nil {
		return nil, err
	}

	for _, loc := range locations {
		if ctx&loc.flag == 0 {
			continue
		}
		path, err := a.registry.Read(loc.space, resolved)
		if err != nil {
			continue
		}
		handle, err := a.library.Load(path)
		if err != nil {
			continue
		}
		obj, err := a.library.GetClassObject(handle, clsid, iid)
		if err != nil {
			continue
		}
		return obj, nil
	}
	return nil, errcode.ClassNotRegistered
}

// CreateInstance gets clsid's class factory, creates one instance
// through it, and releases the factory. Aggregation is unsupported:
// a non-nil outer is rejected before the factory is even looked up,
// per SPEC_FULL.md §3's stricter ordering.
func (a *Activator) CreateInstance(clsid guid.Identifier, outer comif.Unknown, ctx ContextFlags, iid guid.Identifier) (comif.Unknown, error) {
	if outer != nil {
		return nil, errcode.NoAggregation
	}

	factory, err := a.GetClassObject(clsid, ctx, comif.IID_ClassFactory)
	if err != nil {
		return nil, err
	}
	cf, ok := factory.(comif.ClassFactory)
	if !ok {
		factory.Release()
		return nil, errcode.NoInterface
	}

	obj, err := cf.CreateInstance(nil, iid)
	cf.Release()
	return obj, err
}

// QueryResult is one entry of a CreateInstanceEx call: the requested
// interface id, the queried object on success, and the per-query
// error.
type QueryResult struct {
	IID guid.Identifier
	Obj comif.Unknown
	Err error
}

// CreateInstanceEx creates one instance of clsid via IID_Unknown, then
// queries each of queries on that single object, returning a
// per-entry result. serverInfo is accepted for signature parity with
// §4.F but unused: out-of-process activation is a non-goal, so there
// is never remote server information to act on. The final error is
// OK if every query succeeded, NotAllInterfaces if some did,
// NoInterface if none did. Every successful query leaves the object
// with one additional reference owned by the caller; the single
// Unknown reference taken during creation is released before
// CreateInstanceEx returns.
func (a *Activator) CreateInstanceEx(clsid guid.Identifier, outer comif.Unknown, ctx ContextFlags, serverInfo any, queries []guid.Identifier) ([]QueryResult, error) {
	_ = serverInfo
	if outer != nil {
		return nil, errcode.NoAggregation
	}

	obj, err := a.CreateInstance(clsid, nil, ctx, comif.IID_Unknown)
	if err != nil {
		return nil, err
	}

	results := make([]QueryResult, len(queries))
	successes := 0
	for i, iid := range queries {
		got, qerr := obj.QueryInterface(iid)
		results[i] = QueryResult{IID: iid, Obj: got, Err: qerr}
		if qerr == nil {
			successes++
		}
	}
	obj.Release()

	switch {
	case len(queries) == 0 || successes == len(queries):
		return results, nil
	case successes == 0:
		return results, errcode.NoInterface
	default:
		return results, errcode.NotAllInterfaces
	}
}
