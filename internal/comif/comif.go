// Package comif defines the interface contract (§4.I) every hosted
// component and class factory must satisfy, plus small embeddable
// base types that implement the reference-counting bookkeeping the
// contract requires so individual components only need to implement
// their own QueryInterface dispatch.
package comif

import (
	"sync/atomic"

	"github.com/ncw/comrt/internal/errcode"
	"github.com/ncw/comrt/internal/guid"
)

// Unknown is the interface every hosted object and factory implements.
// QueryInterface returns a reference and add-refs it on success, and
// returns a nil Unknown with NoInterface otherwise; the caller owns
// exactly one reference on success.
type Unknown interface {
	QueryInterface(iid guid.Identifier) (Unknown, error)
	AddRef() uint32
	Release() uint32
}

// ClassFactory is additionally implemented by every class factory.
type ClassFactory interface {
	Unknown
	CreateInstance(outer Unknown, iid guid.Identifier) (Unknown, error)
	LockServer(lock bool)
}

// IID_Unknown and IID_ClassFactory are the well-known interface ids
// every object and factory answers reflexively to QueryInterface.
var (
	IID_Unknown      = guid.Identifier{Data1: 0x00000000, Data2: 0x0000, Data3: 0x0000, Data4: [8]byte{0xC0, 0, 0, 0, 0, 0, 0, 0x46}}
	IID_ClassFactory = guid.Identifier{Data1: 0x00000001, Data2: 0x0000, Data3: 0x0000, Data4: [8]byte{0xC0, 0, 0, 0, 0, 0, 0, 0x46}}
)

// Base implements AddRef/Release over an atomic counter and invokes
// OnRelease (if set) the instant the count reaches zero, per §4.I:
// add-ref atomically increments and returns the new count; release
// atomically decrements, invokes destruction at zero, and returns the
// new count. Embed Base in a hosted component and implement
// QueryInterface over it.
type Base struct {
	refCount  int32
	OnRelease func()
}

// AddRef increments the reference count and returns the new value.
func (b *Base) AddRef() uint32 {
	return uint32(atomic.AddInt32(&b.refCount, 1))
}

// Release decrements the reference count, invoking OnRelease exactly
// once when it first reaches zero, and returns the new value. Callers
// must not touch the interface pointer after Release returns zero.
func (b *Base) Release() uint32 {
	n := atomic.AddInt32(&b.refCount, -1)
	if n == 0 && b.OnRelease != nil {
		b.OnRelease()
	}
	return uint32(n)
}

// RefCount reads the current reference count without mutating it.
func (b *Base) RefCount() uint32 {
	return uint32(atomic.LoadInt32(&b.refCount))
}

// FactoryBase embeds Base and additionally tracks the lock count and
// outstanding object count every class factory must expose for
// can-unload-now accounting.
type FactoryBase struct {
	Base
	lockCount   int32
	objectCount int32
}

// LockServer increments or decrements the lock count. The count
// saturates at zero on decrement — it is never driven negative.
func (f *FactoryBase) LockServer(lock bool) {
	if lock {
		atomic.AddInt32(&f.lockCount, 1)
		return
	}
	for {
		old := atomic.LoadInt32(&f.lockCount)
		if old <= 0 {
			return
		}
		if atomic.CompareAndSwapInt32(&f.lockCount, old, old-1) {
			return
		}
	}
}

// LockCount reads the current lock count.
func (f *FactoryBase) LockCount() uint32 {
	return uint32(atomic.LoadInt32(&f.lockCount))
}

// ObjectCount reads the number of objects this factory has minted and
// not yet seen released.
func (f *FactoryBase) ObjectCount() uint32 {
	return uint32(atomic.LoadInt32(&f.objectCount))
}

// IncObjectCount records that CreateInstance produced a new object.
// Implementations call this from their own CreateInstance after a
// successful creation.
func (f *FactoryBase) IncObjectCount() {
	atomic.AddInt32(&f.objectCount, 1)
}

// DecObjectCount records that a minted object was finally released.
// Implementations wire this as the object's OnRelease.
func (f *FactoryBase) DecObjectCount() {
	atomic.AddInt32(&f.objectCount, -1)
}

// CanUnloadNow reports whether f is idle: objectCount, the factory's
// own reference count, and lockCount are all zero, per §4.I.
func (f *FactoryBase) CanUnloadNow() bool {
	return f.ObjectCount() == 0 && f.RefCount() == 0 && f.LockCount() == 0
}

// RejectAggregation is the outer-pointer check every CreateInstance
// implementation must perform first, per SPEC_FULL.md §3: a non-nil
// outer is always rejected since aggregation is unsupported.
func RejectAggregation(outer Unknown) error {
	if outer != nil {
		return errcode.NoAggregation
	}
	return nil
}
