package comrt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ncw/comrt/internal/comif"
	"github.com/ncw/comrt/internal/errcode"
	"github.com/ncw/comrt/internal/guid"
	"github.com/ncw/comrt/internal/library"
	"github.com/ncw/comrt/internal/nativeloader"
	"github.com/ncw/comrt/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(t *testing.T, fake *nativeloader.FakeLoader) *Runtime {
	t.Helper()
	root := t.TempDir()
	for _, sub := range []string{"InprocServers", "InprocHandlers", "TreatAs"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, sub), 0o755))
	}
	return New(WithRegistryRoot(root), WithLoader(fake))
}

func TestInitializeUninitializeBalanced(t *testing.T) {
	r := newTestRuntime(t, nativeloader.NewFake())

	assert.Equal(t, errcode.OK, r.Initialize())
	assert.Equal(t, 1, r.InitCount())
	assert.NotNil(t, r.Allocator())
	assert.NotNil(t, r.Registry())
	assert.NotNil(t, r.Activator())

	assert.Equal(t, errcode.OK, r.Initialize())
	assert.Equal(t, 2, r.InitCount())

	assert.Equal(t, errcode.OK, r.Uninitialize())
	assert.Equal(t, 1, r.InitCount())
	assert.NotNil(t, r.Allocator())

	assert.Equal(t, errcode.OK, r.Uninitialize())
	assert.Equal(t, 0, r.InitCount())
	assert.Nil(t, r.Allocator())
	assert.Nil(t, r.Registry())
	assert.Nil(t, r.Activator())
}

func TestUnbalancedUninitializeIsUnexpected(t *testing.T) {
	r := newTestRuntime(t, nativeloader.NewFake())
	assert.Equal(t, errcode.Unexpected, r.Uninitialize())
}

func TestUninitializeSweepsOutstandingAllocations(t *testing.T) {
	r := newTestRuntime(t, nativeloader.NewFake())
	require.Equal(t, errcode.OK, r.Initialize())

	r.Allocator().Alloc(16)
	r.Allocator().Alloc(32)

	require.Equal(t, errcode.OK, r.Uninitialize())
}

func TestFreeUnusedLibrariesBeforeInitializeIsNoop(t *testing.T) {
	r := newTestRuntime(t, nativeloader.NewFake())
	assert.Equal(t, 0, r.FreeUnusedLibraries())
}

func TestFreeUnusedLibrariesDelegatesToLibraryManager(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/idle.so", map[string]any{
		library.SymbolCanUnloadNow: library.CanUnloadNowFunc(func() errcode.Code { return errcode.OK }),
	})
	r := newTestRuntime(t, fake)
	require.Equal(t, errcode.OK, r.Initialize())

	_, err := r.library.Load("/idle.so")
	require.NoError(t, err)

	assert.Equal(t, 1, r.FreeUnusedLibraries())
}

func TestActivationEndToEnd(t *testing.T) {
	fake := nativeloader.NewFake()
	clsid := guid.Identifier{Data1: 0x1234}
	fake.Register("/libfoo.so", map[string]any{
		library.SymbolGetClassObject: library.GetClassObjectFunc(func(_, iid guid.Identifier) (comif.Unknown, error) {
			if iid != comif.IID_ClassFactory {
				return nil, errcode.NoInterface
			}
			f := &comif.FactoryBase{}
			f.AddRef()
			return fakeFactory{f}, nil
		}),
	})

	r := newTestRuntime(t, fake)
	require.Equal(t, errcode.OK, r.Initialize())
	defer r.Uninitialize()

	root := r.cfg.registryRoot
	require.NoError(t, os.WriteFile(filepath.Join(root, string(registry.InprocServers), clsid.String()), []byte("/libfoo.so"), 0o644))

	obj, err := r.Activator().CreateInstance(clsid, nil, 1, comif.IID_Unknown)
	require.NoError(t, err)
	assert.NotNil(t, obj)
}

func TestBuildVersion(t *testing.T) {
	v := BuildVersion()
	assert.Equal(t, uint16(1), v.Major)
}

type fakeFactory struct {
	*comif.FactoryBase
}

func (f fakeFactory) QueryInterface(iid guid.Identifier) (comif.Unknown, error) {
	if iid == comif.IID_Unknown || iid == comif.IID_ClassFactory {
		f.AddRef()
		return f, nil
	}
	return nil, errcode.NoInterface
}

func (f fakeFactory) CreateInstance(outer comif.Unknown, iid guid.Identifier) (comif.Unknown, error) {
	if err := comif.RejectAggregation(outer); err != nil {
		return nil, err
	}
	obj := &comif.Base{}
	obj.AddRef()
	return fakeObject{obj}, nil
}

type fakeObject struct {
	*comif.Base
}

func (o fakeObject) QueryInterface(iid guid.Identifier) (comif.Unknown, error) {
	if iid == comif.IID_Unknown {
		o.AddRef()
		return o, nil
	}
	return nil, errcode.NoInterface
}
