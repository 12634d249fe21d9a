package library

import (
	"sync"
	"testing"

	"github.com/ncw/comrt/internal/comif"
	"github.com/ncw/comrt/internal/errcode"
	"github.com/ncw/comrt/internal/guid"
	"github.com/ncw/comrt/internal/nativeloader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestManager(fake *nativeloader.FakeLoader, opts ...Option) *Manager {
	return New(append([]Option{WithLoader(fake)}, opts...)...)
}

func TestLoadOpensOnceAndDedupsByPath(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/libfoo.so", nil)
	m := newTestManager(fake)

	h1, err := m.Load("/libfoo.so")
	require.NoError(t, err)
	h2, err := m.Load("/libfoo.so")
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 2, h1.LoadCount())
	assert.Equal(t, 1, fake.OpenCount["/libfoo.so"])
	assert.Equal(t, 1, m.Len())
}

func TestLoadMissingLibraryFails(t *testing.T) {
	fake := nativeloader.NewFake()
	m := newTestManager(fake)

	_, err := m.Load("/nope.so")
	assert.Equal(t, errcode.LibraryNotFound, err)
}

func TestLoadRunsInitEntryPoint(t *testing.T) {
	fake := nativeloader.NewFake()
	var initCalled bool
	fake.Register("/libfoo.so", map[string]any{
		DefaultInitSymbol: InitFunc(func() errcode.Code {
			initCalled = true
			return errcode.OK
		}),
	})
	m := newTestManager(fake)

	_, err := m.Load("/libfoo.so")
	require.NoError(t, err)
	assert.True(t, initCalled)
}

func TestLoadFailingInitDisposesNode(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/libfoo.so", map[string]any{
		DefaultInitSymbol: InitFunc(func() errcode.Code { return errcode.Unexpected }),
	})
	m := newTestManager(fake)

	_, err := m.Load("/libfoo.so")
	assert.Equal(t, errcode.LibraryNotFound, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 1, fake.CloseCount["/libfoo.so"])
}

func TestUnloadDecrementsAndRemovesAtZero(t *testing.T) {
	fake := nativeloader.NewFake()
	var teardownCalled bool
	fake.Register("/libfoo.so", map[string]any{
		DefaultTeardownSymbol: TeardownFunc(func() { teardownCalled = true }),
	})
	m := newTestManager(fake)

	h, err := m.Load("/libfoo.so")
	require.NoError(t, err)
	_, err = m.Load("/libfoo.so")
	require.NoError(t, err)

	require.NoError(t, m.Unload(h))
	assert.Equal(t, 1, m.Len())
	assert.False(t, teardownCalled)

	require.NoError(t, m.Unload(h))
	assert.Equal(t, 0, m.Len())
	assert.True(t, teardownCalled)
	assert.Equal(t, 1, fake.CloseCount["/libfoo.so"])
}

func TestGetSymbolMissingIsNoInterface(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/libfoo.so", nil)
	m := newTestManager(fake)
	h, err := m.Load("/libfoo.so")
	require.NoError(t, err)

	_, err = m.GetSymbol(h, "nope")
	assert.Equal(t, errcode.NoInterface, err)
}

func TestGetClassObjectMissingIsSymbolNotFound(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/libfoo.so", nil)
	m := newTestManager(fake)
	h, err := m.Load("/libfoo.so")
	require.NoError(t, err)

	_, err = m.GetClassObject(h, guid.Identifier{}, guid.Identifier{})
	assert.Equal(t, errcode.SymbolNotFound, err)
}

func TestGetClassObjectCallsExportedFunc(t *testing.T) {
	fake := nativeloader.NewFake()
	wantCLSID := guid.Identifier{Data1: 1}
	var gotCLSID guid.Identifier
	fake.Register("/libfoo.so", map[string]any{
		SymbolGetClassObject: GetClassObjectFunc(func(clsid, iid guid.Identifier) (comif.Unknown, error) {
			gotCLSID = clsid
			return nil, nil
		}),
	})
	m := newTestManager(fake)
	h, err := m.Load("/libfoo.so")
	require.NoError(t, err)

	_, err = m.GetClassObject(h, wantCLSID, guid.Identifier{})
	require.NoError(t, err)
	assert.Equal(t, wantCLSID, gotCLSID)
}

func TestCanUnloadNowAbsentIsFalse(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/libfoo.so", nil)
	m := newTestManager(fake)
	h, err := m.Load("/libfoo.so")
	require.NoError(t, err)

	assert.False(t, m.CanUnloadNow(h))
}

func TestFreeUnusedAdvancesPastBusyLibraries(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/busy.so", map[string]any{
		SymbolCanUnloadNow: CanUnloadNowFunc(func() errcode.Code { return errcode.False }),
	})
	fake.Register("/idle.so", map[string]any{
		SymbolCanUnloadNow: CanUnloadNowFunc(func() errcode.Code { return errcode.OK }),
	})
	m := newTestManager(fake)
	_, err := m.Load("/busy.so")
	require.NoError(t, err)
	_, err = m.Load("/idle.so")
	require.NoError(t, err)

	freed := m.FreeUnused()
	assert.Equal(t, 1, freed)
	assert.Equal(t, 1, m.Len())
}

func TestCaseInsensitivePathDedup(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/LibFoo.so", nil)
	m := newTestManager(fake, WithCaseInsensitivePaths())

	h1, err := m.Load("/LibFoo.so")
	require.NoError(t, err)
	h2, err := m.Load("/libfoo.so")
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 2, h1.LoadCount())
	assert.Equal(t, 1, fake.OpenCount["/LibFoo.so"])
}

func TestCaseSensitiveByDefaultTreatsDifferentCaseAsDistinct(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/LibFoo.so", nil)
	m := newTestManager(fake)

	h1, err := m.Load("/LibFoo.so")
	require.NoError(t, err)
	_, err = m.Load("/libfoo.so")
	assert.Equal(t, errcode.LibraryNotFound, err)
	assert.Equal(t, 1, h1.LoadCount())
}

func TestConcurrentLoadOfSamePathOpensOnce(t *testing.T) {
	fake := nativeloader.NewFake()
	fake.Register("/libfoo.so", nil)
	m := newTestManager(fake)

	var g errgroup.Group
	var mu sync.Mutex
	var handles []Handle
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			h, err := m.Load("/libfoo.so")
			if err != nil {
				return err
			}
			mu.Lock()
			handles = append(handles, h)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, fake.OpenCount["/libfoo.so"])
	assert.Equal(t, 50, handles[0].LoadCount())
}
