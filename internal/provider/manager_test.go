package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruffsl/msauthd/internal/endpoint"
	"github.com/ruffsl/msauthd/internal/identity"
)

type fakeRegistration struct {
	registrar *fakeRegistrar
	id        string
	disposed  bool
}

func (r *fakeRegistration) Dispose() error {
	r.registrar.mu.Lock()
	defer r.registrar.mu.Unlock()
	if !r.disposed {
		r.disposed = true
		delete(r.registrar.live, r.id)
	}
	return nil
}

type fakeRegistrar struct {
	mu       sync.Mutex
	live     map[string]*fakeRegistration
	history  []string
	maxLive  int
	register error
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{live: map[string]*fakeRegistration{}}
}

func (r *fakeRegistrar) Register(id, displayName string, handler SessionHandler, opts Options) (Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.register != nil {
		return nil, r.register
	}
	if _, ok := r.live[id]; ok {
		return nil, fmt.Errorf("provider %s already registered", id)
	}
	reg := &fakeRegistration{registrar: r, id: id}
	r.live[id] = reg
	r.history = append(r.history, id+"|"+displayName)
	if len(r.live) > r.maxLive {
		r.maxLive = len(r.live)
	}
	return reg, nil
}

func (r *fakeRegistrar) liveIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.live))
	for id := range r.live {
		ids = append(ids, id)
	}
	return ids
}

type trackingFactory struct {
	mu       sync.Mutex
	backends []*identity.FakeBackend
	descs    []*endpoint.Descriptor
	err      error
}

func (f *trackingFactory) build(desc *endpoint.Descriptor, alternate bool) (identity.Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	b := identity.NewFakeBackend()
	f.backends = append(f.backends, b)
	f.descs = append(f.descs, desc)
	return b, nil
}

func newTestManager(t *testing.T, registrar *fakeRegistrar, factory *trackingFactory, initial string) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		Registrar:       registrar,
		Factory:         factory.build,
		InitialEndpoint: initial,
	})
	require.NoError(t, err)
	t.Cleanup(m.Stop)
	return m
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(Config{Factory: (&trackingFactory{}).build})
	assert.ErrorContains(t, err, "registrar")

	_, err = NewManager(Config{Registrar: newFakeRegistrar()})
	assert.ErrorContains(t, err, "factory")
}

func TestStartRegistersDefaultProvider(t *testing.T) {
	registrar := newFakeRegistrar()
	m := newTestManager(t, registrar, &trackingFactory{}, "")

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, []string{DefaultProviderID}, registrar.liveIDs())
	assert.Equal(t, []string{DefaultProviderID + "|Microsoft"}, registrar.history)
}

func TestStartActivatesInitialAlternate(t *testing.T) {
	registrar := newFakeRegistrar()
	factory := &trackingFactory{}
	m := newTestManager(t, registrar, factory, "Azure US Government")

	require.NoError(t, m.Start(context.Background()))

	assert.ElementsMatch(t, []string{DefaultProviderID, AlternateProviderID}, registrar.liveIDs())
	assert.Contains(t, registrar.history, AlternateProviderID+"|Azure US Government")
	// The alternate backend is bound to the sovereign URL.
	require.Len(t, factory.descs, 2)
	assert.Equal(t, "https://login.microsoftonline.us/", factory.descs[1].NormalizedURL)
}

func TestStartWithInvalidInitialEndpointContinuesWithoutAlternate(t *testing.T) {
	registrar := newFakeRegistrar()
	m := newTestManager(t, registrar, &trackingFactory{}, "not a url")

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, []string{DefaultProviderID}, registrar.liveIDs())
}

func TestStartFailsWhenDefaultRegistrationFails(t *testing.T) {
	registrar := newFakeRegistrar()
	registrar.register = errors.New("host rejected registration")
	m := newTestManager(t, registrar, &trackingFactory{}, "")

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "default provider")
}

func TestReconfigureSwapsAlternate(t *testing.T) {
	registrar := newFakeRegistrar()
	factory := &trackingFactory{}
	m := newTestManager(t, registrar, factory, "Azure China")
	require.NoError(t, m.Start(context.Background()))

	first := factory.backends[1]

	m.ApplyConfiguration("Azure US Government")
	waitFor(t, func() bool {
		factory.mu.Lock()
		defer factory.mu.Unlock()
		return len(factory.backends) == 3
	}, "alternate backend never rebuilt")

	waitFor(t, first.Closed, "previous alternate backend not disposed")
	assert.ElementsMatch(t, []string{DefaultProviderID, AlternateProviderID}, registrar.liveIDs())
}

func TestReconfigureToEmptyRemovesAlternate(t *testing.T) {
	registrar := newFakeRegistrar()
	factory := &trackingFactory{}
	m := newTestManager(t, registrar, factory, "Azure China")
	require.NoError(t, m.Start(context.Background()))

	m.ApplyConfiguration("")
	waitFor(t, func() bool {
		ids := registrar.liveIDs()
		return len(ids) == 1 && ids[0] == DefaultProviderID
	}, "alternate registration not removed")
	assert.True(t, factory.backends[1].Closed())
}

func TestAtMostOneAlternateRegistrationEver(t *testing.T) {
	registrar := newFakeRegistrar()
	factory := &trackingFactory{}
	m := newTestManager(t, registrar, factory, "Azure China")
	require.NoError(t, m.Start(context.Background()))

	// Hammer reconfiguration from several goroutines; the coalescing
	// worker must keep registrations serialized.
	var wg sync.WaitGroup
	endpoints := []string{"Azure US Government", "https://login.example.org", "", "Azure China"}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				m.ApplyConfiguration(endpoints[(i+j)%len(endpoints)])
			}
		}(i)
	}
	wg.Wait()

	m.ApplyConfiguration("Azure US Government")
	waitFor(t, func() bool {
		registrar.mu.Lock()
		defer registrar.mu.Unlock()
		_, ok := registrar.live[AlternateProviderID]
		return ok && len(registrar.live) == 2
	}, "alternate did not settle")

	registrar.mu.Lock()
	defer registrar.mu.Unlock()
	assert.LessOrEqual(t, registrar.maxLive, 2, "more than one alternate registration was live")
}

func TestLatestWinsCoalescing(t *testing.T) {
	registrar := newFakeRegistrar()
	factory := &trackingFactory{}
	m := newTestManager(t, registrar, factory, "")
	require.NoError(t, m.Start(context.Background()))

	// Queue several values faster than the worker can apply them; the
	// final state must reflect the last one.
	m.ApplyConfiguration("Azure China")
	m.ApplyConfiguration("https://stale.example.org")
	m.ApplyConfiguration("Azure US Government")

	waitFor(t, func() bool {
		factory.mu.Lock()
		defer factory.mu.Unlock()
		if len(factory.descs) == 0 {
			return false
		}
		last := factory.descs[len(factory.descs)-1]
		return last.NormalizedURL == "https://login.microsoftonline.us/"
	}, "latest configuration value was not the final state")
}

func TestStopDisposesEverythingAndIsIdempotent(t *testing.T) {
	registrar := newFakeRegistrar()
	factory := &trackingFactory{}
	m := newTestManager(t, registrar, factory, "Azure China")
	require.NoError(t, m.Start(context.Background()))

	m.Stop()
	assert.Empty(t, registrar.liveIDs())
	for _, b := range factory.backends {
		assert.True(t, b.Closed())
	}

	assert.NotPanics(t, m.Stop)
	assert.NotPanics(t, func() { m.ApplyConfiguration("Azure China") })
	assert.Empty(t, registrar.liveIDs(), "configuration after Stop must not resurrect providers")
}

func TestStopBeforeStart(t *testing.T) {
	m, err := NewManager(Config{
		Registrar: newFakeRegistrar(),
		Factory:   (&trackingFactory{}).build,
	})
	require.NoError(t, err)
	assert.NotPanics(t, m.Stop)
}
