package interview

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRegistryCreateAndAcquire(t *testing.T) {
	r := NewRegistry(Options{ClosingThreshold: 3})

	s := r.Create()
	require.NotEmpty(t, s.ID)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 3, s.Threshold())

	got, release, err := r.Acquire(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
	release()

	other := r.Create()
	assert.NotEqual(t, s.ID, other.ID)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryUnknownSession(t *testing.T) {
	r := NewRegistry(Options{})

	_, _, err := r.Acquire("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, r.Delete("missing"))
}

func TestRegistryBusySession(t *testing.T) {
	r := NewRegistry(Options{})
	s := r.Create()

	_, release, err := r.Acquire(s.ID)
	require.NoError(t, err)

	_, _, err = r.Acquire(s.ID)
	assert.ErrorIs(t, err, ErrSessionBusy)

	release()
	_, release, err = r.Acquire(s.ID)
	require.NoError(t, err)
	release()
}

func TestRegistryConcurrentAcquireIsExclusive(t *testing.T) {
	r := NewRegistry(Options{})
	s := r.Create()

	hold := make(chan struct{})
	var acquired, busy atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, release, err := r.Acquire(s.ID)
			if err != nil {
				busy.Add(1)
				return
			}
			acquired.Add(1)
			<-hold
			release()
		}()
	}

	// Everyone but the holder gives up immediately.
	require.Eventually(t, func() bool { return busy.Load() == 15 }, 2*time.Second, 5*time.Millisecond)
	close(hold)
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry(Options{})
	s := r.Create()

	assert.True(t, r.Delete(s.ID))
	assert.Equal(t, 0, r.Len())

	_, _, err := r.Acquire(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
