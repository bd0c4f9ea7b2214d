package web

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecryptLimiter_AcquireRelease(t *testing.T) {
	l := newDecryptLimiter(2, time.Second)
	ctx := context.Background()

	require.Equal(t, limiterStatus{Active: 0, Available: 2, MaxConcurrent: 2}, l.Status())

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	require.Equal(t, limiterStatus{Active: 2, Available: 0, MaxConcurrent: 2}, l.Status())

	l.Release()
	require.Equal(t, 1, l.Status().Active)
	l.Release()
	require.Equal(t, 0, l.Status().Active)
}

func TestDecryptLimiter_BusyAfterWait(t *testing.T) {
	l := newDecryptLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	defer l.Release()

	start := time.Now()
	err := l.Acquire(ctx)
	require.ErrorIs(t, err, errServerBusy)
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestDecryptLimiter_ContextCancelled(t *testing.T) {
	l := newDecryptLimiter(1, 5*time.Second)
	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestDecryptLimiter_NeverExceedsMax(t *testing.T) {
	const maxConcurrent = 3
	l := newDecryptLimiter(maxConcurrent, time.Second)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		maxObserved int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer l.Release()

			mu.Lock()
			if n := l.Status().Active; n > maxObserved {
				maxObserved = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
		}()
	}
	wg.Wait()

	require.LessOrEqual(t, maxObserved, maxConcurrent)
	require.Equal(t, 0, l.Status().Active)
}

func TestNewDecryptLimiter_Defaults(t *testing.T) {
	l := newDecryptLimiter(0, 0)
	require.Equal(t, 1, l.Status().MaxConcurrent)
	require.Equal(t, 10*time.Second, l.maxWait)
}
