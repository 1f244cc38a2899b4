package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/linkdeck/internal/common"
	"github.com/stretchr/testify/require"
)

func TestCoordinator_ConcurrentCallersShareOneFlight(t *testing.T) {
	mgr, api, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "a@b.com", "correct")
	require.NoError(t, err)

	gate := make(chan struct{})
	api.mu.Lock()
	api.refreshGate = gate
	api.mu.Unlock()

	const callers = 20
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = mgr.Refresh(ctx)
		}(i)
	}

	// Let every caller pile up behind the in-flight refresh, then let it
	// finish.
	require.Eventually(t, func() bool { return api.refreshCount() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, 1, api.refreshCount(), "all callers must share one network refresh")
	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	require.True(t, mgr.IsLoggedIn())
}

func TestCoordinator_WaitersObserveSharedFailure(t *testing.T) {
	mgr, api, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "a@b.com", "correct")
	require.NoError(t, err)

	gate := make(chan struct{})
	api.mu.Lock()
	api.refreshGate = gate
	api.refreshErr = common.ErrRefreshTokenExpired
	api.mu.Unlock()

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = mgr.Refresh(ctx)
		}(i)
	}

	require.Eventually(t, func() bool { return api.refreshCount() == 1 },
		time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.Equal(t, 1, api.refreshCount())
	for i, err := range errs {
		require.ErrorIs(t, err, common.ErrRefreshTokenExpired, "caller %d", i)
	}
	require.False(t, mgr.IsLoggedIn())
}

func TestCoordinator_NewAttemptAllowedAfterFailure(t *testing.T) {
	mgr, api, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "a@b.com", "correct")
	require.NoError(t, err)

	api.mu.Lock()
	api.refreshErr = common.ErrorServerUnavailable
	api.mu.Unlock()

	require.ErrorIs(t, mgr.Refresh(ctx), common.ErrorServerUnavailable)

	// The slot is free again: a later attempt reaches the network.
	api.mu.Lock()
	api.refreshErr = nil
	api.mu.Unlock()

	require.NoError(t, mgr.Refresh(ctx))
	require.Equal(t, 2, api.refreshCount())
}

func TestCoordinator_CallerCancellationDoesNotFailOthers(t *testing.T) {
	mgr, api, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Login(ctx, "a@b.com", "correct")
	require.NoError(t, err)

	gate := make(chan struct{})
	api.mu.Lock()
	api.refreshGate = gate
	api.mu.Unlock()

	cancelled, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	var cancelledErr, patientErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		cancelledErr = mgr.Refresh(cancelled)
	}()
	go func() {
		defer wg.Done()
		patientErr = mgr.Refresh(ctx)
	}()

	require.Eventually(t, func() bool { return api.refreshCount() == 1 },
		time.Second, time.Millisecond)
	cancel()
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.ErrorIs(t, cancelledErr, context.Canceled)
	require.NoError(t, patientErr, "the surviving caller still gets the shared outcome")
	require.Equal(t, 1, api.refreshCount())
	require.True(t, mgr.IsLoggedIn())
}
