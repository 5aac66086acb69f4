package shutdown_test

import (
	"context"
	"log/slog"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shop-load-generator/shop/shutdown"
	. "github.com/AntonStoeckl/shop-load-generator/testutil/helper" //nolint:revive
)

func Test_Coordinator_StartsUnstopped(t *testing.T) {
	coordinator := shutdown.NewCoordinator(context.Background())

	assert.False(t, coordinator.Stopped())
	assert.Empty(t, coordinator.Reason())
	assert.NoError(t, coordinator.Context().Err())
}

func Test_Coordinator_RequestStop_IsIdempotent(t *testing.T) {
	// setup
	logSpy := NewLogHandlerSpy(false)
	coordinator := shutdown.NewCoordinator(context.Background(), shutdown.WithLogger(NewSpyLogger(logSpy)))

	// act
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coordinator.RequestStop("test")
		}()
	}
	wg.Wait()
	coordinator.RequestStop("second")

	// assert
	assert.True(t, coordinator.Stopped())
	assert.Equal(t, "test", coordinator.Reason())
	assert.ErrorIs(t, coordinator.Context().Err(), context.Canceled)
	assert.Equal(t, 1, logSpy.CountLogs(slog.LevelInfo, "stop requested"))
}

func Test_Coordinator_ParentCancellationRequestsStop(t *testing.T) {
	// setup
	parent, cancel := context.WithCancel(context.Background())
	coordinator := shutdown.NewCoordinator(parent)

	// act
	cancel()

	// assert
	require.Eventually(t, func() bool { return coordinator.Reason() != "" }, time.Second, time.Millisecond)
	assert.True(t, coordinator.Stopped())
	assert.Equal(t, "parent context canceled", coordinator.Reason())
}

func Test_Coordinator_ListenForSignals_FirstSignalStops_LaterSignalsAreIgnored(t *testing.T) {
	// setup
	logSpy := NewLogHandlerSpy(false)
	coordinator := shutdown.NewCoordinator(context.Background(), shutdown.WithLogger(NewSpyLogger(logSpy)))
	stop := coordinator.ListenForSignals(syscall.SIGUSR1)
	defer stop()

	// act
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	// assert
	select {
	case <-coordinator.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("signal did not request stop")
	}

	assert.Equal(t, "signal user defined signal 1", coordinator.Reason())

	// act
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGUSR1))

	// assert
	require.Eventually(t, func() bool {
		return logSpy.HasLog(slog.LevelWarn, "stop already requested, ignoring signal")
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, logSpy.CountLogs(slog.LevelInfo, "stop requested"))
}

func Test_Coordinator_ListenForSignals_StopIsIdempotent(t *testing.T) {
	coordinator := shutdown.NewCoordinator(context.Background())
	stop := coordinator.ListenForSignals(syscall.SIGUSR2)

	stop()
	stop()

	assert.False(t, coordinator.Stopped())
}
