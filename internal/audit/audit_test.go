package audit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncLoggerFlushesOnClose(t *testing.T) {
	var mu sync.Mutex
	var got []RunEvent
	logger := NewAsyncLogger(func(batch []RunEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, batch...)
	})

	logger.Log(TypeModelLoaded, 0, "", "loaded")
	logger.Log(TypeSolverInvoked, 0, "P1", "invoked")

	require.NoError(t, logger.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, TypeModelLoaded, got[0].Type)
	assert.Equal(t, TypeSolverInvoked, got[1].Type)
	assert.Equal(t, "P1", got[1].Problem)
	assert.NotEqual(t, got[0].EventID, got[1].EventID)
}

func TestAsyncLoggerFlushesOnTicker(t *testing.T) {
	var mu sync.Mutex
	var got []RunEvent
	logger := NewAsyncLogger(func(batch []RunEvent) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, batch...)
	})
	defer logger.Close()

	logger.Log(TypeScenarioConverged, 3, "P2", "converged")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 3*time.Second, 10*time.Millisecond)
}
