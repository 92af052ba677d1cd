package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(60, 10)
	for i := 0; i < 10; i++ {
		require.True(t, rl.Allow("1.2.3.4"), "request %d should be allowed", i)
	}
	assert.False(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(6000, 5) // 100/sec
	for i := 0; i < 5; i++ {
		rl.Allow("1.2.3.4")
	}
	require.False(t, rl.Allow("1.2.3.4"))

	time.Sleep(50 * time.Millisecond)
	assert.True(t, rl.Allow("1.2.3.4"))
}

func TestRateLimiter_PerIPIsolation(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	rl.Allow("1.1.1.1")
	rl.Allow("1.1.1.1")
	require.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))
}

func TestRateLimiter_RetryAfter(t *testing.T) {
	assert.Equal(t, 1, NewRateLimiter(60, 1).RetryAfter())
	assert.Equal(t, 6, NewRateLimiter(10, 1).RetryAfter())
	assert.Equal(t, 60, NewRateLimiter(0, 1).RetryAfter())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(60, 10)
	rl.Allow("old")
	time.Sleep(20 * time.Millisecond)
	rl.Allow("fresh")

	assert.Equal(t, 1, rl.Cleanup(10*time.Millisecond))
	assert.Equal(t, 1, rl.size())
}

func TestRateLimiter_StartCleanupStopsWithContext(t *testing.T) {
	rl := NewRateLimiter(60, 10)
	rl.Allow("a")

	ctx, cancel := context.WithCancel(context.Background())
	rl.StartCleanup(ctx, 5*time.Millisecond, time.Nanosecond)
	assert.Eventually(t, func() bool { return rl.size() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	rl := NewRateLimiter(60000, 100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				rl.Allow("concurrent")
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, rl.size())
}
