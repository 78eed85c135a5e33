package infrastructure

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMessageRateLimiter(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewMessageRateLimiter(0.5, 2)
	defer rl.Stop()

	assert.True(t, rl.Allow(1))
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1), "burst exhausted")
	assert.Greater(t, rl.WaitTime(1), time.Duration(0))

	// other chats have their own bucket
	assert.True(t, rl.Allow(2))
	assert.Equal(t, time.Duration(0), rl.WaitTime(3))
	assert.Equal(t, 2, rl.ActiveChats())

	rl.Reset(1)
	assert.True(t, rl.Allow(1))
}

func TestMessageRateLimiter_WaitTimeDoesNotConsume(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := NewMessageRateLimiter(1, 1)
	defer rl.Stop()

	assert.True(t, rl.Allow(7))
	rl.WaitTime(7)
	rl.WaitTime(7)
	assert.LessOrEqual(t, rl.WaitTime(7), time.Second)
}

func TestMessageRateLimiter_EvictIdle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := newMessageRateLimiter(1, 1, time.Hour)
	rl.Allow(1)
	rl.evictIdle(time.Now().Add(limiterIdleTTL + time.Second))
	assert.Equal(t, 0, rl.ActiveChats())

	rl.Stop()
	rl.Stop() // idempotent
}

func TestSessionManager(t *testing.T) {
	clock := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	sm := NewSessionManager()
	sm.now = func() time.Time { return clock }

	assert.True(t, sm.TryStart(1))
	assert.True(t, sm.Busy(1))
	assert.False(t, sm.TryStart(1), "in flight")
	assert.True(t, sm.TryStart(2), "separate chat")

	sm.Finish(1)
	assert.False(t, sm.Busy(1))
	assert.False(t, sm.TryStart(1), "inside debounce window")

	clock = clock.Add(defaultDebounce)
	assert.True(t, sm.TryStart(1))

	sm.Finish(99) // unknown chat is a no-op
}
