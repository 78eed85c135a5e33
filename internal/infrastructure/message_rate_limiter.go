package infrastructure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// MessageRateLimiter keeps one token bucket per chat
type MessageRateLimiter struct {
	mu       sync.Mutex
	limiters map[int64]*chatLimiter
	rate     rate.Limit
	burst    int

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type chatLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMessageRateLimiter allows perSecond questions per chat with the given burst.
// Call Stop to end the cleanup goroutine.
func NewMessageRateLimiter(perSecond float64, burst int) *MessageRateLimiter {
	return newMessageRateLimiter(perSecond, burst, 5*time.Minute)
}

func newMessageRateLimiter(perSecond float64, burst int, cleanupEvery time.Duration) *MessageRateLimiter {
	rl := &MessageRateLimiter{
		limiters: make(map[int64]*chatLimiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go rl.cleanup(cleanupEvery)
	return rl
}

func (rl *MessageRateLimiter) get(chatID int64) *chatLimiter {
	cl, ok := rl.limiters[chatID]
	if !ok {
		cl = &chatLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[chatID] = cl
	}
	cl.lastSeen = time.Now()
	return cl
}

// Allow consumes a token for chatID if one is available
func (rl *MessageRateLimiter) Allow(chatID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.get(chatID).limiter.Allow()
}

// WaitTime returns how long until chatID may ask again, without consuming
func (rl *MessageRateLimiter) WaitTime(chatID int64) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.limiters[chatID]
	if !ok {
		return 0
	}
	now := time.Now()
	r := cl.limiter.ReserveN(now, 1)
	defer r.CancelAt(now)
	return r.DelayFrom(now)
}

func (rl *MessageRateLimiter) Reset(chatID int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, chatID)
}

func (rl *MessageRateLimiter) ActiveChats() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *MessageRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	<-rl.doneCh
}

func (rl *MessageRateLimiter) cleanup(every time.Duration) {
	defer close(rl.doneCh)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictIdle(time.Now())
		}
	}
}

func (rl *MessageRateLimiter) evictIdle(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for id, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, id)
		}
	}
}
