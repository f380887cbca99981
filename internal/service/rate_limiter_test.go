package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestMemoryRateLimiter_EnforcesMax(t *testing.T) {
	limiter := NewMemoryRateLimiter(time.Minute, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatalf("request over the limit should be rejected")
	}
	// Otra clave tiene su propio contador.
	if !limiter.Allow("5.6.7.8") {
		t.Fatalf("different key should not share the window")
	}
}

func TestMemoryRateLimiter_WindowExpires(t *testing.T) {
	limiter := NewMemoryRateLimiter(20*time.Millisecond, 1)

	if !limiter.Allow("k") {
		t.Fatalf("first request should pass")
	}
	if limiter.Allow("k") {
		t.Fatalf("second request inside the window should fail")
	}
	time.Sleep(30 * time.Millisecond)
	if !limiter.Allow("k") {
		t.Fatalf("request after the window should pass")
	}
}

type fakeRedisEvaler struct {
	count int64
	err   error
	keys  []string
}

func (f *fakeRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.keys = keys
	cmd := redis.NewCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.count++
	cmd.SetVal(f.count)
	return cmd
}

func TestRedisRateLimiter_CountsAgainstMax(t *testing.T) {
	evaler := &fakeRedisEvaler{}
	limiter := &redisRateLimiter{client: evaler, window: time.Minute, max: 2, prefix: "auth:rl:"}

	if !limiter.Allow("1.2.3.4") || !limiter.Allow("1.2.3.4") {
		t.Fatalf("first two requests should pass")
	}
	if limiter.Allow("1.2.3.4") {
		t.Fatalf("third request should be rejected")
	}
	if len(evaler.keys) != 1 || evaler.keys[0] != "auth:rl:1.2.3.4" {
		t.Fatalf("unexpected redis key: %v", evaler.keys)
	}
}

func TestRedisRateLimiter_FailsOpen(t *testing.T) {
	evaler := &fakeRedisEvaler{err: errors.New("connection refused")}
	limiter := &redisRateLimiter{client: evaler, window: time.Minute, max: 1, prefix: "auth:rl:"}

	if !limiter.Allow("1.2.3.4") {
		t.Fatalf("limiter must fail open when redis is down")
	}
}

func TestRedisRateLimiter_RejectsEmptyKey(t *testing.T) {
	limiter := &redisRateLimiter{client: &fakeRedisEvaler{}, window: time.Minute, max: 5, prefix: "auth:rl:"}

	if limiter.Allow("   ") {
		t.Fatalf("blank key should be rejected")
	}
}
