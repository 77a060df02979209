package ratelimit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/latticehq/lattice-auth/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

func TestTryConsumeExhaustsBucket(t *testing.T) {
	t.Parallel()

	l := ratelimit.NewWithPolicies(map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassLogin: {RequestsPerWindow: 5, Window: time.Minute, Burst: 5},
	})

	// Exactly Burst consecutive calls succeed, the next one fails.
	for i := range 5 {
		require.True(t, l.TryConsume(ratelimit.ClassLogin, "10.0.0.1"), "call %d should be allowed", i+1)
	}
	require.False(t, l.TryConsume(ratelimit.ClassLogin, "10.0.0.1"), "bucket should be empty")

	// A rejected call must not have consumed anything: still empty, still rejected.
	require.False(t, l.TryConsume(ratelimit.ClassLogin, "10.0.0.1"))
}

func TestBucketsAreIndependentPerKeyAndClass(t *testing.T) {
	t.Parallel()

	l := ratelimit.NewWithPolicies(map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassLogin:        {RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
		ratelimit.ClassRegistration: {RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
	})

	require.True(t, l.TryConsume(ratelimit.ClassLogin, "10.0.0.1"))
	require.False(t, l.TryConsume(ratelimit.ClassLogin, "10.0.0.1"))

	// Different key, same class: fresh bucket.
	require.True(t, l.TryConsume(ratelimit.ClassLogin, "10.0.0.2"))

	// Same key, different class: fresh bucket.
	require.True(t, l.TryConsume(ratelimit.ClassRegistration, "10.0.0.1"))
}

func TestRefillAllowsMoreCalls(t *testing.T) {
	t.Parallel()

	l := ratelimit.NewWithPolicies(map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassLogin: {RequestsPerWindow: 2, Window: 100 * time.Millisecond, Burst: 2},
	})

	require.True(t, l.TryConsume(ratelimit.ClassLogin, "k"))
	require.True(t, l.TryConsume(ratelimit.ClassLogin, "k"))
	require.False(t, l.TryConsume(ratelimit.ClassLogin, "k"))

	// After a full refill window at least one token is back.
	time.Sleep(120 * time.Millisecond)
	require.True(t, l.TryConsume(ratelimit.ClassLogin, "k"))
}

func TestConcurrentConsumersLoseNoTokens(t *testing.T) {
	t.Parallel()

	l := ratelimit.NewWithPolicies(map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassLogin: {RequestsPerWindow: 5, Window: time.Hour, Burst: 5},
	})

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.True(t, l.TryConsume(ratelimit.ClassLogin, "shared"))
		}()
	}
	wg.Wait()

	// Two tokens consumed concurrently leave exactly three: three more
	// succeed and the fourth fails.
	for i := range 3 {
		require.True(t, l.TryConsume(ratelimit.ClassLogin, "shared"), "probe %d", i+1)
	}
	require.False(t, l.TryConsume(ratelimit.ClassLogin, "shared"))
}

func TestUnknownClassFailsOpen(t *testing.T) {
	t.Parallel()

	l := ratelimit.NewWithPolicies(nil)
	require.True(t, l.TryConsume(ratelimit.Class("nope"), "k"))
	require.Zero(t, l.RetryAfter(ratelimit.Class("nope"), "k"))
}

func TestRetryAfterDoesNotConsume(t *testing.T) {
	t.Parallel()

	l := ratelimit.NewWithPolicies(map[ratelimit.Class]ratelimit.Policy{
		ratelimit.ClassLogin: {RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
	})

	require.True(t, l.TryConsume(ratelimit.ClassLogin, "k"))
	require.False(t, l.TryConsume(ratelimit.ClassLogin, "k"))

	delay := l.RetryAfter(ratelimit.ClassLogin, "k")
	require.Greater(t, delay, time.Duration(0))

	// The probe must not have taken a token either.
	require.False(t, l.TryConsume(ratelimit.ClassLogin, "k"))
}

func TestDefaultPoliciesEnvOverride(t *testing.T) {
	t.Setenv("RATELIMIT_LOGIN_REQUESTS", "42")
	t.Setenv("RATELIMIT_LOGIN_WINDOW_SEC", "120")
	t.Setenv("RATELIMIT_LOGIN_BURST", "7")

	policies := ratelimit.DefaultPolicies()
	login := policies[ratelimit.ClassLogin]

	require.Equal(t, 42, login.RequestsPerWindow)
	require.Equal(t, 2*time.Minute, login.Window)
	require.Equal(t, 7, login.Burst)
}
