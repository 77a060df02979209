// Package ratelimit provides in-memory, per-process token buckets protecting
// credential-sensitive operations. State is never persisted and never shared
// across instances: the feature is best-effort abuse throttling, not a global
// guarantee, and it resets on restart.
package ratelimit

import (
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Class identifies one credential-sensitive operation. Each class owns an
// independent keyed map of buckets with its own policy.
type Class string

const (
	ClassLogin               Class = "login"
	ClassRegistration        Class = "registration"
	ClassForgotPasswordIP    Class = "forgot_password_ip"
	ClassForgotPasswordEmail Class = "forgot_password_email"
	ClassInviteAccept        Class = "invite_accept"
	ClassAccessCode          Class = "access_code"
)

// Policy defines the token-bucket parameters for one class.
type Policy struct {
	// RequestsPerWindow is the sustained refill budget over Window.
	RequestsPerWindow int
	// Window is the refill interval the budget is spread across.
	Window time.Duration
	// Burst is the bucket capacity: how many requests may be consumed
	// back-to-back from a full bucket.
	Burst int
}

// DefaultPolicies returns the per-class policies, each overridable via
// environment variables of the form RATELIMIT_<CLASS>_REQUESTS,
// RATELIMIT_<CLASS>_WINDOW_SEC and RATELIMIT_<CLASS>_BURST (class name
// upper-cased, e.g. RATELIMIT_LOGIN_BURST).
func DefaultPolicies() map[Class]Policy {
	defaults := map[Class]Policy{
		ClassLogin:               {RequestsPerWindow: 5, Window: time.Minute, Burst: 5},
		ClassRegistration:        {RequestsPerWindow: 3, Window: time.Minute, Burst: 3},
		ClassForgotPasswordIP:    {RequestsPerWindow: 5, Window: time.Hour, Burst: 5},
		ClassForgotPasswordEmail: {RequestsPerWindow: 3, Window: time.Hour, Burst: 3},
		ClassInviteAccept:        {RequestsPerWindow: 10, Window: time.Minute, Burst: 10},
		ClassAccessCode:          {RequestsPerWindow: 10, Window: time.Minute, Burst: 10},
	}

	out := make(map[Class]Policy, len(defaults))
	for class, policy := range defaults {
		out[class] = policyFromEnv(class, policy)
	}
	return out
}

func policyFromEnv(class Class, def Policy) Policy {
	prefix := "RATELIMIT_" + envName(class)
	cfg := def

	if val := os.Getenv(prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			cfg.RequestsPerWindow = requests
		}
	}
	if val := os.Getenv(prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			cfg.Window = time.Duration(windowSec) * time.Second
		}
	}
	if val := os.Getenv(prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			cfg.Burst = burst
		}
	}

	return cfg
}

func envName(class Class) string {
	out := make([]byte, 0, len(class))
	for i := 0; i < len(class); i++ {
		c := class[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}

// Limiter holds one keyed bucket registry per class. Safe for concurrent
// use; token consumption on a single bucket is internally locked, so two
// racing consumers can never both take the same token.
type Limiter struct {
	classes map[Class]*buckets
}

// New creates a Limiter with DefaultPolicies.
func New() *Limiter {
	return NewWithPolicies(DefaultPolicies())
}

// NewWithPolicies creates a Limiter with explicit per-class policies.
// Classes absent from the map are unlimited.
func NewWithPolicies(policies map[Class]Policy) *Limiter {
	classes := make(map[Class]*buckets, len(policies))
	for class, policy := range policies {
		classes[class] = newBuckets(policy)
	}
	return &Limiter{classes: classes}
}

// TryConsume removes one token from the bucket identified by (class, key),
// lazily creating the bucket at full capacity on first use. Returns false
// when the bucket is empty; the caller must reject the request without
// consuming further tokens.
func (l *Limiter) TryConsume(class Class, key string) bool {
	b, ok := l.classes[class]
	if !ok {
		// Unknown class carries no policy. Throttling is best-effort, so
		// fail open rather than lock out a misconfigured endpoint.
		return true
	}
	return b.get(key).Allow()
}

// RetryAfter reports how long the caller should wait before the bucket for
// (class, key) yields another token. Used for the Retry-After header; the
// probe does not consume a token.
func (l *Limiter) RetryAfter(class Class, key string) time.Duration {
	b, ok := l.classes[class]
	if !ok {
		return 0
	}

	reservation := b.get(key).Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return delay
}

// Policy returns the policy configured for a class.
func (l *Limiter) Policy(class Class) (Policy, bool) {
	b, ok := l.classes[class]
	if !ok {
		return Policy{}, false
	}
	return b.policy, true
}

// buckets manages the keyed *rate.Limiter map for one class.
type buckets struct {
	limiters sync.Map // map[string]*rate.Limiter
	policy   Policy
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func newBuckets(policy Policy) *buckets {
	perSecond := float64(policy.RequestsPerWindow) / policy.Window.Seconds()
	return &buckets{
		policy:      policy,
		rate:        rate.Limit(perSecond),
		burst:       policy.Burst,
		lastCleanup: time.Now(),
	}
}

// get retrieves or creates the bucket for a key.
func (b *buckets) get(key string) *rate.Limiter {
	// Fast path: bucket already exists
	if limiter, ok := b.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	// Slow path: create a new full bucket
	limiter := rate.NewLimiter(b.rate, b.burst)
	actual, _ := b.limiters.LoadOrStore(key, limiter)

	b.maybeCleanup()

	return actual.(*rate.Limiter)
}

// maybeCleanup evicts buckets that have refilled completely. A full bucket
// means the key has been idle for at least one whole window, so dropping it
// is indistinguishable from keeping it. This keeps the registry from
// accumulating entries for ephemeral keys.
func (b *buckets) maybeCleanup() {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Only sweep once every 5 minutes
	if time.Since(b.lastCleanup) < 5*time.Minute {
		return
	}

	b.lastCleanup = time.Now()

	b.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.Tokens() >= float64(b.burst) {
			b.limiters.Delete(key)
		}
		return true
	})
}
