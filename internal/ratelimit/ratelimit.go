// Package ratelimit guards tenant-creation and auth endpoints with fixed
// window counters. Correctness under concurrency rests entirely on the
// store's atomic increment; there is no application-level locking.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/itbasis/go-clock"

	"github.com/bidhall/bidhall/internal/logger"
	"github.com/bidhall/bidhall/internal/models"
	"github.com/bidhall/bidhall/internal/storage"
)

// Action classes with independent quotas.
const (
	ActionTournamentCreate = "tournament_create"
	ActionAuthAttempt      = "auth_attempt"
)

type Rule struct {
	Limit  int
	Window time.Duration
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type Limiter struct {
	store        storage.Adapter
	rules        map[string]Rule
	safetyMargin time.Duration
	failOpen     bool
	clock        clock.Clock
	logger       *logger.Logger
}

func New(store storage.Adapter, rules map[string]Rule, safetyMargin time.Duration, failOpen bool, clk clock.Clock, log *logger.Logger) *Limiter {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Limiter{
		store:        store,
		rules:        rules,
		safetyMargin: safetyMargin,
		failOpen:     failOpen,
		clock:        clk,
		logger:       log,
	}
}

func (l *Limiter) rule(action string) Rule {
	if r, ok := l.rules[action]; ok {
		return r
	}
	return Rule{Limit: 10, Window: time.Minute}
}

func (l *Limiter) window(action string) (key func(identifier string) string, start, end time.Time) {
	r := l.rule(action)
	windowSecs := int64(r.Window / time.Second)
	nowSecs := l.clock.Now().Unix()
	startSecs := (nowSecs / windowSecs) * windowSecs

	key = func(identifier string) string {
		return models.RateLimitKey(action, identifier, startSecs)
	}
	return key, time.Unix(startSecs, 0), time.Unix(startSecs+windowSecs, 0)
}

// Check atomically counts the request against the identifier's current window
// and reports whether it is within quota. The first increment in a window
// also sets the key's TTL so counters clean themselves up. Store failures
// fail open when configured: a broken store must not take the auction down
// with it.
func (l *Limiter) Check(ctx context.Context, action, identifier string) Result {
	r := l.rule(action)
	key, _, resetAt := l.window(action)

	count, err := l.store.Incr(ctx, key(identifier))
	if err != nil {
		return l.storeFailure(action, identifier, r, resetAt, err)
	}

	if count == 1 {
		if err := l.store.Expire(ctx, key(identifier), r.Window+l.safetyMargin); err != nil {
			l.logger.Warn("failed to set rate limit TTL", "action", action, "identifier", identifier, "error", err)
		}
	}

	return l.result(r, count, resetAt)
}

// Peek reads the current count without consuming quota.
func (l *Limiter) Peek(ctx context.Context, action, identifier string) Result {
	r := l.rule(action)
	key, _, resetAt := l.window(action)

	val, err := l.store.Get(ctx, key(identifier))
	if err == storage.ErrNil {
		return l.result(r, 0, resetAt)
	}
	if err != nil {
		return l.storeFailure(action, identifier, r, resetAt, err)
	}

	count, _ := strconv.ParseInt(val, 10, 64)
	return l.result(r, count, resetAt)
}

func (l *Limiter) result(r Rule, count int64, resetAt time.Time) Result {
	res := Result{
		Allowed:   count <= int64(r.Limit),
		Limit:     r.Limit,
		Remaining: r.Limit - int(count),
		ResetAt:   resetAt,
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if !res.Allowed {
		res.RetryAfter = resetAt.Sub(l.clock.Now())
		if res.RetryAfter < 0 {
			res.RetryAfter = 0
		}
	}
	return res
}

func (l *Limiter) storeFailure(action, identifier string, r Rule, resetAt time.Time, err error) Result {
	l.logger.Error("rate limit store failure", "action", action, "identifier", identifier, "error", err)
	if l.failOpen {
		return Result{Allowed: true, Limit: r.Limit, Remaining: r.Limit, ResetAt: resetAt}
	}
	return Result{Allowed: false, Limit: r.Limit, ResetAt: resetAt, RetryAfter: resetAt.Sub(l.clock.Now())}
}
