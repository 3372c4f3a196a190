// Package storagetest provides an in-memory storage.Adapter for package
// tests. It honors TTLs against an injected clock so window-expiry behavior
// can be tested without a live store.
package storagetest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/itbasis/go-clock"

	"github.com/bidhall/bidhall/internal/storage"
)

type entry struct {
	value     string
	set       map[string]struct{}
	list      []string
	expiresAt time.Time // zero means no expiry
}

// Store is a mutex-guarded in-memory Adapter. The mutex also makes Incr
// atomic, matching the store-layer guarantee the real adapter provides.
type Store struct {
	mu    sync.Mutex
	data  map[string]*entry
	clock clock.Clock

	// FailAll makes every operation return an error. Used to exercise
	// fail-open and fail-closed paths.
	FailAll bool
}

var errStoreDown = errors.New("storagetest: store unavailable")

func New(c clock.Clock) *Store {
	if c == nil {
		c = clock.New()
	}
	return &Store{data: make(map[string]*entry), clock: c}
}

// live returns the entry for key, evicting it first if its TTL has elapsed.
// Callers must hold s.mu.
func (s *Store) live(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !s.clock.Now().Before(e.expiresAt) {
		delete(s.data, key)
		return nil
	}
	return e
}

func (s *Store) ensure(key string) *entry {
	if e := s.live(key); e != nil {
		return e
	}
	e := &entry{}
	s.data[key] = e
	return e
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return "", errStoreDown
	}
	e := s.live(key)
	if e == nil {
		return "", storage.ErrNil
	}
	return e.value, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errStoreDown
	}
	e := &entry{value: value}
	if ttl > 0 {
		e.expiresAt = s.clock.Now().Add(ttl)
	}
	s.data[key] = e
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errStoreDown
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return false, errStoreDown
	}
	return s.live(key) != nil, nil
}

func (s *Store) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return 0, errStoreDown
	}
	e := s.ensure(key)
	n, _ := strconv.ParseInt(e.value, 10, 64)
	n++
	e.value = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errStoreDown
	}
	if e := s.live(key); e != nil {
		e.expiresAt = s.clock.Now().Add(ttl)
	}
	return nil
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return 0, errStoreDown
	}
	e := s.live(key)
	if e == nil {
		return -2 * time.Second, nil
	}
	if e.expiresAt.IsZero() {
		return -1 * time.Second, nil
	}
	return e.expiresAt.Sub(s.clock.Now()), nil
}

func (s *Store) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errStoreDown
	}
	e := s.ensure(key)
	if e.set == nil {
		e.set = make(map[string]struct{})
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	return nil
}

func (s *Store) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errStoreDown
	}
	e := s.live(key)
	if e == nil || e.set == nil {
		return nil
	}
	for _, m := range members {
		delete(e.set, m)
	}
	return nil
}

func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return nil, errStoreDown
	}
	e := s.live(key)
	if e == nil || e.set == nil {
		return nil, nil
	}
	members := make([]string, 0, len(e.set))
	for m := range e.set {
		members = append(members, m)
	}
	return members, nil
}

func (s *Store) SIsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return false, errStoreDown
	}
	e := s.live(key)
	if e == nil || e.set == nil {
		return false, nil
	}
	_, ok := e.set[member]
	return ok, nil
}

func (s *Store) LPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errStoreDown
	}
	e := s.ensure(key)
	for _, v := range values {
		e.list = append([]string{v}, e.list...)
	}
	return nil
}

func (s *Store) RPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errStoreDown
	}
	e := s.ensure(key)
	e.list = append(e.list, values...)
	return nil
}

func (s *Store) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return nil, errStoreDown
	}
	e := s.live(key)
	if e == nil {
		return nil, nil
	}
	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, e.list[start:stop+1])
	return out, nil
}

func (s *Store) LTrim(_ context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return errStoreDown
	}
	e := s.live(key)
	if e == nil {
		return nil
	}
	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		e.list = nil
		return nil
	}
	e.list = e.list[start : stop+1]
	return nil
}

func (s *Store) LLen(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return 0, errStoreDown
	}
	e := s.live(key)
	if e == nil {
		return 0, nil
	}
	return int64(len(e.list)), nil
}

func (s *Store) Ping(context.Context) error {
	if s.FailAll {
		return errStoreDown
	}
	return nil
}

func (s *Store) Close() error { return nil }
