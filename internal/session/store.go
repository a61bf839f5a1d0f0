// Package session provides the concurrency-safe keyed store of in-flight
// questionnaire sessions. Keys are sharded across independent mutexes so
// operations for the same participant are linearizable while unrelated
// participants never contend on a shared lock.
package session

import (
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/immuned/rheumabot/internal/models"
)

// ErrNotFound is returned by Update when the session was removed by a
// concurrent finalization. Callers treat it as "start fresh", not a failure.
var ErrNotFound = errors.New("session not found")

const shardCount = 32

type shard struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

// Store maps participant phone numbers to sessions.
type Store struct {
	shards [shardCount]shard
	now    func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	s := &Store{now: func() time.Time { return time.Now().UTC() }}
	for i := range s.shards {
		s.shards[i].sessions = make(map[string]*models.Session)
	}
	return s
}

func (s *Store) shardFor(phone string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(phone))
	return &s.shards[h.Sum32()%shardCount]
}

// GetOrCreate atomically returns the session for phone, creating a fresh one
// at ordinal 0 when absent. The returned copy reflects the state at call
// time; mutations must go through Update. created reports whether this call
// created the session.
func (s *Store) GetOrCreate(phone string) (models.Session, bool) {
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if existing, ok := sh.sessions[phone]; ok {
		return copySession(existing), false
	}
	fresh := &models.Session{Phone: phone, CreatedAt: s.now()}
	sh.sessions[phone] = fresh
	return copySession(fresh), true
}

// Update applies fn to the live session under the shard lock, making the
// observe-validate-commit step atomic with respect to the session's current
// state. fn returning an error aborts with the session untouched only if fn
// did not mutate it; by convention validation errors are returned before any
// mutation. Returns ErrNotFound when no session exists for phone.
func (s *Store) Update(phone string, fn func(*models.Session) error) error {
	sh := s.shardFor(phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sess, ok := sh.sessions[phone]
	if !ok {
		return ErrNotFound
	}
	return fn(sess)
}

// Remove deletes the session for phone. Removing an absent phone is a no-op.
func (s *Store) Remove(phone string) {
	sh := s.shardFor(phone)
	sh.mu.Lock()
	delete(sh.sessions, phone)
	sh.mu.Unlock()
}

// Len counts active sessions across all shards.
func (s *Store) Len() int {
	n := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}

// Snapshot returns copies of every active session, in no particular order.
func (s *Store) Snapshot() []models.Session {
	out := []models.Session{}
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for _, sess := range sh.sessions {
			out = append(out, copySession(sess))
		}
		sh.mu.Unlock()
	}
	return out
}

func copySession(s *models.Session) models.Session {
	c := *s
	c.Answers = append([]models.Answer(nil), s.Answers...)
	return c
}
