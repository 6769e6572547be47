package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/linctx/linctx/internal/workspace"
)

// FetchFunc obtains a fresh workspace snapshot. The store never calls it
// more than once concurrently for the same session key.
type FetchFunc func(ctx context.Context) (*workspace.Snapshot, error)

// StoreConfig controls registry lifecycle per session.
type StoreConfig struct {
	// DefaultTeamKey selects the default team for unprefixed keys.
	// Empty means no default team.
	DefaultTeamKey string

	// TTL expires registries measured from their last build. Zero
	// disables expiry — the setting for persistent transports, where
	// the session itself bounds the registry's life. Stateless
	// transports should use DefaultStoreConfig's 30 minutes.
	TTL time.Duration
}

// DefaultStoreConfig returns the stateless-transport configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{TTL: 30 * time.Minute}
}

// Store holds one registry per session key. Registries build lazily on
// first use, are reused until TTL expiry or an explicit refresh, and are
// isolated between sessions.
//
// Concurrent first callers for the same session share a single in-flight
// build: at most one snapshot fetch runs per session key at a time.
type Store struct {
	cfg   StoreConfig
	fetch FetchFunc

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	group    singleflight.Group
}

type sessionEntry struct {
	reg        *Registry
	generation int
}

// NewStore creates a registry store backed by the given snapshot fetch.
func NewStore(cfg StoreConfig, fetch FetchFunc) *Store {
	return &Store{
		cfg:      cfg,
		fetch:    fetch,
		sessions: map[string]*sessionEntry{},
	}
}

// Get returns the session's registry, building it if missing or expired.
func (s *Store) Get(ctx context.Context, sessionKey string) (*Registry, error) {
	if reg := s.cached(sessionKey); reg != nil {
		return reg, nil
	}
	return s.build(ctx, sessionKey)
}

// ForceRefresh discards any cached registry for the session and rebuilds
// unconditionally. Keys issued against the previous build are void: the
// new registry has a higher generation and may assign them differently.
func (s *Store) ForceRefresh(ctx context.Context, sessionKey string) (*Registry, error) {
	s.mu.Lock()
	if entry, ok := s.sessions[sessionKey]; ok {
		entry.reg = nil
	}
	s.mu.Unlock()
	s.group.Forget(sessionKey)
	return s.build(ctx, sessionKey)
}

// Clear evicts a single session's registry.
func (s *Store) Clear(sessionKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey)
}

// Sweep evicts expired registries and reports how many were removed.
// A no-op when TTL is disabled.
func (s *Store) Sweep() int {
	if s.cfg.TTL <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, entry := range s.sessions {
		if entry.reg != nil && s.expired(entry.reg) {
			delete(s.sessions, key)
			evicted++
		}
	}
	return evicted
}

// cached returns a live registry or nil.
func (s *Store) cached(sessionKey string) *Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionKey]
	if !ok || entry.reg == nil || s.expired(entry.reg) {
		return nil
	}
	return entry.reg
}

func (s *Store) expired(reg *Registry) bool {
	return s.cfg.TTL > 0 && time.Since(reg.BuiltAt()) > s.cfg.TTL
}

// build runs the single-flight snapshot fetch + registry build for a
// session. Concurrent callers during the build window all receive the
// same result instead of issuing redundant fetches.
func (s *Store) build(ctx context.Context, sessionKey string) (*Registry, error) {
	v, err, _ := s.group.Do(sessionKey, func() (any, error) {
		// A concurrent caller may have finished the build while this
		// one waited on the flight group.
		if reg := s.cached(sessionKey); reg != nil {
			return reg, nil
		}

		snap, err := s.fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching workspace snapshot: %w", err)
		}

		s.mu.Lock()
		entry, ok := s.sessions[sessionKey]
		if !ok {
			entry = &sessionEntry{}
			s.sessions[sessionKey] = entry
		}
		entry.generation++
		generation := entry.generation
		s.mu.Unlock()

		reg, err := Build(snap, s.cfg.DefaultTeamKey, generation)
		if err != nil {
			return nil, fmt.Errorf("building registry: %w", err)
		}

		s.mu.Lock()
		entry.reg = reg
		s.mu.Unlock()
		return reg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Registry), nil
}
