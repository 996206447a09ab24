package lobby

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/snakearena/server/internal/models"
)

// Store is the process-wide lobby registry. Grounded on the teacher's
// in-memory lobby map (internal/handlers/api_server.go's GameServer.Lobbies),
// generalized into its own type with Destroy wired into eviction.
type Store struct {
	mu      sync.RWMutex
	lobbies map[uuid.UUID]*Lobby
}

// NewStore creates an empty lobby registry.
func NewStore() *Store {
	return &Store{lobbies: make(map[uuid.UUID]*Lobby)}
}

// Create builds a new lobby, registers it, and wires OnEmpty to self-evict.
func (s *Store) Create(name string, maxPlayers int, isPrivate bool, password string, settings models.GameSettings, rng *rand.Rand) *Lobby {
	id, _ := uuid.NewRandom()
	l := New(id, name, maxPlayers, isPrivate, password, settings, rng)
	l.OnEmpty = func(lobbyID uuid.UUID) { s.Remove(lobbyID) }

	s.mu.Lock()
	s.lobbies[id] = l
	s.mu.Unlock()
	return l
}

// Get returns the lobby with the given id, if registered.
func (s *Store) Get(id uuid.UUID) (*Lobby, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lobbies[id]
	return l, ok
}

// Remove unregisters and tears down a lobby's timers/goroutines.
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	l, ok := s.lobbies[id]
	if ok {
		delete(s.lobbies, id)
	}
	s.mu.Unlock()
	if ok {
		l.Destroy()
	}
}

// PublicWaiting returns snapshots of every non-private lobby currently
// waiting, per spec.md §4.1 "get_lobbies" and §8's public-listing invariant.
func (s *Store) PublicWaiting() []map[string]interface{} {
	s.mu.RLock()
	all := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		all = append(all, l)
	}
	s.mu.RUnlock()

	out := make([]map[string]interface{}, 0, len(all))
	for _, l := range all {
		if l.IsPublicWaiting() {
			out = append(out, l.Snapshot())
		}
	}
	return out
}

// Count returns the number of registered lobbies.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lobbies)
}

// ActiveGames returns the number of lobbies currently playing.
func (s *Store) ActiveGames() int {
	s.mu.RLock()
	all := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		all = append(all, l)
	}
	s.mu.RUnlock()

	n := 0
	for _, l := range all {
		l.Mu.Lock()
		if l.State == StatePlaying {
			n++
		}
		l.Mu.Unlock()
	}
	return n
}

// SweepEmpty removes every lobby with zero members. Lobbies normally
// self-evict via OnEmpty when their last player leaves; this is the
// every-30s backstop spec.md §3 names ("Lobby ... swept every 30 s") for any
// lobby that somehow ends up empty without that callback firing (e.g. a
// lobby created but never joined).
func (s *Store) SweepEmpty() {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.lobbies))
	for id, l := range s.lobbies {
		if l.PlayerCount() == 0 {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range ids {
		s.Remove(id)
	}
}
