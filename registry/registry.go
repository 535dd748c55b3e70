// Package registry maps lobby ids to the lobby responsible for them. It is a
// pure lookup-and-forward layer: lobbies are created lazily on first
// reference and no matching logic lives here.
package registry

import (
	"context"

	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/leafley/rovio-match-making/lobby"
)

type Registry struct {
	mu      sync.RWMutex
	lobbies map[uuid.UUID]*lobby.Lobby
}

func New() *Registry {
	return &Registry{
		lobbies: make(map[uuid.UUID]*lobby.Lobby),
	}
}

// Lobby returns the lobby for the id without creating one.
func (r *Registry) Lobby(id uuid.UUID) (*lobby.Lobby, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[id]
	return l, ok
}

// LobbyOrCreate returns the lobby for the id, spawning and starting one on
// first reference.
func (r *Registry) LobbyOrCreate(id uuid.UUID) (*lobby.Lobby, error) {
	r.mu.RLock()
	l, ok := r.lobbies[id]
	r.mu.RUnlock()
	if ok {
		return l, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lobbies[id]; ok {
		return l, nil
	}
	l, err := lobby.New(id)
	if err != nil {
		return nil, err
	}
	l.Start()
	r.lobbies[id] = l
	return l, nil
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}

// CloseAll stops every lobby and waits for them to finish, bounded by the
// context deadline.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	lobbies := make([]*lobby.Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		lobbies = append(lobbies, l)
	}
	r.lobbies = make(map[uuid.UUID]*lobby.Lobby)
	r.mu.Unlock()

	for _, l := range lobbies {
		l.Stop()
	}
	for _, l := range lobbies {
		select {
		case <-l.Done():
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "timed out waiting for lobbies to stop")
		}
	}
	return nil
}
