package registry_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"pkg.world.dev/world-engine/assert"

	"github.com/leafley/rovio-match-making/registry"
)

func TestLobbyOrCreateIsLazy(t *testing.T) {
	r := registry.New()
	id := uuid.New()

	_, ok := r.Lobby(id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())

	l, err := r.LobbyOrCreate(id)
	assert.NilError(t, err)
	assert.Equal(t, id, l.ID())
	assert.Equal(t, 1, r.Count())

	got, ok := r.Lobby(id)
	assert.True(t, ok)
	assert.Same(t, l, got)
}

func TestLobbyOrCreateRejectsNilID(t *testing.T) {
	r := registry.New()
	_, err := r.LobbyOrCreate(uuid.Nil)
	assert.IsError(t, err)
}

func TestConcurrentCreateYieldsOneLobby(t *testing.T) {
	r := registry.New()
	id := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.LobbyOrCreate(id)
			assert.NilError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.Count())
}

func TestCloseAllStopsEveryLobby(t *testing.T) {
	r := registry.New()
	first, err := r.LobbyOrCreate(uuid.New())
	assert.NilError(t, err)
	second, err := r.LobbyOrCreate(uuid.New())
	assert.NilError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NilError(t, r.CloseAll(ctx))
	assert.Equal(t, 0, r.Count())

	select {
	case <-first.Done():
	case <-time.After(time.Second):
		t.Fatal("first lobby did not stop")
	}
	select {
	case <-second.Done():
	case <-time.After(time.Second):
		t.Fatal("second lobby did not stop")
	}
}
