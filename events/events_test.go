package events_test

import (
	"testing"

	"github.com/google/uuid"
	"pkg.world.dev/world-engine/assert"

	"github.com/leafley/rovio-match-making/events"
	"github.com/leafley/rovio-match-making/types"
)

func TestEmitWithoutSubscribers(t *testing.T) {
	h := events.NewHub()
	defer h.Shutdown()

	ticket, err := types.NewTicket(uuid.New(), 42)
	assert.NilError(t, err)
	assert.NilError(t, h.Emit(events.TicketQueued(ticket)))
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestShutdownIsIdempotent(t *testing.T) {
	h := events.NewHub()
	h.Shutdown()
	h.Shutdown()

	// A stopped hub drops events instead of blocking the caller.
	assert.NilError(t, h.Emit(events.SessionClosed(uuid.NewString(), uuid.NewString())))
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestEventConstructors(t *testing.T) {
	lobbyID := uuid.New()
	ticket, err := types.NewTicket(lobbyID, 42)
	assert.NilError(t, err)

	queued := events.TicketQueued(ticket)
	assert.Equal(t, events.KindTicketQueued, queued.Kind)
	assert.Equal(t, lobbyID.String(), queued.LobbyID)
	assert.Equal(t, ticket.ID.String(), queued.TicketID)

	result := types.NewSessionWithTickets(lobbyID, []types.Ticket{ticket})
	created := events.SessionCreated(result)
	assert.Equal(t, events.KindSessionCreated, created.Kind)
	assert.Equal(t, result.SessionID.String(), created.SessionID)
	assert.Equal(t, 1, created.Matched)
}
