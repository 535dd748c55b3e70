package types_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"pkg.world.dev/world-engine/assert"

	"github.com/leafley/rovio-match-making/types"
)

func TestNewTicketGeneratesIdentity(t *testing.T) {
	lobbyID := uuid.New()

	ticket, err := types.NewTicket(lobbyID, 42.5)
	assert.NilError(t, err)
	assert.Equal(t, lobbyID, ticket.LobbyID)
	assert.Assert(t, ticket.ID != uuid.Nil)
	assert.Equal(t, 42.5, ticket.Latency)
	assert.Assert(t, ticket.RegisteredAt > 0)
}

func TestNewTicketRejectsBadInput(t *testing.T) {
	_, err := types.NewTicket(uuid.Nil, 10)
	assert.ErrorIs(t, err, types.ErrInvalidLobbyID)

	_, err = types.NewTicketWithID(uuid.New(), uuid.Nil, 10)
	assert.ErrorIs(t, err, types.ErrInvalidTicketID)

	_, err = types.NewTicket(uuid.New(), -1)
	assert.ErrorIs(t, err, types.ErrNegativeLatency)
}

func TestZeroLatencyIsValid(t *testing.T) {
	ticket, err := types.NewTicket(uuid.New(), 0)
	assert.NilError(t, err)
	assert.Equal(t, float64(0), ticket.Latency)
}

func TestWaitTime(t *testing.T) {
	ticket, err := types.NewTicket(uuid.New(), 10)
	assert.NilError(t, err)

	now := ticket.RegisteredAt + int64(3*time.Second)
	assert.Equal(t, 3*time.Second, ticket.WaitTime(now))
}

func TestNewSessionWithTicketsNeverNil(t *testing.T) {
	result := types.NewSessionWithTickets(uuid.New(), nil)
	assert.NotNil(t, result.Tickets)
	assert.Len(t, result.Tickets, 0)
	assert.Assert(t, result.SessionID != uuid.Nil)
}

func TestWithSessionIDOverridesGeneratedID(t *testing.T) {
	id := uuid.New()
	result := types.NewSession(uuid.New()).WithSessionID(id)
	assert.Equal(t, id, result.SessionID)
}
