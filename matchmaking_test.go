package matchmaking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"pkg.world.dev/world-engine/assert"

	"github.com/leafley/rovio-match-making/types"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := New()
	assert.NilError(t, err)
	t.Cleanup(func() {
		assert.NilError(t, svc.Shutdown())
	})
	return svc
}

func TestQueueTicketCreatesLobbyLazily(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	lobbyID := uuid.New()

	assert.Equal(t, 0, svc.registry.Count())

	ticket, err := svc.QueueTicket(ctx, lobbyID, 42)
	assert.NilError(t, err)
	assert.Equal(t, lobbyID, ticket.LobbyID)
	assert.Assert(t, ticket.ID != uuid.Nil)
	assert.Equal(t, 1, svc.registry.Count())
}

func TestQueueTicketValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.QueueTicket(ctx, uuid.Nil, 42)
	assert.ErrorIs(t, err, types.ErrInvalidLobbyID)

	_, err = svc.QueueTicket(ctx, uuid.New(), -1)
	assert.ErrorIs(t, err, types.ErrNegativeLatency)

	// An invalid request must not have created a lobby.
	assert.Equal(t, 0, svc.registry.Count())
}

func TestUpdateTicketKeepsWaitTime(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	lobbyID := uuid.New()

	original, err := svc.QueueTicket(ctx, lobbyID, 100)
	assert.NilError(t, err)

	updated, err := svc.UpdateTicket(ctx, lobbyID, original.ID, 150)
	assert.NilError(t, err)
	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, 150.0, updated.Latency)
	assert.Equal(t, original.RegisteredAt, updated.RegisteredAt)
}

func TestCancelTicketUnknownLobbyIsNoOp(t *testing.T) {
	svc := newTestService(t)

	assert.NilError(t, svc.CancelTicket(context.Background(), uuid.New(), uuid.New()))
	assert.Equal(t, 0, svc.registry.Count())
}

func TestMatchmakingRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	lobbyID := uuid.New()

	for i := 0; i < 4; i++ {
		_, err := svc.QueueTicket(ctx, lobbyID, 100)
		assert.NilError(t, err)
	}

	result, err := svc.CreateSession(ctx, lobbyID, 2, 4, time.Minute)
	assert.NilError(t, err)
	assert.Len(t, result.Tickets, 4)
	assert.Equal(t, lobbyID, result.LobbyID)
}

func TestUnderfilledSessionBackfillAndClaim(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	lobbyID := uuid.New()

	_, err := svc.QueueTicket(ctx, lobbyID, 100)
	assert.NilError(t, err)
	_, err = svc.QueueTicket(ctx, lobbyID, 100)
	assert.NilError(t, err)

	result, err := svc.CreateSession(ctx, lobbyID, 2, 4, time.Minute)
	assert.NilError(t, err)
	assert.Len(t, result.Tickets, 2)

	// Compatible latecomer routes to the open session.
	routed, err := svc.QueueTicket(ctx, lobbyID, 110)
	assert.NilError(t, err)

	claimed, err := svc.ClaimSession(ctx, lobbyID, result.SessionID)
	assert.NilError(t, err)
	assert.Len(t, claimed.Tickets, 1)
	assert.Equal(t, routed.ID, claimed.Tickets[0].ID)
}

func TestClaimSessionUnknownLobbyIsEmpty(t *testing.T) {
	svc := newTestService(t)
	lobbyID, sessionID := uuid.New(), uuid.New()

	result, err := svc.ClaimSession(context.Background(), lobbyID, sessionID)
	assert.NilError(t, err)
	assert.Equal(t, sessionID, result.SessionID)
	assert.Len(t, result.Tickets, 0)
	assert.Equal(t, 0, svc.registry.Count())
}

func TestCloseSessionUnknownLobbyIsNoOp(t *testing.T) {
	svc := newTestService(t)
	assert.NilError(t, svc.CloseSession(context.Background(), uuid.New(), uuid.New()))
}

func TestCreateSessionValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSession(ctx, uuid.New(), 0, 4, time.Minute)
	assert.IsError(t, err)

	_, err = svc.CreateSession(ctx, uuid.New(), 4, 2, time.Minute)
	assert.IsError(t, err)
}

func TestShutdownIsIdempotent(t *testing.T) {
	svc, err := New()
	assert.NilError(t, err)

	_, err = svc.QueueTicket(context.Background(), uuid.New(), 42)
	assert.NilError(t, err)

	assert.NilError(t, svc.Shutdown())
	assert.NilError(t, svc.Shutdown())
}
