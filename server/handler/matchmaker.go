package handler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/leafley/rovio-match-making/types"
)

// Matchmaker is the boundary the HTTP layer translates requests onto.
type Matchmaker interface {
	QueueTicket(ctx context.Context, lobbyID uuid.UUID, latency float64) (types.Ticket, error)
	UpdateTicket(ctx context.Context, lobbyID uuid.UUID, ticketID uuid.UUID, latency float64) (types.Ticket, error)
	CancelTicket(ctx context.Context, lobbyID uuid.UUID, ticketID uuid.UUID) error
	CreateSession(ctx context.Context, lobbyID uuid.UUID, minPlayers, maxPlayers int, maxWaitTime time.Duration) (types.Session, error)
	ClaimSession(ctx context.Context, lobbyID uuid.UUID, sessionID uuid.UUID) (types.Session, error)
	CloseSession(ctx context.Context, lobbyID uuid.UUID, sessionID uuid.UUID) error
}
