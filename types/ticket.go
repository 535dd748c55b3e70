package types

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidLobbyID  = errors.New("lobby id must not be empty")
	ErrInvalidTicketID = errors.New("ticket id must not be empty")
	ErrNegativeLatency = errors.New("latency cannot be less than zero")
)

// Ticket is a single player's request to be matched. The zero value is not a
// valid ticket; use NewTicket or NewTicketWithID.
type Ticket struct {
	LobbyID uuid.UUID `json:"lobbyId"`
	ID      uuid.UUID `json:"id"`
	Latency float64   `json:"latency"`

	// RegisteredAt is the submission time in unix nanoseconds. It is fixed at
	// construction and survives latency updates: the pool keeps the original
	// value when a ticket with the same ID is resubmitted.
	RegisteredAt int64 `json:"registeredAt"`
}

// NewTicket creates a ticket with a generated ID.
func NewTicket(lobbyID uuid.UUID, latency float64) (Ticket, error) {
	return NewTicketWithID(lobbyID, uuid.New(), latency)
}

// NewTicketWithID creates a ticket with a caller-supplied ID. Resubmitting an
// existing ID updates that ticket's latency.
func NewTicketWithID(lobbyID uuid.UUID, ticketID uuid.UUID, latency float64) (Ticket, error) {
	if lobbyID == uuid.Nil {
		return Ticket{}, ErrInvalidLobbyID
	}
	if ticketID == uuid.Nil {
		return Ticket{}, ErrInvalidTicketID
	}
	if latency < 0 {
		return Ticket{}, ErrNegativeLatency
	}
	return Ticket{
		LobbyID:      lobbyID,
		ID:           ticketID,
		Latency:      latency,
		RegisteredAt: time.Now().UnixNano(),
	}, nil
}

// WaitTime reports how long the ticket has been waiting at the given instant.
func (t Ticket) WaitTime(now int64) time.Duration {
	return time.Duration(now - t.RegisteredAt)
}
