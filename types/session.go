package types

import "github.com/google/uuid"

// Session is a formed or forming match result: the tickets handed out for one
// session id. A session that is still collecting tickets yields a partial
// result; claiming it later yields the tickets accumulated since.
type Session struct {
	LobbyID   uuid.UUID `json:"lobbyId"`
	SessionID uuid.UUID `json:"sessionId"`
	Tickets   []Ticket  `json:"tickets"`
}

// NewSession creates an empty session result with a generated session id.
func NewSession(lobbyID uuid.UUID) Session {
	return NewSessionWithTickets(lobbyID, nil)
}

// NewSessionWithTickets creates a session result carrying the given tickets.
func NewSessionWithTickets(lobbyID uuid.UUID, tickets []Ticket) Session {
	if tickets == nil {
		tickets = []Ticket{}
	}
	return Session{
		LobbyID:   lobbyID,
		SessionID: uuid.New(),
		Tickets:   tickets,
	}
}

// WithSessionID returns a copy of the result keyed by an existing session id.
// Used when an open session issues follow-up batches for the same match.
func (s Session) WithSessionID(id uuid.UUID) Session {
	s.SessionID = id
	return s
}
