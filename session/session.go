// Package session implements the life cycle of a single forming match. A
// session owns the tickets routed to it, runs on its own goroutine, and only
// ever terminates after its lobby has acknowledged the close handshake, so no
// ticket can be lost to a message still in flight.
package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leafley/rovio-match-making/mailbox"
	"github.com/leafley/rovio-match-making/stage"
	"github.com/leafley/rovio-match-making/types"
)

var (
	ErrNilLobby            = errors.New("session requires a lobby")
	ErrInvalidLobbyID      = errors.New("session requires a lobby id")
	ErrNegativeMeanLatency = errors.New("mean latency must be positive")
	ErrNegativeDeviation   = errors.New("standard deviation must be positive")
	ErrNoRemainingSlots    = errors.New("session must have remaining slots")
	ErrInvalidHeartbeat    = errors.New("heartbeat must be greater than zero")
)

// Lobby is the subset of lobby behavior a session depends on. Every method is
// asynchronous: implementations enqueue onto the lobby's mailbox and return.
type Lobby interface {
	// Submit routes a ticket back through the lobby, either returning it to
	// the pool or forwarding it to another open session.
	Submit(ticket types.Ticket)
	// NotifyClose announces this session's intent to shut down. The lobby
	// must stop routing tickets to it and acknowledge with AcknowledgeClose.
	NotifyClose(s *Session)
	// Reopen re-registers the session as open after a cancellation freed a
	// slot in a filled session.
	Reopen(s *Session)
	// SessionStopped reports terminal shutdown so the lobby can drop its
	// remaining references.
	SessionStopped(s *Session)
}

type addTicket struct{ ticket types.Ticket }

type cancelTicket struct{ ticketID uuid.UUID }

type claimTickets struct{ reply chan<- types.Session }

// closeSession doubles as the forced shutdown command and, when fromLobby is
// set, the lobby's half of the close handshake.
type closeSession struct{ fromLobby bool }

type Session struct {
	id                uuid.UUID
	lobbyID           uuid.UUID
	lobby             Lobby
	meanLatency       float64
	standardDeviation float64
	heartbeat         time.Duration

	inbox *mailbox.Mailbox
	stage *stage.Manager
	done  chan struct{}
	log   zerolog.Logger

	// Owned by the run goroutine.
	pending        map[uuid.UUID]types.Ticket
	remainingSlots int
	safeToClose    bool
}

// New creates a session that will collect up to remainingSlots tickets for the
// match identified by sessionID. Call Start to begin processing.
func New(
	lobby Lobby,
	lobbyID uuid.UUID,
	sessionID uuid.UUID,
	meanLatency float64,
	standardDeviation float64,
	remainingSlots int,
	heartbeat time.Duration,
) (*Session, error) {
	if lobby == nil {
		return nil, ErrNilLobby
	}
	if lobbyID == uuid.Nil {
		return nil, ErrInvalidLobbyID
	}
	if meanLatency < 0 {
		return nil, ErrNegativeMeanLatency
	}
	if standardDeviation < 0 {
		return nil, ErrNegativeDeviation
	}
	if remainingSlots < 1 {
		return nil, ErrNoRemainingSlots
	}
	if heartbeat <= 0 {
		return nil, ErrInvalidHeartbeat
	}
	return &Session{
		id:                sessionID,
		lobbyID:           lobbyID,
		lobby:             lobby,
		meanLatency:       meanLatency,
		standardDeviation: standardDeviation,
		heartbeat:         heartbeat,
		inbox:             mailbox.New(),
		stage:             stage.NewManager(stage.Running),
		done:              make(chan struct{}),
		log: log.With().
			Str("lobby_id", lobbyID.String()).
			Str("session_id", sessionID.String()).
			Logger(),
		pending:        make(map[uuid.UUID]types.Ticket, remainingSlots),
		remainingSlots: remainingSlots,
	}, nil
}

func (s *Session) ID() uuid.UUID              { return s.id }
func (s *Session) LobbyID() uuid.UUID         { return s.lobbyID }
func (s *Session) MeanLatency() float64       { return s.meanLatency }
func (s *Session) StandardDeviation() float64 { return s.standardDeviation }
func (s *Session) Stage() stage.Stage         { return s.stage.Current() }

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start launches the session goroutine.
func (s *Session) Start() {
	go s.run()
}

// AddTicket queues a ticket for this session. After the session has started
// closing the ticket is forwarded back to the lobby instead.
func (s *Session) AddTicket(ticket types.Ticket) {
	if !s.inbox.Push(addTicket{ticket: ticket}) {
		// The goroutine is gone; hand the ticket straight back.
		s.lobby.Submit(ticket)
	}
}

// CancelTicket removes the ticket from the pending set if this session holds it.
func (s *Session) CancelTicket(ticketID uuid.UUID) {
	s.inbox.Push(cancelTicket{ticketID: ticketID})
}

// Claim asks for all currently pending tickets. The reply channel must have
// capacity for one message; the result is dropped if the caller has gone away.
func (s *Session) Claim(reply chan<- types.Session) {
	if !s.inbox.Push(claimTickets{reply: reply}) {
		sendReply(reply, types.NewSessionWithTickets(s.lobbyID, nil).WithSessionID(s.id))
	}
}

// Close requests a forced shutdown, as issued by an external caller.
func (s *Session) Close() {
	s.inbox.Push(closeSession{fromLobby: false})
}

// AcknowledgeClose is the lobby's confirmation that it will route no further
// tickets here. Only the owning lobby may call it.
func (s *Session) AcknowledgeClose() {
	s.inbox.Push(closeSession{fromLobby: true})
}

func (s *Session) run() {
	defer close(s.done)
	defer s.lobby.SessionStopped(s)

	timer := time.NewTimer(s.heartbeat)
	defer timer.Stop()

	for {
		select {
		case <-s.inbox.C():
			for {
				msg, ok := s.inbox.Pop()
				if !ok {
					break
				}
				s.dispatch(msg)
				if s.stage.Current() == stage.Stopped {
					s.drain()
					return
				}
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.heartbeat)
		case <-timer.C:
			s.heartbeatExpired()
			if s.stage.Current() == stage.Stopped {
				s.drain()
				return
			}
			timer.Reset(s.heartbeat)
		}
	}
}

func (s *Session) dispatch(msg any) {
	switch s.stage.Current() {
	case stage.Running:
		s.receiveRunning(msg)
	case stage.Filled:
		s.receiveFilled(msg)
	case stage.Closing:
		s.receiveClosing(msg)
	case stage.Stopped:
	}
}

// receiveRunning handles messages while the session has slots remaining and
// is accepting new tickets.
func (s *Session) receiveRunning(msg any) {
	switch m := msg.(type) {
	case addTicket:
		s.upsertTicket(m.ticket)
		if s.remainingSlots == len(s.pending) {
			s.lobby.NotifyClose(s)
			s.stage.Store(stage.Filled)
		}
	case cancelTicket:
		delete(s.pending, m.ticketID)
	case claimTickets:
		s.issueTickets(m.reply)
		if s.remainingSlots <= 0 {
			s.lobby.NotifyClose(s)
			s.stage.Store(stage.Closing)
		}
	case closeSession:
		s.lobby.NotifyClose(s)
		s.returnTickets()
		s.stage.Store(stage.Closing)
	}
}

// receiveFilled handles messages while capacity is exhausted and the session
// waits for the final claim.
func (s *Session) receiveFilled(msg any) {
	switch m := msg.(type) {
	case addTicket:
		// No space left; let the lobby re-route it.
		s.lobby.Submit(m.ticket)
	case cancelTicket:
		delete(s.pending, m.ticketID)
		if s.remainingSlots > len(s.pending) {
			// A slot freed up, so the close request no longer stands.
			s.safeToClose = false
			s.lobby.Reopen(s)
			s.stage.Store(stage.Running)
		}
	case claimTickets:
		s.issueTickets(m.reply)
		if s.safeToClose {
			s.stop()
			return
		}
		s.stage.Store(stage.Closing)
	case closeSession:
		if m.fromLobby {
			// The lobby acknowledged and won't send us any more tickets.
			s.safeToClose = true
			return
		}
		s.lobby.NotifyClose(s)
		s.returnTickets()
		s.stage.Store(stage.Closing)
	}
}

// receiveClosing handles messages while the session shuts down. Nothing is
// accepted anymore; the close acknowledgment triggers termination.
func (s *Session) receiveClosing(msg any) {
	switch m := msg.(type) {
	case addTicket:
		s.lobby.Submit(m.ticket)
	case claimTickets:
		sendReply(m.reply, types.NewSessionWithTickets(s.lobbyID, nil).WithSessionID(s.id))
	case closeSession:
		s.stop()
	}
}

func (s *Session) heartbeatExpired() {
	switch s.stage.Current() {
	case stage.Running, stage.Filled:
		s.log.Info().Int("pending", len(s.pending)).Msg("session heartbeat expired, returning tickets")
		s.lobby.NotifyClose(s)
		s.returnTickets()
		s.stage.Store(stage.Closing)
	case stage.Closing:
		// The acknowledgment never arrived. Terminate anyway so a dead lobby
		// cannot pin this goroutine forever.
		s.log.Warn().Msg("session closing without lobby acknowledgment")
		s.stop()
	case stage.Stopped:
	}
}

func (s *Session) upsertTicket(ticket types.Ticket) {
	if existing, ok := s.pending[ticket.ID]; ok {
		ticket.RegisteredAt = existing.RegisteredAt
	}
	s.pending[ticket.ID] = ticket
}

// issueTickets hands all pending tickets to the claimant and consumes the
// matching slots.
func (s *Session) issueTickets(reply chan<- types.Session) {
	tickets := make([]types.Ticket, 0, len(s.pending))
	for _, ticket := range s.pending {
		tickets = append(tickets, ticket)
	}
	s.remainingSlots -= len(tickets)
	clear(s.pending)
	sendReply(reply, types.NewSessionWithTickets(s.lobbyID, tickets).WithSessionID(s.id))
}

func (s *Session) returnTickets() {
	for _, ticket := range s.pending {
		s.lobby.Submit(ticket)
	}
	clear(s.pending)
}

func (s *Session) stop() {
	s.stage.Store(stage.Stopped)
	s.inbox.Close()
}

// drain empties the mailbox after termination so late claims get an empty
// answer and late tickets find their way back to the lobby.
func (s *Session) drain() {
	for {
		msg, ok := s.inbox.Pop()
		if !ok {
			return
		}
		switch m := msg.(type) {
		case addTicket:
			s.lobby.Submit(m.ticket)
		case claimTickets:
			sendReply(m.reply, types.NewSessionWithTickets(s.lobbyID, nil).WithSessionID(s.id))
		}
	}
}

func sendReply(reply chan<- types.Session, result types.Session) {
	if reply == nil {
		return
	}
	select {
	case reply <- result:
	default:
	}
}
