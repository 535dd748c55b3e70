// Package lobby implements the matching domain for one logical game queue. A
// lobby owns the pool of waiting tickets and the set of open sessions it has
// spawned, and processes all messages on a single goroutine, so no lock guards
// the pool itself.
package lobby

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leafley/rovio-match-making/mailbox"
	"github.com/leafley/rovio-match-making/session"
	"github.com/leafley/rovio-match-making/statsd"
	"github.com/leafley/rovio-match-making/types"
)

var (
	ErrInvalidLobbyID    = errors.New("lobby id must not be empty")
	ErrInvalidMinPlayers = errors.New("minimum player count must be greater than zero")
	ErrInvalidMaxPlayers = errors.New("maximum player count cannot be less than the minimum")
	ErrNegativeWaitTime  = errors.New("maximum wait time cannot be negative")
	ErrInvalidHeartbeat  = errors.New("heartbeat must be greater than zero")
	ErrStopped           = errors.New("lobby is stopped")
)

// CreateSessionRequest carries the parameters of one session-formation
// request. Construct it with NewCreateSessionRequest so invalid parameters
// are rejected before they reach the matching pipeline.
type CreateSessionRequest struct {
	LobbyID     uuid.UUID
	MinPlayers  int
	MaxPlayers  int
	MaxWaitTime time.Duration
	Heartbeat   time.Duration
}

func NewCreateSessionRequest(
	lobbyID uuid.UUID,
	minPlayers int,
	maxPlayers int,
	maxWaitTime time.Duration,
	heartbeat time.Duration,
) (CreateSessionRequest, error) {
	if lobbyID == uuid.Nil {
		return CreateSessionRequest{}, ErrInvalidLobbyID
	}
	if minPlayers < 1 {
		return CreateSessionRequest{}, ErrInvalidMinPlayers
	}
	if maxPlayers < minPlayers {
		return CreateSessionRequest{}, ErrInvalidMaxPlayers
	}
	if maxWaitTime < 0 {
		return CreateSessionRequest{}, ErrNegativeWaitTime
	}
	if heartbeat <= 0 {
		return CreateSessionRequest{}, ErrInvalidHeartbeat
	}
	return CreateSessionRequest{
		LobbyID:     lobbyID,
		MinPlayers:  minPlayers,
		MaxPlayers:  maxPlayers,
		MaxWaitTime: maxWaitTime,
		Heartbeat:   heartbeat,
	}, nil
}

// openSession is the lobby-side handle to a spawned session that is still
// accepting tickets. The statistics are the pool's at spawn time and decide
// whether a newly arriving ticket is routed here directly.
type openSession struct {
	sessionID         uuid.UUID
	handle            *session.Session
	meanLatency       float64
	standardDeviation float64
}

type submitTicket struct {
	ticket types.Ticket
	reply  chan<- types.Ticket
}

type cancelTicket struct{ ticketID uuid.UUID }

type createSession struct {
	req   CreateSessionRequest
	reply chan<- types.Session
}

type claimSession struct {
	sessionID uuid.UUID
	reply     chan<- types.Session
}

type closeSession struct{ sessionID uuid.UUID }

type notifyClose struct{ s *session.Session }

type reopenSession struct{ s *session.Session }

type sessionStopped struct{ s *session.Session }

type stopLobby struct{}

type Lobby struct {
	id    uuid.UUID
	inbox *mailbox.Mailbox
	done  chan struct{}
	log   zerolog.Logger

	// Owned by the run goroutine.
	pool     map[uuid.UUID]types.Ticket
	sessions map[uuid.UUID]*session.Session
	open     map[uuid.UUID]openSession
	stopping bool
}

func New(id uuid.UUID) (*Lobby, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidLobbyID
	}
	return &Lobby{
		id:       id,
		inbox:    mailbox.New(),
		done:     make(chan struct{}),
		log:      log.With().Str("lobby_id", id.String()).Logger(),
		pool:     make(map[uuid.UUID]types.Ticket),
		sessions: make(map[uuid.UUID]*session.Session),
		open:     make(map[uuid.UUID]openSession),
	}, nil
}

func (l *Lobby) ID() uuid.UUID { return l.id }

// Done is closed once the lobby goroutine and all of its sessions have exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Start launches the lobby goroutine.
func (l *Lobby) Start() {
	go l.run()
}

// SubmitTicket upserts a ticket and waits for the stored result, which keeps
// the original registration time when the id already exists.
func (l *Lobby) SubmitTicket(ctx context.Context, ticket types.Ticket) (types.Ticket, error) {
	reply := make(chan types.Ticket, 1)
	if !l.inbox.Push(submitTicket{ticket: ticket, reply: reply}) {
		return types.Ticket{}, ErrStopped
	}
	select {
	case stored := <-reply:
		return stored, nil
	case <-ctx.Done():
		return types.Ticket{}, ctx.Err()
	}
}

// CancelTicket removes a ticket from the pool, or broadcasts the cancellation
// to the lobby's sessions when the pool does not hold it.
func (l *Lobby) CancelTicket(ticketID uuid.UUID) {
	l.inbox.Push(cancelTicket{ticketID: ticketID})
}

// CreateSession runs the selection algorithm over the current pool snapshot
// and returns the immediately available result. When the result under-fills
// the requested capacity, a session is spawned to keep collecting; claim it
// later for the rest.
func (l *Lobby) CreateSession(ctx context.Context, req CreateSessionRequest) (types.Session, error) {
	reply := make(chan types.Session, 1)
	if !l.inbox.Push(createSession{req: req, reply: reply}) {
		return types.Session{}, ErrStopped
	}
	select {
	case result := <-reply:
		return result, nil
	case <-ctx.Done():
		return types.Session{}, ctx.Err()
	}
}

// ClaimSession collects the tickets accumulated by an open session. Unknown
// session ids yield an empty result.
func (l *Lobby) ClaimSession(ctx context.Context, sessionID uuid.UUID) (types.Session, error) {
	reply := make(chan types.Session, 1)
	if !l.inbox.Push(claimSession{sessionID: sessionID, reply: reply}) {
		return types.Session{}, ErrStopped
	}
	select {
	case result := <-reply:
		return result, nil
	case <-ctx.Done():
		return types.Session{}, ctx.Err()
	}
}

// CloseSession forces the session to shut down and return its tickets.
// Closing an unknown session is a no-op.
func (l *Lobby) CloseSession(sessionID uuid.UUID) {
	l.inbox.Push(closeSession{sessionID: sessionID})
}

// Stop begins lobby shutdown: every session is force-closed and the lobby
// exits once all of them have terminated. Pending tickets are discarded with
// the lobby, as nothing outlives the process.
func (l *Lobby) Stop() {
	l.inbox.Push(stopLobby{})
}

// Submit implements session.Lobby.
func (l *Lobby) Submit(ticket types.Ticket) {
	l.inbox.Push(submitTicket{ticket: ticket})
}

// NotifyClose implements session.Lobby.
func (l *Lobby) NotifyClose(s *session.Session) {
	l.inbox.Push(notifyClose{s: s})
}

// Reopen implements session.Lobby.
func (l *Lobby) Reopen(s *session.Session) {
	l.inbox.Push(reopenSession{s: s})
}

// SessionStopped implements session.Lobby.
func (l *Lobby) SessionStopped(s *session.Session) {
	l.inbox.Push(sessionStopped{s: s})
}

func (l *Lobby) run() {
	defer close(l.done)
	for {
		<-l.inbox.C()
		for {
			msg, ok := l.inbox.Pop()
			if !ok {
				break
			}
			l.dispatch(msg)
		}
		if l.stopping && len(l.sessions) == 0 {
			l.inbox.Close()
			l.drain()
			return
		}
	}
}

func (l *Lobby) dispatch(msg any) {
	switch m := msg.(type) {
	case submitTicket:
		l.handleSubmit(m)
	case cancelTicket:
		l.handleCancel(m)
	case createSession:
		l.handleCreateSession(m)
	case claimSession:
		l.handleClaim(m)
	case closeSession:
		l.handleClose(m)
	case notifyClose:
		l.handleNotifyClose(m)
	case reopenSession:
		l.handleReopen(m)
	case sessionStopped:
		delete(l.sessions, m.s.ID())
		delete(l.open, m.s.ID())
	case stopLobby:
		l.handleStop()
	}
}

// handleSubmit upserts a known ticket in place, otherwise routes the ticket
// to the first open session whose latency band accepts it, and falls back to
// the pool.
func (l *Lobby) handleSubmit(m submitTicket) {
	ticket := m.ticket
	if existing, ok := l.pool[ticket.ID]; ok {
		ticket.RegisteredAt = existing.RegisteredAt
		l.pool[ticket.ID] = ticket
		replyTicket(m.reply, ticket)
		return
	}

	for _, open := range l.open {
		if withinLatencyBand(open.meanLatency, ticket.Latency) {
			open.handle.AddTicket(ticket)
			replyTicket(m.reply, ticket)
			return
		}
	}

	l.pool[ticket.ID] = ticket
	replyTicket(m.reply, ticket)
}

// withinLatencyBand reports whether an open session accepts the latency. The
// session's own mean serves as the tolerance band, mirroring the original
// matchmaker's routing rule.
func withinLatencyBand(sessionMean, latency float64) bool {
	diff := sessionMean - latency
	if diff < 0 {
		diff = -diff
	}
	return diff <= sessionMean
}

func (l *Lobby) handleCancel(m cancelTicket) {
	if _, ok := l.pool[m.ticketID]; ok {
		delete(l.pool, m.ticketID)
		return
	}
	// The ticket may have moved into one of our sessions; each decides for
	// itself whether it holds the id.
	for _, s := range l.sessions {
		s.CancelTicket(m.ticketID)
	}
}

func (l *Lobby) handleCreateSession(m createSession) {
	if len(l.pool) < m.req.MinPlayers {
		sendSession(m.reply, types.NewSession(l.id))
		return
	}

	start := time.Now()
	tickets := make([]types.Ticket, 0, len(l.pool))
	for _, ticket := range l.pool {
		tickets = append(tickets, ticket)
	}
	stats, ranked := rankTickets(tickets, time.Now().UnixNano(), m.req.MaxWaitTime)

	count := m.req.MaxPlayers
	if len(ranked) < count {
		count = len(ranked)
	}
	matched := make([]types.Ticket, 0, count)
	for _, r := range ranked[:count] {
		delete(l.pool, r.ticket.ID)
		matched = append(matched, r.ticket)
	}
	statsd.EmitSelectionStat(start, len(matched))

	result := types.NewSessionWithTickets(l.id, matched)
	sendSession(m.reply, result)

	if count >= m.req.MaxPlayers || l.stopping {
		return
	}

	// Under-filled: spawn a session to collect the shortfall.
	s, err := session.New(
		l,
		l.id,
		result.SessionID,
		stats.meanLatency,
		stats.standardDeviation,
		m.req.MaxPlayers-count,
		m.req.Heartbeat,
	)
	if err != nil {
		l.log.Error().Err(err).Msg("failed to spawn session")
		return
	}
	s.Start()
	l.sessions[s.ID()] = s
	l.open[s.ID()] = openSession{
		sessionID:         s.ID(),
		handle:            s,
		meanLatency:       stats.meanLatency,
		standardDeviation: stats.standardDeviation,
	}
	l.log.Debug().
		Str("session_id", s.ID().String()).
		Int("matched", count).
		Int("remaining_slots", m.req.MaxPlayers-count).
		Msg("session left open for backfill")
}

func (l *Lobby) handleClaim(m claimSession) {
	if s, ok := l.sessions[m.sessionID]; ok {
		// Forward with the caller's reply channel so the session answers the
		// original asker directly.
		s.Claim(m.reply)
		return
	}
	sendSession(m.reply, types.NewSessionWithTickets(l.id, nil).WithSessionID(m.sessionID))
}

func (l *Lobby) handleClose(m closeSession) {
	if s, ok := l.sessions[m.sessionID]; ok {
		s.Close()
	}
}

// handleNotifyClose is the first half of the close handshake: drop the open
// registration and echo the acknowledgment so the session knows no further
// tickets are in flight from us.
func (l *Lobby) handleNotifyClose(m notifyClose) {
	delete(l.open, m.s.ID())
	m.s.AcknowledgeClose()
}

func (l *Lobby) handleReopen(m reopenSession) {
	if _, ok := l.open[m.s.ID()]; ok {
		return
	}
	l.open[m.s.ID()] = openSession{
		sessionID:         m.s.ID(),
		handle:            m.s,
		meanLatency:       m.s.MeanLatency(),
		standardDeviation: m.s.StandardDeviation(),
	}
}

func (l *Lobby) handleStop() {
	if l.stopping {
		return
	}
	l.stopping = true
	l.log.Debug().Int("sessions", len(l.sessions)).Msg("lobby stopping")
	for _, s := range l.sessions {
		s.Close()
	}
}

// drain answers whatever arrived after shutdown so no asker hangs.
func (l *Lobby) drain() {
	for {
		msg, ok := l.inbox.Pop()
		if !ok {
			return
		}
		switch m := msg.(type) {
		case submitTicket:
			replyTicket(m.reply, m.ticket)
		case createSession:
			sendSession(m.reply, types.NewSession(l.id))
		case claimSession:
			sendSession(m.reply, types.NewSessionWithTickets(l.id, nil).WithSessionID(m.sessionID))
		}
	}
}

func replyTicket(reply chan<- types.Ticket, ticket types.Ticket) {
	if reply == nil {
		return
	}
	select {
	case reply <- ticket:
	default:
	}
}

func sendSession(reply chan<- types.Session, result types.Session) {
	if reply == nil {
		return
	}
	select {
	case reply <- result:
	default:
	}
}
