// Package matchmaking matches waiting players into game sessions by network
// latency similarity, relaxing the fit over time so nobody waits forever. It
// embeds its own HTTP server; a host program calls New followed by Serve.
package matchmaking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/leafley/rovio-match-making/events"
	"github.com/leafley/rovio-match-making/lobby"
	"github.com/leafley/rovio-match-making/registry"
	"github.com/leafley/rovio-match-making/server"
	"github.com/leafley/rovio-match-making/stage"
	"github.com/leafley/rovio-match-making/statsd"
	"github.com/leafley/rovio-match-making/telemetry"
	"github.com/leafley/rovio-match-making/types"
)

// Service is the synchronous boundary over the asynchronous lobby and session
// units. All methods are safe for concurrent use.
type Service struct {
	cfg       Config
	registry  *registry.Registry
	hub       *events.Hub
	server    *server.Server
	telemetry *telemetry.Manager
	stage     *stage.Manager
}

func New(opts ...Option) (*Service, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}

	s := &Service{
		cfg:      cfg,
		registry: registry.New(),
		stage:    stage.NewManager(stage.Running),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.cfg.applyLogLevel(); err != nil {
		return nil, err
	}

	if s.cfg.MatchmakingStatsdAddress != "" {
		if err := statsd.Init(s.cfg.MatchmakingStatsdAddress, nil); err != nil {
			log.Warn().Err(err).Msg("continuing without statsd")
		}
	}

	if s.cfg.MatchmakingTraceEnabled || s.cfg.MatchmakingProfilerEnabled {
		tm, err := telemetry.New(s.cfg.MatchmakingTraceEnabled, s.cfg.MatchmakingProfilerEnabled)
		if err != nil {
			return nil, eris.Wrap(err, "failed to start telemetry")
		}
		s.telemetry = tm
	}

	s.hub = events.NewHub()

	srv, err := server.New(s, s.hub, server.WithPort(s.cfg.MatchmakingPort))
	if err != nil {
		return nil, err
	}
	s.server = srv

	return s, nil
}

// Serve runs the HTTP server until the context is canceled, then shuts the
// whole service down.
func (s *Service) Serve(ctx context.Context) error {
	serveErr := s.server.Serve(ctx)
	return eris.Wrap(errors.Join(serveErr, s.Shutdown()), "")
}

// Shutdown stops every lobby (closing their sessions) and the event stream.
// It is idempotent.
func (s *Service) Shutdown() error {
	if !s.stage.CompareAndSwap(stage.Running, stage.Stopped) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.requestTimeout())
	defer cancel()
	err := s.registry.CloseAll(ctx)

	s.hub.Shutdown()
	if s.telemetry != nil {
		err = errors.Join(err, s.telemetry.Shutdown())
	}
	return err
}

// QueueTicket submits a new matchmaking request and returns the stored
// ticket, including its generated id and registration time.
func (s *Service) QueueTicket(ctx context.Context, lobbyID uuid.UUID, latency float64) (types.Ticket, error) {
	ticket, err := types.NewTicket(lobbyID, latency)
	if err != nil {
		return types.Ticket{}, err
	}
	stored, err := s.submit(ctx, ticket)
	if err != nil {
		return types.Ticket{}, err
	}
	statsd.EmitTicketStat("queued")
	s.emit(events.TicketQueued(stored))
	return stored, nil
}

// UpdateTicket refreshes the latency of an existing ticket. The stored
// registration time is preserved so waiting time keeps accruing.
func (s *Service) UpdateTicket(ctx context.Context, lobbyID uuid.UUID, ticketID uuid.UUID, latency float64) (types.Ticket, error) {
	ticket, err := types.NewTicketWithID(lobbyID, ticketID, latency)
	if err != nil {
		return types.Ticket{}, err
	}
	stored, err := s.submit(ctx, ticket)
	if err != nil {
		return types.Ticket{}, err
	}
	statsd.EmitTicketStat("updated")
	return stored, nil
}

func (s *Service) submit(ctx context.Context, ticket types.Ticket) (types.Ticket, error) {
	l, err := s.registry.LobbyOrCreate(ticket.LobbyID)
	if err != nil {
		return types.Ticket{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return l.SubmitTicket(ctx, ticket)
}

// CancelTicket withdraws a ticket wherever it currently lives. Cancelling in
// an unknown lobby is a no-op.
func (s *Service) CancelTicket(_ context.Context, lobbyID uuid.UUID, ticketID uuid.UUID) error {
	if lobbyID == uuid.Nil {
		return types.ErrInvalidLobbyID
	}
	if ticketID == uuid.Nil {
		return types.ErrInvalidTicketID
	}
	l, ok := s.registry.Lobby(lobbyID)
	if !ok {
		return nil
	}
	l.CancelTicket(ticketID)
	statsd.EmitTicketStat("cancelled")
	s.emit(events.TicketCancelled(lobbyID.String(), ticketID.String()))
	return nil
}

// CreateSession forms a session from the lobby's pool and returns the
// immediate, possibly partial, result. When the result under-fills
// maxPlayers, the returned session id stays claimable while the remainder is
// collected.
func (s *Service) CreateSession(
	ctx context.Context,
	lobbyID uuid.UUID,
	minPlayers, maxPlayers int,
	maxWaitTime time.Duration,
) (types.Session, error) {
	req, err := lobby.NewCreateSessionRequest(lobbyID, minPlayers, maxPlayers, maxWaitTime, s.cfg.heartbeat())
	if err != nil {
		return types.Session{}, err
	}
	l, err := s.registry.LobbyOrCreate(lobbyID)
	if err != nil {
		return types.Session{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	result, err := l.CreateSession(ctx, req)
	if err != nil {
		return types.Session{}, err
	}
	statsd.EmitSessionStat("created")
	s.emit(events.SessionCreated(result))
	return result, nil
}

// ClaimSession collects the tickets an open session has accumulated since the
// last claim. Unknown lobby or session ids yield an empty result.
func (s *Service) ClaimSession(ctx context.Context, lobbyID uuid.UUID, sessionID uuid.UUID) (types.Session, error) {
	if lobbyID == uuid.Nil {
		return types.Session{}, types.ErrInvalidLobbyID
	}
	l, ok := s.registry.Lobby(lobbyID)
	if !ok {
		return types.NewSessionWithTickets(lobbyID, nil).WithSessionID(sessionID), nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	result, err := l.ClaimSession(ctx, sessionID)
	if err != nil {
		return types.Session{}, err
	}
	statsd.EmitSessionStat("claimed")
	return result, nil
}

// CloseSession forces an open session to shut down and return its pending
// tickets to the pool. Closing an unknown session is a no-op.
func (s *Service) CloseSession(_ context.Context, lobbyID uuid.UUID, sessionID uuid.UUID) error {
	if lobbyID == uuid.Nil {
		return types.ErrInvalidLobbyID
	}
	l, ok := s.registry.Lobby(lobbyID)
	if !ok {
		return nil
	}
	l.CloseSession(sessionID)
	statsd.EmitSessionStat("closed")
	s.emit(events.SessionClosed(lobbyID.String(), sessionID.String()))
	return nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.requestTimeout())
}

func (s *Service) emit(event events.Event) {
	if err := s.hub.Emit(event); err != nil {
		log.Warn().Err(err).Msg("failed to emit event")
	}
}
