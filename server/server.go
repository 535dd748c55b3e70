// Package server exposes the matchmaking boundary operations over HTTP. It is
// a thin translation layer: request shaping lives in the handlers, semantics
// live behind the Matchmaker interface.
package server

import (
	"context"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/leafley/rovio-match-making/events"
	"github.com/leafley/rovio-match-making/server/handler"
)

const (
	defaultPort     = "4040"
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	app  *fiber.App
	mm   handler.Matchmaker
	hub  *events.Hub
	port string
}

// New returns an HTTP server with handlers for every boundary operation.
func New(mm handler.Matchmaker, hub *events.Hub, opts ...Option) (*Server, error) {
	if mm == nil {
		return nil, eris.New("server requires a non-nil matchmaker")
	}

	app := fiber.New(fiber.Config{
		Network:               "tcp", // Enable server listening on both ipv4 & ipv6 (default: ipv4 only)
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Use(cors.New())

	s := &Server{
		app:  app,
		mm:   mm,
		hub:  hub,
		port: defaultPort,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()

	return s, nil
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Serve serves the application, blocking the calling goroutine until the
// context is canceled or the server fails.
func (s *Server) Serve(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		port := os.Getenv("MATCHMAKING_PORT")
		if port == "" {
			port = s.port
		}

		log.Info().Msgf("Starting HTTP server at port %s", port)
		if err := s.app.Listen(":" + port); err != nil {
			serverErr <- eris.Wrap(err, "error starting http server")
		}
	}()

	select {
	case err := <-serverErr:
		return eris.Wrap(err, "server encountered an error")
	case <-ctx.Done():
		if err := s.shutdown(); err != nil {
			return eris.Wrap(err, "error shutting down server")
		}
	}

	return nil
}

// shutdown gracefully stops the fiber server. The event hub is owned by the
// service and shut down there.
func (s *Server) shutdown() error {
	log.Info().Msg("Shutting down server")

	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return eris.Wrap(err, "error shutting down server")
	}

	log.Info().Msg("Successfully shut down server")
	return nil
}

func (s *Server) setupRoutes() {
	// Route: /health
	s.app.Get("/health", handler.GetHealth())

	// Route: /events
	if s.hub != nil {
		s.app.Use("/events", handler.WebSocketUpgrader)
		s.app.Get("/events", handler.WebSocketEvents(s.hub.NewWebSocketHandler()))
	}

	// Route: /lobbies/...
	lobbies := s.app.Group("/lobbies/:lobbyId")
	lobbies.Post("/tickets", handler.PostTicket(s.mm))
	lobbies.Put("/tickets/:ticketId", handler.PutTicket(s.mm))
	lobbies.Delete("/tickets/:ticketId", handler.DeleteTicket(s.mm))
	lobbies.Post("/sessions", handler.PostSession(s.mm))
	lobbies.Get("/sessions/:sessionId", handler.GetSession(s.mm))
	lobbies.Delete("/sessions/:sessionId", handler.DeleteSession(s.mm))
}
