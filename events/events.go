// Package events broadcasts matchmaking life-cycle events to websocket
// subscribers. A single goroutine owns the connection set; handlers talk to
// it over channels only.
package events

import (
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/leafley/rovio-match-making/codec"
	"github.com/leafley/rovio-match-making/types"
)

const writeDeadline = 5 * time.Second

const (
	KindTicketQueued    = "ticket_queued"
	KindTicketCancelled = "ticket_cancelled"
	KindSessionCreated  = "session_created"
	KindSessionClosed   = "session_closed"
)

// Event is the wire shape of one matchmaking notification.
type Event struct {
	Kind      string `json:"kind"`
	LobbyID   string `json:"lobbyId"`
	TicketID  string `json:"ticketId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Matched   int    `json:"matched,omitempty"`
}

func TicketQueued(ticket types.Ticket) Event {
	return Event{Kind: KindTicketQueued, LobbyID: ticket.LobbyID.String(), TicketID: ticket.ID.String()}
}

func TicketCancelled(lobbyID, ticketID string) Event {
	return Event{Kind: KindTicketCancelled, LobbyID: lobbyID, TicketID: ticketID}
}

func SessionCreated(result types.Session) Event {
	return Event{
		Kind:      KindSessionCreated,
		LobbyID:   result.LobbyID.String(),
		SessionID: result.SessionID.String(),
		Matched:   len(result.Tickets),
	}
}

func SessionClosed(lobbyID, sessionID string) Event {
	return Event{Kind: KindSessionClosed, LobbyID: lobbyID, SessionID: sessionID}
}

// connAndDone pairs a websocket connection with a channel the hub uses to
// signal the web framework that the (un)registration went through.
type connAndDone struct {
	connection *websocket.Conn
	doneChan   chan struct{}
}

type Hub struct {
	connections     map[*websocket.Conn]bool
	broadcast       chan []byte
	register        chan connAndDone
	unregister      chan connAndDone
	connectionCount chan chan int
	shutdown        chan struct{}
	stopped         chan struct{}
	isRunning       atomic.Bool
}

func NewHub() *Hub {
	h := &Hub{
		connections:     map[*websocket.Conn]bool{},
		broadcast:       make(chan []byte),
		register:        make(chan connAndDone),
		unregister:      make(chan connAndDone),
		connectionCount: make(chan chan int),
		shutdown:        make(chan struct{}),
		stopped:         make(chan struct{}),
	}
	go h.run()
	return h
}

// Emit broadcasts the event to every connected subscriber. A hub that has
// been shut down drops events silently.
func (h *Hub) Emit(event Event) error {
	data, err := codec.Encode(event)
	if err != nil {
		return eris.Wrap(err, "failed to encode event")
	}
	select {
	case h.broadcast <- data:
	case <-h.stopped:
	}
	return nil
}

func (h *Hub) RegisterConnection(conn *websocket.Conn) {
	done := make(chan struct{})
	select {
	case h.register <- connAndDone{connection: conn, doneChan: done}:
		<-done
	case <-h.stopped:
	}
}

func (h *Hub) UnregisterConnection(conn *websocket.Conn) {
	done := make(chan struct{})
	select {
	case h.unregister <- connAndDone{connection: conn, doneChan: done}:
		<-done
	case <-h.stopped:
	}
}

func (h *Hub) ConnectionCount() int {
	countChan := make(chan int)
	select {
	case h.connectionCount <- countChan:
		return <-countChan
	case <-h.stopped:
		return 0
	}
}

// Shutdown closes all subscriber connections and stops the hub goroutine. It
// blocks until the goroutine has exited.
func (h *Hub) Shutdown() {
	select {
	case h.shutdown <- struct{}{}:
	case <-h.stopped:
	}
	<-h.stopped
}

func (h *Hub) run() {
	if !h.isRunning.CompareAndSwap(false, true) {
		return
	}
	defer close(h.stopped)
	defer h.isRunning.Store(false)

	dropConnection := func(conn *websocket.Conn) {
		if _, ok := h.connections[conn]; ok {
			delete(h.connections, conn)
			if err := conn.Close(); err != nil {
				log.Logger.Error().Err(err).Msg("failed to close websocket connection")
			}
		}
	}

	for {
		select {
		case countChan := <-h.connectionCount:
			countChan <- len(h.connections)
		case reg := <-h.register:
			h.connections[reg.connection] = true
			close(reg.doneChan)
		case unreg := <-h.unregister:
			dropConnection(unreg.connection)
			close(unreg.doneChan)
		case data := <-h.broadcast:
			for conn := range h.connections {
				if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
					log.Logger.Error().Err(err).Msg("dropping websocket connection")
					dropConnection(conn)
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Logger.Error().Err(err).Msg("dropping websocket connection")
					dropConnection(conn)
				}
			}
		case <-h.shutdown:
			for conn := range h.connections {
				dropConnection(conn)
			}
			return
		}
	}
}

// NewWebSocketHandler returns the fiber websocket handler for event
// subscribers. Inbound messages are discarded; the stream is one-way.
func (h *Hub) NewWebSocketHandler() func(conn *websocket.Conn) {
	return func(conn *websocket.Conn) {
		h.RegisterConnection(conn)
		defer h.UnregisterConnection(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
