package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"signal-engine/src/models"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *PushServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			// Send initial state on connect
			s.stateMutex.RLock()
			if s.latestState != nil {
				client.send <- s.snapshotLocked(nil)
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}

		case message := <-s.broadcast:
			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// BroadcastSignal folds one pre-close signal into the state and pushes it
// to every connected client.
func (s *PushServer) BroadcastSignal(session models.MSession, signal models.MSignalResult) {
	s.stateMutex.Lock()
	s.latestState.Sessions[session.ID] = session
	s.latestState.Signals[session.ID] = signal
	s.latestState.Timestamp = time.Now().Unix()
	s.stateMutex.Unlock()

	s.broadcast <- &models.MLatestData{
		Type:      "SIGNAL",
		Sessions:  map[string]models.MSession{session.ID: session},
		Signals:   map[string]models.MSignalResult{session.ID: signal},
		Timestamp: time.Now().Unix(),
	}
}

// -----------------------------------------------------------------------------

// UpdateSession folds a session lifecycle change into the state. Stopped
// sessions are dropped from the snapshot along with their last signal.
func (s *PushServer) UpdateSession(session models.MSession) {
	s.stateMutex.Lock()
	if session.Status == models.SessionStopped {
		delete(s.latestState.Sessions, session.ID)
		delete(s.latestState.Signals, session.ID)
	} else {
		s.latestState.Sessions[session.ID] = session
	}
	s.latestState.Timestamp = time.Now().Unix()
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// BroadcastFeedStatus tells every connected client whether the upstream feed
// is up. Session state is untouched; schedulers keep running on cached data.
func (s *PushServer) BroadcastFeedStatus(connected bool) {
	msgType := "FEED_DOWN"
	if connected {
		msgType = "FEED_UP"
	}
	s.broadcast <- &models.MLatestData{
		Type:      msgType,
		Timestamp: time.Now().Unix(),
	}
}

// -----------------------------------------------------------------------------
// Snapshot Helpers
// -----------------------------------------------------------------------------

// snapshotLocked copies the current state, optionally filtered to a set of
// session ids. Caller must hold stateMutex (read side is enough).
func (s *PushServer) snapshotLocked(sessionIDs []string) *models.MLatestData {
	snap := &models.MLatestData{
		Type:      "INITIAL",
		Sessions:  make(map[string]models.MSession),
		Signals:   make(map[string]models.MSignalResult),
		Timestamp: s.latestState.Timestamp,
	}

	if len(sessionIDs) == 0 {
		for id, sess := range s.latestState.Sessions {
			snap.Sessions[id] = sess
		}
		for id, sig := range s.latestState.Signals {
			snap.Signals[id] = sig
		}
		return snap
	}

	for _, id := range sessionIDs {
		if sess, ok := s.latestState.Sessions[id]; ok {
			snap.Sessions[id] = sess
		}
		if sig, ok := s.latestState.Signals[id]; ok {
			snap.Signals[id] = sig
		}
	}
	return snap
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *PushServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *PushServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	s.stateMutex.RLock()
	response := s.snapshotLocked(cmd.SessionIDs)
	s.stateMutex.RUnlock()

	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
	}
}
