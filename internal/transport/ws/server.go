// Package ws is the websocket transport adapter: it accepts connections,
// translates JSON messages into session and combat calls, and fans combat
// envelopes out to every connection in a room. It is glue around the engine,
// not part of it.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// CombatService is the orchestrator surface the transport needs.
type CombatService interface {
	StartCombat(roomID string) bool
	HandleAction(uid string, intent combat.Intent)
	CombatInRoom(roomID string) *combat.Combat
}

const (
	// sendBuffer is the per-connection outbound queue; envelopes beyond it
	// are dropped for that connection rather than blocking the broadcast.
	sendBuffer = 64

	writeTimeout = 5 * time.Second
)

// Server accepts websocket connections and implements the orchestrator's
// Broadcaster interface. Safe for concurrent use.
type Server struct {
	sessions *session.Manager
	svc      CombatService
	logger   *zap.Logger

	mu    sync.RWMutex
	conns map[string]*client // uid → connection
}

type client struct {
	uid  string
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// NewServer creates a websocket Server.
//
// Precondition: sessions, svc, and logger must be non-nil.
func NewServer(sessions *session.Manager, svc CombatService, logger *zap.Logger) *Server {
	return &Server{
		sessions: sessions,
		svc:      svc,
		logger:   logger,
		conns:    make(map[string]*client),
	}
}

// ServeHTTP upgrades the request and runs the connection until the client
// disconnects. Each connection gets a fresh UID; the player joins rooms
// explicitly via joinRoom.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	uid := uuid.NewString()
	c := &client{
		uid:  uid,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	s.conns[uid] = c
	s.mu.Unlock()
	s.logger.Debug("connection opened", zap.String("uid", uid))

	ctx := r.Context()
	go s.writePump(ctx, conn, c)
	s.readPump(ctx, conn, c)

	c.close()
	s.mu.Lock()
	delete(s.conns, uid)
	s.mu.Unlock()
	if err := s.sessions.RemovePlayer(uid); err == nil {
		s.logger.Debug("player removed on disconnect", zap.String("uid", uid))
	}
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	s.logger.Debug("connection closed", zap.String("uid", uid))
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		select {
		case data := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Debug("write failed", zap.String("uid", c.uid), zap.Error(err))
				c.close()
				return
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, c *client) {
	for {
		select {
		case <-c.done:
			return
		default:
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		s.dispatch(c, data)
	}
}

func (s *Server) dispatch(c *client, data []byte) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Debug("malformed message dropped", zap.String("uid", c.uid), zap.Error(err))
		return
	}

	switch msg.Type {
	case TypeJoinRoom:
		s.handleJoin(c, msg)
	case TypeLeaveRoom:
		if err := s.sessions.RemovePlayer(c.uid); err != nil {
			s.logger.Debug("leave without join", zap.String("uid", c.uid))
		}
	case TypeStartCombat:
		room := s.sessions.RoomOf(c.uid)
		if room == "" {
			s.logger.Debug("startCombat before join", zap.String("uid", c.uid))
			return
		}
		s.svc.StartCombat(room)
	case TypePerformAction:
		if msg.Action == nil {
			s.logger.Debug("performAction without action", zap.String("uid", c.uid))
			return
		}
		s.svc.HandleAction(c.uid, *msg.Action)
	default:
		s.logger.Debug("unknown message type",
			zap.String("uid", c.uid),
			zap.String("type", msg.Type),
		)
	}
}

func (s *Server) handleJoin(c *client, msg Inbound) {
	if msg.RoomID == "" || msg.PlayerName == "" {
		s.logger.Debug("join missing room or name", zap.String("uid", c.uid))
		return
	}

	if _, ok := s.sessions.GetPlayer(c.uid); ok {
		if _, err := s.sessions.MovePlayer(c.uid, msg.RoomID); err != nil {
			s.logger.Warn("move failed", zap.String("uid", c.uid), zap.Error(err))
			return
		}
	} else if _, err := s.sessions.AddPlayer(c.uid, msg.PlayerName, msg.Class, msg.RoomID); err != nil {
		s.logger.Warn("join failed", zap.String("uid", c.uid), zap.Error(err))
		return
	}
	s.logger.Info("player joined room",
		zap.String("uid", c.uid),
		zap.String("name", msg.PlayerName),
		zap.String("room", msg.RoomID),
	)

	// A late joiner sees the room's current encounter immediately.
	if snap := s.svc.CombatInRoom(msg.RoomID); snap != nil {
		s.sendTo(c, Envelope{Type: TypeCombatUpdated, RoomID: msg.RoomID, Combat: snap, Result: snap.Result})
	}
}

// CombatInitiated implements the Broadcaster interface.
func (s *Server) CombatInitiated(roomID string, snap *combat.Combat) {
	s.broadcast(roomID, Envelope{Type: TypeCombatInitiated, RoomID: roomID, Combat: snap})
}

// CombatUpdated implements the Broadcaster interface.
func (s *Server) CombatUpdated(roomID string, snap *combat.Combat) {
	s.broadcast(roomID, Envelope{Type: TypeCombatUpdated, RoomID: roomID, Combat: snap})
}

// CombatEnded implements the Broadcaster interface.
func (s *Server) CombatEnded(roomID string, snap *combat.Combat) {
	s.broadcast(roomID, Envelope{Type: TypeCombatEnded, RoomID: roomID, Combat: snap, Result: snap.Result})
}

func (s *Server) broadcast(roomID string, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("marshalling envelope", zap.Error(err))
		return
	}

	for _, uid := range s.sessions.PlayerUIDsInRoom(roomID) {
		s.mu.RLock()
		c, ok := s.conns[uid]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		select {
		case c.send <- data:
		default:
			s.logger.Warn("send buffer full, dropping envelope",
				zap.String("uid", uid),
				zap.String("room", roomID),
			)
		}
	}
}

func (s *Server) sendTo(c *client, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("marshalling envelope", zap.Error(err))
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
