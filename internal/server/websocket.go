package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"planning-poker/internal/poker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	leaveTimeout   = 5 * time.Second
)

// wsClient is one browser tab following a room. Writes are serialized
// because gorilla connections allow a single concurrent writer.
type wsClient struct {
	id   string
	code string
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (c *wsClient) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) Close(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	_ = c.conn.Close()
}

type wsHub struct {
	mu    sync.Mutex
	rooms map[string]map[string]*wsClient
}

func newWSHub() *wsHub {
	return &wsHub{rooms: make(map[string]map[string]*wsClient)}
}

func (h *wsHub) Add(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[client.code]
	if group == nil {
		group = make(map[string]*wsClient)
		h.rooms[client.code] = group
	}
	group[client.id] = client
}

func (h *wsHub) Remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[client.code]
	if group == nil {
		return
	}
	delete(group, client.id)
	if len(group) == 0 {
		delete(h.rooms, client.code)
	}
}

// Count reports live connections for a room.
func (h *wsHub) Count(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[code])
}

func (h *wsHub) CloseAll(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*wsClient, 0)
	for _, group := range h.rooms {
		for _, client := range group {
			clients = append(clients, client)
		}
	}
	h.mu.Unlock()
	for _, client := range clients {
		if ctx.Err() != nil {
			return
		}
		client.Close(websocket.CloseGoingAway, "server shutting down")
	}
}

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}
}

// checkOrigin accepts same-host pages and the configured CORS origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.CORSOrigins) == 0 {
		return true
	}
	if parsed, err := url.Parse(origin); err == nil && strings.EqualFold(parsed.Host, r.Host) {
		return true
	}
	for _, allowed := range s.cfg.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// handleRoomWebsocket streams the caller's view of a room. A participant_id
// makes the connection that participant's presence: it heartbeats while
// open and leaves the room when the socket closes.
func (s *Server) handleRoomWebsocket(c *gin.Context) {
	code, ok := bindRoom(c)
	if !ok {
		return
	}
	var query roomQuery
	if !bindQuery(c, &query) {
		return
	}
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := &wsClient{
		id:   uuid.NewString(),
		code: code,
		conn: conn,
	}
	log := s.log.With("conn_id", client.id, "room_code", client.code, "participant_id", query.ParticipantID)

	if err := s.admit(c.Request.Context(), client.code, query.ParticipantID); err != nil {
		_, message := statusFor(err)
		_ = client.Send(gin.H{"error": message})
		client.Close(websocket.ClosePolicyViolation, message)
		log.Infow("ws rejected", "error", err)
		return
	}

	s.ws.Add(client)
	sess, err := s.poker.Open(client.code, query.ParticipantID, func(view poker.View) {
		if err := client.Send(view); err != nil {
			log.Debugw("ws send failed", "error", err)
		}
	})
	if err != nil {
		s.ws.Remove(client)
		_, message := statusFor(err)
		_ = client.Send(gin.H{"error": message})
		client.Close(websocket.ClosePolicyViolation, message)
		return
	}

	log.Infow("ws connected", "remote", c.Request.RemoteAddr)
	go s.readWS(client, sess)
	go func() {
		<-sess.Done()
		client.Close(websocket.CloseNormalClosure, string(sess.View().Status))
	}()
}

// admit checks the room is live and, for members, that the participant is
// still in it. Watchers without a participant id are admitted to any code.
func (s *Server) admit(ctx context.Context, code, participantID string) error {
	if participantID == "" {
		return nil
	}
	room, err := s.poker.Check(ctx, code)
	if err != nil {
		return err
	}
	if _, ok := room.Players[participantID]; !ok {
		return poker.ErrParticipantNotFound
	}
	return nil
}

func (s *Server) readWS(client *wsClient, sess *poker.Session) {
	defer func() {
		s.ws.Remove(client)
		client.Close(websocket.CloseNormalClosure, "")
		ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
		defer cancel()
		if err := sess.Close(ctx); err != nil {
			s.log.Warnw("leave on disconnect failed", "conn_id", client.id, "room_code", client.code, "error", err)
		}
	}()
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			s.log.Debugw("ws disconnected", "conn_id", client.id, "room_code", client.code, "error", err)
			return
		}
	}
}
