// Package realtime fans events out to connections grouped in rooms.
// The hub knows nothing about the transport: a connection is a buffered
// outbound queue that a websocket write pump (or a test) drains.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"progman-api/internal/dto"
)

// DefaultBufferSize is the number of frames queued per connection before it is dropped
const DefaultBufferSize = 256

// Recorder receives hub metrics
type Recorder interface {
	SetWSConnections(n int)
	RecordDroppedConsumer()
}

type nopRecorder struct{}

func (nopRecorder) SetWSConnections(int) {}
func (nopRecorder) RecordDroppedConsumer() {}

// Conn is one subscriber. It belongs to at most one project room and at
// most one comment-page room.
type Conn struct {
	ID          string
	send        chan []byte
	projectRoom string
	commentRoom string

	projectID uint
	page      dto.CommentPageScope
}

// Outbound is drained by the transport. It is closed when the hub drops the connection.
func (c *Conn) Outbound() <-chan []byte {
	return c.send
}

// Hub tracks connections and room membership
type Hub struct {
	mu       sync.RWMutex
	conns    map[*Conn]struct{}
	rooms    map[string]map[*Conn]struct{}
	bufSize  int
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Hub
type Option func(*Hub)

// WithBufferSize overrides DefaultBufferSize
func WithBufferSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

// WithRecorder attaches a metrics recorder
func WithRecorder(r Recorder) Option {
	return func(h *Hub) {
		if r != nil {
			h.recorder = r
		}
	}
}

func NewHub(logger *zap.Logger, opts ...Option) *Hub {
	h := &Hub{
		conns:    make(map[*Conn]struct{}),
		rooms:    make(map[string]map[*Conn]struct{}),
		bufSize:  DefaultBufferSize,
		logger:   logger,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a new connection that belongs to no room yet
func (h *Hub) Register() *Conn {
	c := &Conn{
		ID:   uuid.NewString(),
		send: make(chan []byte, h.bufSize),
	}

	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()

	h.recorder.SetWSConnections(n)
	h.logger.Debug("Connection registered", zap.String("conn_id", c.ID))
	return c
}

// Unregister leaves every room and closes the outbound queue. It is safe to call twice.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; !ok {
		h.mu.Unlock()
		return
	}
	h.leaveLocked(c, c.projectRoom)
	h.leaveLocked(c, c.commentRoom)
	c.projectRoom, c.commentRoom = "", ""
	c.projectID, c.page = 0, dto.CommentPageScope{}
	delete(h.conns, c)
	close(c.send)
	n := len(h.conns)
	h.mu.Unlock()

	h.recorder.SetWSConnections(n)
	h.logger.Debug("Connection unregistered", zap.String("conn_id", c.ID))
}

// JoinProject moves c into the project's room, leaving its previous project room
func (h *Hub) JoinProject(c *Conn, projectID uint) string {
	room := ProjectRoom(projectID)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return room
	}
	if c.projectRoom != room {
		h.leaveLocked(c, c.projectRoom)
		h.joinLocked(c, room)
		c.projectRoom = room
	}
	c.projectID = projectID
	return room
}

// JoinCommentPage moves c into the page's room, leaving its previous page room
func (h *Hub) JoinCommentPage(c *Conn, projectID uint, date string) string {
	room := CommentRoom(projectID, date)
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return room
	}
	if c.commentRoom != room {
		h.leaveLocked(c, c.commentRoom)
		h.joinLocked(c, room)
		c.commentRoom = room
	}
	c.page = dto.CommentPageScope{ProjectID: projectID, Date: date}
	return room
}

// LeaveCommentPage removes c from its comment-page room, if any
func (h *Hub) LeaveCommentPage(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, c.commentRoom)
	c.commentRoom = ""
	c.page = dto.CommentPageScope{}
}

// Rooms returns the project and comment-page rooms of c
func (h *Hub) Rooms(c *Conn) (project, comment string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.projectRoom, c.commentRoom
}

// Scope returns the project c last joined and the comment page it is on.
// Zero values mean it has joined none.
func (h *Hub) Scope(c *Conn) (projectID uint, page dto.CommentPageScope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.projectID, c.page
}

func (h *Hub) joinLocked(c *Conn, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) leaveLocked(c *Conn, room string) {
	if room == "" {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Deliver queues frame for every member of room and returns how many accepted it.
// Members whose queue is full are unregistered.
func (h *Hub) Deliver(room string, frame []byte) int {
	var slow []*Conn
	delivered := 0

	h.mu.RLock()
	for c := range h.rooms[room] {
		select {
		case c.send <- frame:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow consumer", zap.String("conn_id", c.ID), zap.String("room", room))
		h.recorder.RecordDroppedConsumer()
		h.Unregister(c)
	}
	return delivered
}

// Send queues frame for c alone. It reports false when c is gone or its queue is full.
func (h *Hub) Send(c *Conn, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.conns[c]; !ok {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// RoomSize returns the number of members of room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ConnCount returns the number of registered connections
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Encode builds the wire frame of an event
func Encode(event string, payload interface{}) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	return json.Marshal(dto.Envelope{Event: event, Data: data})
}
