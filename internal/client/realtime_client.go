package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"progman-api/internal/dto"
)

const (
	realtimeWriteWait = 10 * time.Second
	eventBufferSize   = 64
)

// RealtimeClient is a websocket connection to the server's real-time channel.
// Incoming frames are delivered on Events until the connection ends.
type RealtimeClient struct {
	conn    *websocket.Conn
	events  chan dto.Envelope
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once

	errMu sync.Mutex
	err   error

	logger *zap.Logger
}

// DialRealtime connects to wsURL, e.g. ws://localhost:8000/api/ws
func DialRealtime(ctx context.Context, wsURL string, logger *zap.Logger) (*RealtimeClient, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}

	c := &RealtimeClient{
		conn:   conn,
		events: make(chan dto.Envelope, eventBufferSize),
		done:   make(chan struct{}),
		logger: logger,
	}
	go c.readLoop()
	return c, nil
}

func (c *RealtimeClient) readLoop() {
	defer close(c.events)
	for {
		var env dto.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			select {
			case <-c.done:
			default:
				c.setErr(err)
				c.logger.Debug("Realtime connection closed", zap.Error(err))
			}
			return
		}
		select {
		case c.events <- env:
		case <-c.done:
			return
		}
	}
}

// Events delivers server frames. It is closed when the connection ends.
func (c *RealtimeClient) Events() <-chan dto.Envelope {
	return c.events
}

// Err is the read error that ended the connection, if any
func (c *RealtimeClient) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *RealtimeClient) setErr(err error) {
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
}

// Send writes one event frame
func (c *RealtimeClient) Send(event string, payload interface{}) error {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", event, err)
		}
		data = raw
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(realtimeWriteWait))
	return c.conn.WriteJSON(dto.Envelope{Event: event, Data: data})
}

// JoinProject subscribes to schedule snapshots. The server answers with the current snapshot.
func (c *RealtimeClient) JoinProject(projectID uint) error {
	return c.Send(dto.EventJoinProject, dto.JoinProjectPayload{ProjectID: projectID})
}

// JoinCommentPage subscribes to comment and progress updates of one page date
func (c *RealtimeClient) JoinCommentPage(projectID uint, date string) error {
	return c.Send(dto.EventJoinCommentPage, dto.CommentPageScope{ProjectID: projectID, Date: date})
}

func (c *RealtimeClient) LeaveCommentPage() error {
	return c.Send(dto.EventLeaveComment, nil)
}

// RequestSnapshot asks the server to re-broadcast a project's schedule to its room
func (c *RealtimeClient) RequestSnapshot(projectID uint) error {
	return c.Send(dto.EventUpdateSchedule, dto.UpdateSchedulePayload{ProjectID: projectID})
}

func (c *RealtimeClient) RefreshComments(projectID uint, date string) error {
	return c.Send(dto.EventRefreshComments, dto.CommentPageScope{ProjectID: projectID, Date: date})
}

// Close sends a close frame and releases the connection
func (c *RealtimeClient) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(realtimeWriteWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
