package event

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Broadcaster matches service.Broadcaster
type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, payload interface{}) error
}

// Recorder receives the outcome of each mirrored publish
type Recorder interface {
	RecordExternalCall(target, operation string, duration time.Duration, err error)
}

// Message is the body published for every broadcast
type Message struct {
	Room    string      `json:"room"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// Mirror delivers to next and then publishes the same event to the bus.
// Bus failures are logged and never change the result of the broadcast.
type Mirror struct {
	next      Broadcaster
	publisher Publisher
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewMirror wraps next. recorder may be nil.
func NewMirror(next Broadcaster, publisher Publisher, recorder Recorder, logger *zap.Logger) *Mirror {
	return &Mirror{
		next:      next,
		publisher: publisher,
		recorder:  recorder,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *Mirror) Broadcast(ctx context.Context, room, event string, payload interface{}) error {
	err := m.next.Broadcast(ctx, room, event, payload)

	msg := Message{Room: room, Event: event, Payload: payload, SentAt: m.now().UTC()}
	start := time.Now()
	pubErr := m.publisher.Publish(ctx, RoutingKeyPrefix+event, msg)
	if m.recorder != nil {
		m.recorder.RecordExternalCall("rabbitmq", "publish", time.Since(start), pubErr)
	}
	if pubErr != nil {
		m.logger.Warn("Failed to mirror event",
			zap.String("room", room),
			zap.String("event", event),
			zap.Error(pubErr),
		)
	}
	return err
}
