package realtime

import (
	"context"

	"go.uber.org/zap"
)

// Publisher hands an encoded frame to every member of a room, possibly across instances
type Publisher interface {
	Publish(ctx context.Context, room string, frame []byte) error
}

// LocalPublisher delivers to this process's hub only
type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(_ context.Context, room string, frame []byte) error {
	p.hub.Deliver(room, frame)
	return nil
}

// BroadcastRecorder counts broadcasts by event and result
type BroadcastRecorder interface {
	RecordBroadcast(event, result string)
}

// Fanout encodes events and publishes them to rooms
type Fanout struct {
	pub      Publisher
	logger   *zap.Logger
	recorder BroadcastRecorder
}

func NewFanout(pub Publisher, logger *zap.Logger, recorder BroadcastRecorder) *Fanout {
	return &Fanout{pub: pub, logger: logger, recorder: recorder}
}

// Broadcast sends event to room. Failures are returned for logging only;
// the write that triggered the broadcast has already been committed.
func (f *Fanout) Broadcast(ctx context.Context, room, event string, payload interface{}) error {
	frame, err := Encode(event, payload)
	if err != nil {
		f.record(event, "encode_error")
		return err
	}
	if err := f.pub.Publish(ctx, room, frame); err != nil {
		f.record(event, "error")
		f.logger.Warn("Broadcast failed",
			zap.String("room", room),
			zap.String("event", event),
			zap.Error(err),
		)
		return err
	}
	f.record(event, "success")
	return nil
}

func (f *Fanout) record(event, result string) {
	if f.recorder != nil {
		f.recorder.RecordBroadcast(event, result)
	}
}
