// Package autosave debounces saves per key: scheduling a key again before its
// quiet period ends cancels the pending save and restarts the wait, so only
// the last value is written.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SaveFunc writes one buffered value
type SaveFunc func(ctx context.Context) error

// ErrClosed is returned by Schedule after Close
var ErrClosed = errors.New("autosave: scheduler closed")

type task struct {
	timer *time.Timer
	save  SaveFunc
	gen   uint64
}

// Scheduler is a per-key table of pending saves
type Scheduler struct {
	delay   time.Duration
	timeout time.Duration

	mu       sync.Mutex
	pending  map[string]*task
	inflight map[string]int
	gen      uint64
	closed   bool
	running  sync.WaitGroup

	onError func(key string, err error)
	onSaved func(key string)
	logger  *zap.Logger
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithSaveTimeout bounds each save. Zero means no bound.
func WithSaveTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// WithErrorHandler is called when a save fails. Failed saves are not retried.
func WithErrorHandler(fn func(key string, err error)) Option {
	return func(s *Scheduler) {
		s.onError = fn
	}
}

// WithSavedHandler is called after each successful save
func WithSavedHandler(fn func(key string)) Option {
	return func(s *Scheduler) {
		s.onSaved = fn
	}
}

func New(delay time.Duration, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		delay:    delay,
		pending:  make(map[string]*task),
		inflight: make(map[string]int),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule replaces any pending save of key with save and restarts its quiet period
func (s *Scheduler) Schedule(key string, save SaveFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if t, ok := s.pending[key]; ok {
		t.timer.Stop()
	}

	s.gen++
	t := &task{save: save, gen: s.gen}
	gen := s.gen
	t.timer = time.AfterFunc(s.delay, func() { s.fire(key, gen) })
	s.pending[key] = t
	return nil
}

// fire runs the save of key unless it was replaced or cancelled since gen was scheduled
func (s *Scheduler) fire(key string, gen uint64) {
	s.mu.Lock()
	t, ok := s.pending[key]
	if !ok || t.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	s.inflight[key]++
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	defer s.finish(key)
	s.run(context.Background(), key, t.save)
}

// finish clears the in-flight mark that fire or Flush set for key
func (s *Scheduler) finish(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[key]--; s.inflight[key] <= 0 {
		delete(s.inflight, key)
	}
}

func (s *Scheduler) run(ctx context.Context, key string, save SaveFunc) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := save(ctx); err != nil {
		s.logger.Warn("Autosave failed", zap.String("key", key), zap.Error(err))
		if s.onError != nil {
			s.onError(key, err)
		}
		return err
	}
	if s.onSaved != nil {
		s.onSaved(key)
	}
	return nil
}

// Cancel drops the pending save of key and reports whether there was one
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.pending[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.pending, key)
	return true
}

// IsPending reports whether key has an unflushed save
func (s *Scheduler) IsPending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// IsSaving reports whether key has a save waiting or in flight, so it stays
// true until the write has returned
func (s *Scheduler) IsSaving(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, pending := s.pending[key]
	return pending || s.inflight[key] > 0
}

// Pending is the number of unflushed saves
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush runs every pending save now, in the caller's goroutine, and returns the first error
func (s *Scheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	tasks := make(map[string]*task, len(s.pending))
	for key, t := range s.pending {
		t.timer.Stop()
		tasks[key] = t
		s.inflight[key]++
	}
	s.pending = make(map[string]*task)
	s.mu.Unlock()

	var first error
	for key, t := range tasks {
		err := s.run(ctx, key, t.save)
		s.finish(key)
		if err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close flushes pending saves, waits for running ones and rejects new ones
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	err := s.Flush(ctx)

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}
