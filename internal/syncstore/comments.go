package syncstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"progman-api/internal/autosave"
	"progman-api/internal/dto"
)

// CommentAPI is the part of the HTTP client the comment board uses
type CommentAPI interface {
	GetComments(ctx context.Context, projectID uint, date string) ([]dto.CommentResponse, error)
	UpsertComment(ctx context.Context, req dto.UpsertCommentRequest) (*dto.CommentResponse, error)
	ListProgress(ctx context.Context, projectID uint, date string) ([]dto.CategoryProgressResponse, error)
	UpsertProgress(ctx context.Context, projectID uint, req dto.UpsertProgressRequest) (*dto.CategoryProgressResponse, error)
}

// CommentBoard holds one dated comment page. Typing goes into drafts that
// are saved per (owner, date) after a quiet period; a draft is shown in
// place of the server's body until the save of that exact text succeeds.
type CommentBoard struct {
	api      CommentAPI
	autosave *autosave.Scheduler
	logger   *zap.Logger

	mu        sync.RWMutex
	projectID uint
	date      string
	comments  map[string]dto.CommentResponse
	progress  map[string]string
	drafts    map[string]string
	lastErr   error
}

// NewCommentBoard creates a board whose drafts are saved delay after the last edit
func NewCommentBoard(api CommentAPI, delay time.Duration, logger *zap.Logger) *CommentBoard {
	b := &CommentBoard{
		api:      api,
		logger:   logger,
		comments: make(map[string]dto.CommentResponse),
		progress: make(map[string]string),
		drafts:   make(map[string]string),
	}
	b.autosave = autosave.New(delay, logger,
		autosave.WithSaveTimeout(15*time.Second),
		autosave.WithErrorHandler(func(_ string, err error) { b.setErr(err) }),
	)
	return b
}

// Open loads the page of date. A page that does not exist yields an error
// for which client.IsNotFound is true.
func (b *CommentBoard) Open(ctx context.Context, projectID uint, date string) error {
	comments, err := b.api.GetComments(ctx, projectID, date)
	if err != nil {
		return err
	}
	progress, err := b.api.ListProgress(ctx, projectID, date)
	if err != nil {
		return err
	}

	if err := b.autosave.Flush(ctx); err != nil {
		b.logger.Warn("Pending drafts could not be saved", zap.Error(err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.projectID = projectID
	b.date = date
	b.drafts = make(map[string]string)
	b.setCommentsLocked(comments)
	b.setProgressLocked(progress)
	return nil
}

// Date is the open page date
func (b *CommentBoard) Date() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.date
}

// Edit buffers body for owner and restarts owner's save timer
func (b *CommentBoard) Edit(owner, body string) error {
	b.mu.Lock()
	projectID, date := b.projectID, b.date
	b.drafts[owner] = body
	b.mu.Unlock()

	return b.autosave.Schedule(commentKey(owner, date), func(ctx context.Context) error {
		saved, err := b.api.UpsertComment(ctx, dto.UpsertCommentRequest{
			ProjectID:   projectID,
			Owner:       owner,
			Body:        body,
			CommentDate: date,
		})
		if err != nil {
			return err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.date != date || b.projectID != projectID {
			return nil
		}
		b.comments[owner] = *saved
		if b.drafts[owner] == body {
			delete(b.drafts, owner)
		}
		return nil
	})
}

// SetStatus buffers a category status and restarts its save timer
func (b *CommentBoard) SetStatus(category, status string) error {
	b.mu.Lock()
	projectID, date := b.projectID, b.date
	b.progress[category] = status
	b.mu.Unlock()

	return b.autosave.Schedule(progressKey(category, date), func(ctx context.Context) error {
		_, err := b.api.UpsertProgress(ctx, projectID, dto.UpsertProgressRequest{
			Category:     category,
			ProgressDate: date,
			Status:       status,
		})
		return err
	})
}

// Body is what owner's field shows: the draft when there is one, the server body otherwise
func (b *CommentBoard) Body(owner string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if d, ok := b.drafts[owner]; ok {
		return d
	}
	return b.comments[owner].Body
}

// Status is the status of category on the open page, empty when unset
func (b *CommentBoard) Status(category string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.progress[category]
}

// Saving reports whether owner has a draft that is not yet on the server,
// including while its upsert is in flight
func (b *CommentBoard) Saving(owner string) bool {
	return b.autosave.IsSaving(commentKey(owner, b.Date()))
}

func (b *CommentBoard) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastErr
}

// Watch applies comments-updated and progress-updated frames of the open
// date until ctx ends or src closes.
func (b *CommentBoard) Watch(ctx context.Context, src EventSource) error {
	events := src.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-events:
			if !ok {
				return nil
			}
			b.handleEvent(env)
		}
	}
}

func (b *CommentBoard) handleEvent(env dto.Envelope) {
	switch env.Event {
	case dto.EventCommentsUpdated:
		var p dto.CommentsUpdatedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			b.logger.Warn("Invalid comments-updated frame", zap.Error(err))
			return
		}
		b.mu.Lock()
		if p.Date == b.date {
			b.setCommentsLocked(p.Comments)
		}
		b.mu.Unlock()
	case dto.EventProgressUpdated:
		var p dto.ProgressUpdatedPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			b.logger.Warn("Invalid progress-updated frame", zap.Error(err))
			return
		}
		b.mu.Lock()
		if p.Date == b.date {
			b.setProgressLocked(p.ProgressList)
		}
		b.mu.Unlock()
	}
}

// Close saves pending drafts
func (b *CommentBoard) Close(ctx context.Context) error {
	return b.autosave.Close(ctx)
}

func (b *CommentBoard) setCommentsLocked(list []dto.CommentResponse) {
	b.comments = make(map[string]dto.CommentResponse, len(list))
	for _, c := range list {
		b.comments[c.Owner] = c
	}
}

func (b *CommentBoard) setProgressLocked(list []dto.CategoryProgressResponse) {
	b.progress = make(map[string]string, len(list))
	for _, p := range list {
		b.progress[p.Category] = p.Status
	}
}

func (b *CommentBoard) setErr(err error) {
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()
}

func commentKey(owner, date string) string {
	return "comment|" + owner + "|" + date
}

func progressKey(category, date string) string {
	return "progress|" + category + "|" + date
}
