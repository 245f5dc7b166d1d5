package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"progman-api/internal/repository"
)

// PageBackfillJob creates the missing comment page of every (project, date)
// that already has comments, so pages written before pages existed show up in listings.
type PageBackfillJob struct {
	commentRepo repository.CommentRepository
	recorder    BackfillRecorder
	clock       func() time.Time
	timeout     time.Duration
	logger      *zap.Logger
}

// BackfillRecorder counts created pages
type BackfillRecorder interface {
	AddPagesBackfilled(n int64)
}

// NewPageBackfillJob creates a new PageBackfillJob instance. recorder may be nil.
func NewPageBackfillJob(
	commentRepo repository.CommentRepository,
	recorder BackfillRecorder,
	logger *zap.Logger,
) *PageBackfillJob {
	return &PageBackfillJob{
		commentRepo: commentRepo,
		recorder:    recorder,
		clock:       time.Now,
		timeout:     time.Minute,
		logger:      logger,
	}
}

// Name identifies the job in logs
func (j *PageBackfillJob) Name() string {
	return "comment_page_backfill"
}

// Run executes the backfill once
func (j *PageBackfillJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.RunContext(ctx); err != nil {
		j.logger.Error("Comment page backfill failed", zap.Error(err))
	}
}

// RunContext executes the backfill and returns the number of created pages
func (j *PageBackfillJob) RunContext(ctx context.Context) (int64, error) {
	start := time.Now()

	created, err := j.commentRepo.BackfillPages(ctx, j.clock().UTC())
	if err != nil {
		return 0, err
	}

	if created > 0 && j.recorder != nil {
		j.recorder.AddPagesBackfilled(created)
	}

	j.logger.Info("Comment page backfill completed",
		zap.Int64("created", created),
		zap.Duration("duration", time.Since(start)),
	)
	return created, nil
}
