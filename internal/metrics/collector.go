package metrics

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Counter returns the current size of one table
type Counter func(ctx context.Context) (int64, error)

// Counts are the table counters sampled by the collector
type Counts struct {
	Projects     Counter
	Schedules    Counter
	CommentPages Counter
}

// BusinessMetricsCollector samples table sizes periodically
type BusinessMetricsCollector struct {
	counts   Counts
	metrics  *Metrics
	logger   *zap.Logger
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewBusinessMetricsCollector creates a new collector
func NewBusinessMetricsCollector(counts Counts, metrics *Metrics, logger *zap.Logger, interval time.Duration) *BusinessMetricsCollector {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &BusinessMetricsCollector{
		counts:   counts,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start collects once immediately and then every interval
func (c *BusinessMetricsCollector) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.done:
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *BusinessMetricsCollector) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *BusinessMetricsCollector) collect() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic in business metrics collection", zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.sample(ctx, "projects", c.counts.Projects, c.metrics.SetProjectsTotal)
	c.sample(ctx, "schedules", c.counts.Schedules, c.metrics.SetSchedulesTotal)
	c.sample(ctx, "comment_pages", c.counts.CommentPages, c.metrics.SetCommentPagesTotal)
}

func (c *BusinessMetricsCollector) sample(ctx context.Context, table string, count Counter, set func(int64)) {
	if count == nil {
		return
	}
	n, err := count(ctx)
	if err != nil {
		c.logger.Error("Failed to count table", zap.String("table", table), zap.Error(err))
		return
	}
	set(n)
}
