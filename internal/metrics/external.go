package metrics

import (
	"context"
	"errors"
	"strings"
	"time"
)

// RecordExternalCall records a call to S3, the message broker or redis
func (m *Metrics) RecordExternalCall(target, operation string, duration time.Duration, err error) {
	m.safeExecute("RecordExternalCall", func() {
		result := "success"
		if err != nil {
			result = "error"
			m.ExternalErrors.WithLabelValues(target, errorType(err)).Inc()
		}
		m.ExternalRequestsTotal.WithLabelValues(target, operation, result).Inc()
		m.ExternalRequestDuration.WithLabelValues(target, operation).Observe(duration.Seconds())
	})
}

// errorType categorizes network errors
func errorType(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "connection_refused"
	case strings.Contains(msg, "no such host"):
		return "dns_error"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return "timeout"
	case strings.Contains(msg, "EOF"), strings.Contains(msg, "connection reset"):
		return "connection_reset"
	case strings.Contains(msg, "TLS"), strings.Contains(msg, "certificate"):
		return "tls_error"
	case strings.Contains(msg, "AccessDenied"), strings.Contains(msg, "403"):
		return "forbidden"
	}
	return "network_error"
}
