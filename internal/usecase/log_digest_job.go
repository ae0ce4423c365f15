package usecase

import (
	"context"

	applogger "ElemPulse/pkg/logger"
	"ElemPulse/pkg/queue"
)

// TypeErrorDigest is the queue message type for aggregated error logs.
const TypeErrorDigest = "error_digest"

// ErrorDigestJob drains aggregated error-log batches flushed by the log
// collector and surfaces them once at warn level. Warn entries do not feed
// the collector, so this cannot loop.
type ErrorDigestJob struct {
	l *applogger.Logger
}

func NewErrorDigestJob(l *applogger.Logger) *ErrorDigestJob {
	return &ErrorDigestJob{l: l}
}

func (j *ErrorDigestJob) Name() string { return "error-digest" }
func (j *ErrorDigestJob) Type() string { return TypeErrorDigest }

func (j *ErrorDigestJob) Handle(ctx context.Context, payload interface{}) error {
	entries, err := queue.ParsePayload[[]applogger.AggregatedLogEntry](payload)
	if err != nil {
		return err
	}
	for _, e := range *entries {
		j.l.Warn("error digest",
			applogger.String("message", e.Message),
			applogger.String("caller", e.Caller),
			applogger.Int("count", e.Count),
		)
	}
	return nil
}

var _ queue.Job = (*ErrorDigestJob)(nil)
