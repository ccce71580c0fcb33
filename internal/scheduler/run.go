package scheduler

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shaharia-lab/ntfy-go/internal/config"
	"github.com/shaharia-lab/ntfy-go/internal/metrics"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
)

// run publishes one occurrence of sched with concurrency limiting. The
// message is rebuilt on every run so ${ENV:...} references pick up changes.
func (s *Scheduler) run(sched config.Schedule) {
	s.semaphore <- struct{}{}
	defer func() { <-s.semaphore }()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.RunTimeout)
	defer cancel()

	p, err := sched.Message.Payload()
	if err != nil {
		s.logger.Error("building scheduled message", "schedule", sched.Name, "error", err)
		s.countRun(ctx, sched.Name, metrics.OutcomeInvalid)
		return
	}

	entry, err := s.cfg.Publisher.Publish(ctx, storage.SourceScheduler, p)
	if err != nil {
		// The publish service already logged and recorded the failure.
		s.logger.Debug("scheduled publish failed", "schedule", sched.Name, "error", err)
		s.countRun(ctx, sched.Name, metrics.OutcomeFailed)
		return
	}
	s.logger.Debug("scheduled publish sent", "schedule", sched.Name, "id", entry.ID)
	s.countRun(ctx, sched.Name, metrics.OutcomeSent)
}

func (s *Scheduler) countRun(ctx context.Context, name, outcome string) {
	s.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("schedule", name),
		attribute.String("outcome", outcome),
	))
}
