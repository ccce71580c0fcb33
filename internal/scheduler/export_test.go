package scheduler

import "github.com/shaharia-lab/ntfy-go/internal/config"

// ExportedRun exposes the private run method for external tests.
func (s *Scheduler) ExportedRun(sched config.Schedule) {
	s.run(sched)
}
