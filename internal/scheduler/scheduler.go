// Package scheduler publishes recurring messages defined in the schedules file.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/shaharia-lab/ntfy-go/internal/config"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
	"github.com/shaharia-lab/ntfy-go/payload"
)

const meterName = "github.com/shaharia-lab/ntfy-go/internal/scheduler"

// ErrNotFound is returned by RunNow for an unknown schedule name.
var ErrNotFound = errors.New("schedule not found")

// Publisher is the subset of service.PublishService the scheduler needs.
type Publisher interface {
	Publish(ctx context.Context, source string, p *payload.Payload) (*storage.PublishLogEntry, error)
}

// Config holds the scheduler configuration.
type Config struct {
	Schedules      []config.Schedule
	Publisher      Publisher
	Logger         *slog.Logger
	MaxConcurrency int
	// RunTimeout bounds a single publish. Defaults to one minute.
	RunTimeout time.Duration
	// MeterProvider records scheduler.runs. Defaults to the global provider.
	MeterProvider metric.MeterProvider
}

// Info describes a scheduled job.
type Info struct {
	Name    string    `json:"name"`
	Every   string    `json:"every,omitempty"`
	Cron    string    `json:"cron,omitempty"`
	Topic   string    `json:"topic"`
	NextRun time.Time `json:"next_run"`
}

type job struct {
	id       uuid.UUID
	schedule config.Schedule
}

// Scheduler manages scheduled publishes using gocron.
type Scheduler struct {
	cron      gocron.Scheduler
	cfg       Config
	jobs      map[string]job // schedule name → gocron job
	mu        sync.Mutex
	semaphore chan struct{}
	logger    *slog.Logger
	runs      metric.Int64Counter
}

// New creates a new Scheduler.
func New(cfg Config) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 3
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = time.Minute
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	runs, err := mp.Meter(meterName).Int64Counter("ntfy.scheduler.runs",
		metric.WithDescription("Scheduled publish runs by schedule and outcome."),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating run counter: %w", err)
	}

	return &Scheduler{
		cron:      cron,
		cfg:       cfg,
		jobs:      make(map[string]job),
		semaphore: make(chan struct{}, maxConc),
		logger:    logger,
		runs:      runs,
	}, nil
}

// Start schedules every configured entry and starts the gocron scheduler.
func (s *Scheduler) Start(_ context.Context) error {
	for _, sched := range s.cfg.Schedules {
		if err := s.Schedule(sched); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("publish scheduler started", "schedules", len(s.jobs))
	return nil
}

// Stop shuts down the gocron scheduler and waits for running publishes.
func (s *Scheduler) Stop() error {
	return s.cron.Shutdown()
}

// Schedule adds or replaces a schedule by name. A replacement that fails
// to build leaves the existing schedule in place.
func (s *Scheduler) Schedule(sched config.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, err := buildJobDefinition(sched)
	if err != nil {
		return fmt.Errorf("building job definition for schedule %q: %w", sched.Name, err)
	}

	// The cron expression is only parsed by NewJob, so the old job is
	// removed after the new one is accepted.
	j, err := s.cron.NewJob(def,
		gocron.NewTask(func() { s.run(sched) }),
		gocron.WithName(sched.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling %q: %w", sched.Name, err)
	}

	s.removeLocked(sched.Name)
	s.jobs[sched.Name] = job{id: j.ID(), schedule: sched}
	s.logger.Info("publish scheduled", "schedule", sched.Name, "topic", sched.Message.Topic,
		"every", sched.Every.String(), "cron", sched.Cron)
	return nil
}

// Unschedule removes a schedule. Unknown names are ignored.
func (s *Scheduler) Unschedule(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(name)
}

func (s *Scheduler) removeLocked(name string) {
	j, ok := s.jobs[name]
	if !ok {
		return
	}
	if err := s.cron.RemoveJob(j.id); err != nil {
		s.logger.Warn("failed to remove job", "schedule", name, "error", err)
	}
	delete(s.jobs, name)
}

// RunNow triggers a schedule immediately, outside its regular cadence.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	for _, cj := range s.cron.Jobs() {
		if cj.ID() == j.id {
			return cj.RunNow()
		}
	}
	return fmt.Errorf("%w: %q", ErrNotFound, name)
}

// List returns the current schedules sorted by name.
func (s *Scheduler) List() []Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[uuid.UUID]time.Time, len(s.jobs))
	for _, cj := range s.cron.Jobs() {
		if t, err := cj.NextRun(); err == nil {
			next[cj.ID()] = t
		}
	}

	out := make([]Info, 0, len(s.jobs))
	for name, j := range s.jobs {
		info := Info{
			Name:    name,
			Cron:    j.schedule.Cron,
			Topic:   j.schedule.Message.Topic,
			NextRun: next[j.id],
		}
		if j.schedule.Every > 0 {
			info.Every = j.schedule.Every.String()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Name < out[k].Name })
	return out
}

// buildJobDefinition converts a schedule into a gocron JobDefinition.
func buildJobDefinition(sched config.Schedule) (gocron.JobDefinition, error) {
	switch {
	case sched.Every > 0 && sched.Cron == "":
		return gocron.DurationJob(sched.Every), nil
	case sched.Cron != "" && sched.Every == 0:
		return gocron.CronJob(sched.Cron, false), nil
	default:
		return nil, fmt.Errorf("set exactly one of every or cron")
	}
}
