package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"obsidion/internal/config"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single run of a job
const jobTimeout = 2 * time.Minute

// Job is one periodic task. Returned errors are logged, the schedule continues.
type Job func(ctx context.Context) error

// Scheduler handles periodic execution of scheduled tasks
type Scheduler struct {
	config  *config.Config
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a new scheduler instance. Specs accept the standard
// five field syntax and descriptors such as "@hourly" or "@every 30m".
func NewScheduler(cfg *config.Config) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		config: cfg,
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// RegisterFunc schedules fn under name, replacing an earlier job of the same name
func (s *Scheduler) RegisterFunc(spec, name string, fn Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.entries[name] = id
	return nil
}

// Jobs lists the registered job names
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}

func (s *Scheduler) run(name string, fn Job) {
	defer func() {
		if r := recover(); r != nil {
			s.config.Logger.Errorf("Scheduled job %s panicked: %v", name, r)
		}
	}()

	ctx, cancel := context.WithTimeout(s.ctx, jobTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		s.config.Logger.Errorf("Scheduled job %s failed: %v", name, err)
	}
}

// Start begins running registered jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.config.Logger.Infof("Scheduler started with %d jobs", len(s.Jobs()))
}

// Stop halts the schedule, cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.config.Logger.Info("Scheduler stopped")
}
