package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"agenda-backend/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// cronLogger routes robfig/cron output into zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

type ScheduledEntry struct {
	Name string    `json:"name"`
	Spec string    `json:"spec"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev,omitempty"`
}

// Scheduler fires each named job on its own cron trigger. A job that is still
// running when its next trigger fires is skipped for that trigger; other jobs
// are unaffected.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
	specs   map[string]string
}

func NewScheduler() *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(config.CronParser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger)),
		),
		entries: make(map[string]cron.EntryID),
		specs:   make(map[string]string),
	}
}

func (s *Scheduler) Register(name, spec string, job func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cronLogger{})).Then(cron.FuncJob(job))
	id, err := s.cron.AddJob(spec, wrapped)
	if err != nil {
		return fmt.Errorf("schedule %q (%s): %w", name, spec, err)
	}
	s.entries[name] = id
	s.specs[name] = spec
	log.Info().Str("job", name).Str("spec", spec).Msg("Job scheduled")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("jobs", len(s.entries)).Msg("Reminder scheduler started")
}

// Stop waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Reminder scheduler stopped")
}

func (s *Scheduler) Entries() []ScheduledEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ScheduledEntry, 0, len(s.entries))
	for name, id := range s.entries {
		e := s.cron.Entry(id)
		out = append(out, ScheduledEntry{Name: name, Spec: s.specs[name], Next: e.Next, Prev: e.Prev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
