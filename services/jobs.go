package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"agenda-backend/config"

	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownKind     = errors.New("unknown reminder kind")
	ErrKindDisabled    = errors.New("reminder kind disabled")
	ErrKindUnavailable = errors.New("reminder kind has no runner configured")
	ErrKindRunning     = errors.New("reminder kind already running")
)

const defaultJobTimeout = 4 * time.Minute

// Runner executes one reminder policy.
type Runner interface {
	Run(ctx context.Context, p config.ReminderPolicy) (RunReport, error)
}

// Jobs maps configured kinds to the runner for their mode.
type Jobs struct {
	policies  []config.ReminderPolicy
	calendar  Runner
	generated Runner
	timeout   time.Duration

	mu      sync.Mutex
	last    map[string]RunReport
	running map[string]bool
}

// NewJobs accepts a nil generated runner when no AI backend is configured.
func NewJobs(policies []config.ReminderPolicy, calendar, generated Runner) *Jobs {
	return &Jobs{
		policies:  policies,
		calendar:  calendar,
		generated: generated,
		timeout:   defaultJobTimeout,
		last:      make(map[string]RunReport),
		running:   make(map[string]bool),
	}
}

func (j *Jobs) Policies() []config.ReminderPolicy {
	return j.policies
}

func (j *Jobs) LastReport(kind string) (RunReport, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	r, ok := j.last[kind]
	return r, ok
}

func (j *Jobs) runner(p config.ReminderPolicy) Runner {
	if p.Mode == config.ModeGenerated {
		return j.generated
	}
	return j.calendar
}

// Run executes kind now. Scheduled and manual runs share one busy flag per
// kind, so a second caller gets ErrKindRunning instead of a parallel run.
func (j *Jobs) Run(ctx context.Context, kind string) (RunReport, error) {
	var (
		policy config.ReminderPolicy
		found  bool
	)
	for _, p := range j.policies {
		if p.Kind == kind {
			policy, found = p, true
			break
		}
	}
	if !found {
		return RunReport{}, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if policy.Disabled {
		return RunReport{}, fmt.Errorf("%w: %s", ErrKindDisabled, kind)
	}
	r := j.runner(policy)
	if r == nil {
		return RunReport{}, fmt.Errorf("%w: %s", ErrKindUnavailable, kind)
	}

	if !j.acquire(kind) {
		return RunReport{}, fmt.Errorf("%w: %s", ErrKindRunning, kind)
	}
	defer j.release(kind)

	report, err := r.Run(ctx, policy)
	j.mu.Lock()
	j.last[kind] = report
	j.mu.Unlock()
	return report, err
}

func (j *Jobs) acquire(kind string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running[kind] {
		return false
	}
	j.running[kind] = true
	return true
}

func (j *Jobs) release(kind string) {
	j.mu.Lock()
	delete(j.running, kind)
	j.mu.Unlock()
}

// Register adds every enabled kind to the scheduler. Errors from a run are
// logged and never reach cron.
func (j *Jobs) Register(s *Scheduler) error {
	for _, p := range j.policies {
		if p.Disabled {
			log.Info().Str("kind", p.Kind).Msg("Reminder kind disabled")
			continue
		}
		if j.runner(p) == nil {
			log.Warn().Str("kind", p.Kind).Msg("Reminder kind has no runner, not scheduled")
			continue
		}
		kind := p.Kind
		err := s.Register(kind, p.CronSpec(), func() {
			ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
			defer cancel()
			_, err := j.Run(ctx, kind)
			switch {
			case errors.Is(err, ErrKindRunning):
				log.Warn().Str("kind", kind).Msg("Previous run still in progress, trigger skipped")
			case err != nil:
				log.Error().Err(err).Str("kind", kind).Msg("Reminder run failed")
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}
