// Package scheduler runs the periodic scrape and process triggers on one
// cooperative cron service, replacing ad hoc sleep-loop threads. Jobs
// never overlap themselves and a panicking job cannot take the process
// down.
package scheduler

import (
	"context"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "github.com/partho5/CryptoXPoster/pkg/logx"
)

// Config controls the scheduler service.
type Config struct {
	Enabled  bool
	Timezone string // IANA TZ, e.g. "Asia/Jakarta"
}

// Job is one scheduled trigger. Spec accepts cron expressions
// (5- or 6-field) and @every descriptors.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error

	running sync.Mutex
}

type Service struct {
	mu sync.Mutex

	log    logx.Logger
	cfg    Config
	parser cron.Parser

	c    *cron.Cron
	jobs []*Job

	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg: cfg,
		log: log,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Add registers jobs. Jobs with an empty spec are ignored. Must be
// called before Start.
func (s *Service) Add(jobs ...*Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range jobs {
		if j == nil || strings.TrimSpace(j.Spec) == "" {
			continue
		}
		if _, err := s.parser.Parse(j.Spec); err != nil {
			return err
		}
		s.jobs = append(s.jobs, j)
	}
	return nil
}

func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.c != nil {
		return nil
	}

	loc := s.loadLocationLocked()
	s.runCtx, s.runCancel = context.WithCancel(ctx)
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(loc))

	for _, j := range s.jobs {
		job := j
		if _, err := s.c.AddFunc(job.Spec, func() { s.runJob(job) }); err != nil {
			s.runCancel()
			s.c = nil
			return err
		}
	}
	s.c.Start()
	s.log.Info("scheduler started",
		logx.Int("jobs", len(s.jobs)),
		logx.String("tz", loc.String()))
	return nil
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		// stop continues in background
	}
}

// Apply swaps the config at runtime. A timezone or enable change
// restarts the cron with the registered jobs intact.
func (s *Service) Apply(ctx context.Context, cfg Config) {
	s.mu.Lock()
	changed := s.cfg.Enabled != cfg.Enabled ||
		strings.TrimSpace(s.cfg.Timezone) != strings.TrimSpace(cfg.Timezone)
	s.cfg = cfg
	s.mu.Unlock()

	if !changed {
		return
	}
	s.Stop(ctx)
	if err := s.Start(ctx); err != nil {
		s.log.Error("scheduler restart failed", logx.Err(err))
	}
}

func (s *Service) runJob(j *Job) {
	// Overlap policy: skip while the previous run is still going.
	if !j.running.TryLock() {
		s.log.Debug("job still running; skipping", logx.String("job", j.Name))
		return
	}
	defer j.running.Unlock()

	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scheduled job",
				logx.String("job", j.Name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())))
		}
	}()

	start := time.Now()
	if err := j.Run(ctx); err != nil {
		s.log.Warn("job finished with error",
			logx.String("job", j.Name),
			logx.Duration("took", time.Since(start)),
			logx.Err(err))
		return
	}
	s.log.Debug("job finished",
		logx.String("job", j.Name),
		logx.Duration("took", time.Since(start)))
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; using local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
