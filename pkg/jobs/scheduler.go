package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/Abraxas-365/talentledger/pkg/config"
	"github.com/Abraxas-365/talentledger/pkg/errx"
	"github.com/Abraxas-365/talentledger/pkg/lockx"
	"github.com/Abraxas-365/talentledger/pkg/logx"
	"github.com/robfig/cron"
)

// Job is one scheduled unit of work
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler runs jobs on cron specs. Each run holds a named lock for the
// job, so a job never overlaps itself across replicas, and is bounded by the
// configured timeout.
type Scheduler struct {
	cron    *cron.Cron
	locker  lockx.Locker
	lockTTL time.Duration
	timeout time.Duration
	jobs    []Job

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewScheduler(cfg config.SchedulerConfig, locker lockx.Locker) *Scheduler {
	if locker == nil {
		locker = lockx.NoopLocker{}
	}
	return &Scheduler{
		cron:    cron.NewWithLocation(time.UTC),
		locker:  locker,
		lockTTL: cfg.LockTTL,
		timeout: cfg.JobTimeout,
		ctx:     context.Background(),
	}
}

// Register adds a job. A job with an empty spec is skipped.
func (s *Scheduler) Register(job Job) error {
	if job.Spec == "" {
		logx.WithField("job", job.Name).Info("Job disabled: no schedule")
		return nil
	}
	if _, err := cron.Parse(job.Spec); err != nil {
		return errx.Wrap(err, "invalid cron spec", errx.TypeValidation).
			WithDetail("job", job.Name).
			WithDetail("spec", job.Spec)
	}

	if err := s.cron.AddFunc(job.Spec, func() { s.trigger(job) }); err != nil {
		return errx.Wrap(err, "failed to schedule job", errx.TypeInternal).WithDetail("job", job.Name)
	}
	s.jobs = append(s.jobs, job)

	logx.WithFields(logx.Fields{
		"job":  job.Name,
		"spec": job.Spec,
	}).Info("Job scheduled")
	return nil
}

// Jobs returns the registered jobs
func (s *Scheduler) Jobs() []Job {
	return s.jobs
}

// Start begins firing jobs until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	logx.Infof("Scheduler started with %d jobs", len(s.jobs))

	go func() {
		<-s.ctx.Done()
		s.stopCron()
	}()
}

// Stop halts the schedule and waits for running jobs to return
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.stopCron()
	s.wg.Wait()
	logx.Info("Scheduler stopped")
}

func (s *Scheduler) stopCron() {
	s.stopOnce.Do(s.cron.Stop)
}

func (s *Scheduler) trigger(job Job) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.RunJob(ctx, job); err != nil {
		logx.WithField("job", job.Name).Errorf("Job failed: %v", err)
	}
}

// RunJob runs one job now under its lock and timeout. A held lock is not an
// error; the run is skipped.
func (s *Scheduler) RunJob(ctx context.Context, job Job) error {
	lock, ok, err := s.locker.TryLock(ctx, "job:"+job.Name, s.lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		logx.WithField("job", job.Name).Info("Job skipped: already running elsewhere")
		return nil
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logx.WithField("job", job.Name).Warnf("Failed to release job lock: %v", err)
		}
	}()

	runCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	logx.WithField("job", job.Name).Info("Job started")

	if err := job.Run(runCtx); err != nil {
		return err
	}

	logx.WithFields(logx.Fields{
		"job":      job.Name,
		"duration": time.Since(started).String(),
	}).Info("Job finished")
	return nil
}
