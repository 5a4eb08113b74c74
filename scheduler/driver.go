package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"timeline-agent/config"
	"timeline-agent/cycle"
	"timeline-agent/metrics"
)

// Job is one periodic pipeline stage.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Driver runs jobs on their intervals, one at a time. Each run gets its own
// timeout and a panic inside a run is logged and swallowed.
type Driver struct {
	scheduler  gocron.Scheduler
	jobs       []Job
	timeout    time.Duration
	runOnStart bool
	metrics    *metrics.Metrics

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func NewDriver(cfg config.ScheduleConfig, m *metrics.Metrics, jobs ...Job) (*Driver, error) {
	// 브라우저 세션이 하나뿐이므로 작업은 항상 하나씩 실행한다.
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Driver{
		scheduler:  s,
		jobs:       jobs,
		timeout:    cfg.CycleTimeout,
		runOnStart: cfg.RunOnStart,
		metrics:    m,
		ctx:        context.Background(),
		cancel:     func() {},
	}, nil
}

// RunnerJobs maps the runner's stages to their configured intervals.
func RunnerJobs(r *cycle.Runner, cfg config.ScheduleConfig) []Job {
	return []Job{
		{Name: "learn", Interval: cfg.LearnInterval, Run: func(ctx context.Context) error {
			_, err := r.Learn(ctx)
			return err
		}},
		{Name: "reply", Interval: cfg.ReplyInterval, Run: func(ctx context.Context) error {
			_, err := r.Reply(ctx)
			return err
		}},
		{Name: "post", Interval: cfg.PostInterval, Run: func(ctx context.Context) error {
			_, err := r.Publish(ctx)
			return err
		}},
	}
}

// Start registers every job and starts the scheduler. Cancelling ctx or
// calling Stop cancels in-flight runs.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.mu.Unlock()

	for _, job := range d.jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("job %s: interval must be positive", job.Name)
		}
		opts := []gocron.JobOption{gocron.WithName(job.Name)}
		if d.runOnStart {
			opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
		}
		if _, err := d.scheduler.NewJob(
			gocron.DurationJob(job.Interval),
			gocron.NewTask(d.execute, job),
			opts...,
		); err != nil {
			return fmt.Errorf("failed to register job %s: %w", job.Name, err)
		}
		config.Logger.Infof("scheduled %s every %s", job.Name, job.Interval)
	}

	d.scheduler.Start()
	config.Logger.Info("scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (d *Driver) Stop() error {
	d.mu.Lock()
	d.cancel()
	d.mu.Unlock()
	err := d.scheduler.Shutdown()
	config.Logger.Info("scheduler stopped")
	return err
}

func (d *Driver) execute(job Job) {
	d.mu.Lock()
	base := d.ctx
	d.mu.Unlock()
	if base.Err() != nil {
		return
	}

	ctx, cancel := base, context.CancelFunc(func() {})
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(base, d.timeout)
	}
	defer cancel()

	start := time.Now()
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			config.ErrorWithFields("job panicked", config.Fields{"job": job.Name, "panic": r, "stack": string(debug.Stack())})
		}
		took := time.Since(start)
		d.metrics.Cycle(job.Name, took, err)
		if err != nil {
			config.Logger.Errorf("[%s] run failed after %s: %v", job.Name, took, err)
			return
		}
		config.Logger.Infof("[%s] run finished in %s", job.Name, took)
	}()

	config.Logger.Debugf("[%s] run started", job.Name)
	err = job.Run(ctx)
}
