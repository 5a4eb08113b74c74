package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeline-agent/config"
	"timeline-agent/metrics"
)

func TestExecuteRecoversPanic(t *testing.T) {
	d, err := NewDriver(config.ScheduleConfig{CycleTimeout: time.Second}, metrics.New(prometheus.NewRegistry()))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		d.execute(Job{Name: "boom", Run: func(context.Context) error { panic("selector missing") }})
	})

	var ran atomic.Bool
	d.execute(Job{Name: "after", Run: func(context.Context) error {
		ran.Store(true)
		return nil
	}})
	assert.True(t, ran.Load())
}

func TestExecuteAppliesCycleTimeout(t *testing.T) {
	d, err := NewDriver(config.ScheduleConfig{CycleTimeout: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	var got error
	d.execute(Job{Name: "slow", Run: func(ctx context.Context) error {
		<-ctx.Done()
		got = ctx.Err()
		return got
	}})
	assert.ErrorIs(t, got, context.DeadlineExceeded)
}

func TestDriverRunsJobsAndStops(t *testing.T) {
	var learn, reply atomic.Int32
	d, err := NewDriver(config.ScheduleConfig{CycleTimeout: time.Second, RunOnStart: true}, nil,
		Job{Name: "learn", Interval: time.Hour, Run: func(context.Context) error {
			learn.Add(1)
			return nil
		}},
		Job{Name: "reply", Interval: time.Hour, Run: func(context.Context) error {
			reply.Add(1)
			return errors.New("nothing selected")
		}},
	)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return learn.Load() == 1 && reply.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, d.Stop())
}

func TestStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool
	d, err := NewDriver(config.ScheduleConfig{RunOnStart: true}, nil,
		Job{Name: "learn", Interval: time.Hour, Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
			return ctx.Err()
		}},
	)
	require.NoError(t, err)
	require.NoError(t, d.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not start")
	}
	require.NoError(t, d.Stop())
	assert.True(t, cancelled.Load())
}

func TestStartRejectsZeroInterval(t *testing.T) {
	d, err := NewDriver(config.ScheduleConfig{}, nil, Job{Name: "learn", Run: func(context.Context) error { return nil }})
	require.NoError(t, err)
	assert.Error(t, d.Start(context.Background()))
}
