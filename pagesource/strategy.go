package pagesource

import (
	"context"
	"errors"
	"fmt"

	"timeline-agent/config"
)

// ErrStrategiesExhausted is returned when every candidate strategy of a step failed.
var ErrStrategiesExhausted = errors.New("all strategies failed")

// ErrUnverified is returned when the post button was pressed but no success
// indicator showed up. The post may already be live, so it must not be retried.
var ErrUnverified = errors.New("post submitted but not verified")

// Strategy is one way of performing a UI step.
type Strategy struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result tells which strategy completed a step.
type Result struct {
	Step     string
	Strategy string
	Attempts int
}

// TryInOrder runs strategies in order until one succeeds.
// Cancellation of ctx stops the walk immediately.
func TryInOrder(ctx context.Context, step string, strategies []Strategy) (Result, error) {
	res := Result{Step: step}
	var lastErr error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Attempts++
		err := s.Run(ctx)
		if err == nil {
			res.Strategy = s.Name
			config.Logger.Debugf("[%s] succeeded with %s", step, s.Name)
			return res, nil
		}
		lastErr = err
		config.Logger.Debugf("[%s] %s failed: %v", step, s.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if lastErr == nil {
		return res, fmt.Errorf("%s: %w", step, ErrStrategiesExhausted)
	}
	return res, fmt.Errorf("%s: %w: last error: %v", step, ErrStrategiesExhausted, lastErr)
}
