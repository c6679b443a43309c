// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package coordinator runs batches of independent data-source lookups
// concurrently under a shared rate limit and a fixed concurrency ceiling.
// Implements: prd010-coordinator (R1-R5);
//
//	docs/ARCHITECTURE § Parallel Execution.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/evidence-engine/internal/ratelimit"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const defaultMaxConcurrency = 5

// Coordinator executes work items concurrently. At most MaxConcurrency
// task bodies run at once; every task acquires its token cost from the
// shared limiter before its body runs. One Coordinator may serve many
// batches; it holds no per-batch state.
type Coordinator struct {
	sem     chan struct{}
	limiter ratelimit.Limiter
	logger  *zap.Logger
}

// New returns a Coordinator with the given concurrency ceiling and
// shared limiter. A nil logger disables logging.
func New(cfg types.CoordinatorConfig, limiter ratelimit.Limiter, logger *zap.Logger) (*Coordinator, error) {
	if limiter == nil {
		return nil, fmt.Errorf("limiter is required")
	}
	ceiling := cfg.MaxConcurrency
	if ceiling <= 0 {
		ceiling = defaultMaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		sem:     make(chan struct{}, ceiling),
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Execute runs all items and returns one TaskResult per item, index-
// aligned with the input regardless of completion order. Individual
// task faults and timeouts are converted to failed results; the call
// itself never fails because of one task. A non-zero timeout bounds
// each task's execution window unless the item carries its own.
func (c *Coordinator) Execute(ctx context.Context, items []types.WorkItem, timeout time.Duration) []types.TaskResult {
	start := time.Now()
	results := make([]types.TaskResult, len(items))

	finish := make(chan int, len(items))

	for i := range items {
		go func(i int) {
			results[i] = c.runOne(ctx, items[i], timeout)
			finish <- i
		}(i)
	}
	for range items {
		<-finish
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	c.logger.Info("parallel batch complete",
		zap.String("method", "Execute"),
		zap.Int("tasks", len(items)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", len(items)-succeeded),
		zap.Duration("duration", time.Since(start)),
	)
	return results
}

// outcome carries a task body's result-or-error across the completion
// channel before conversion to a TaskResult.
type outcome struct {
	payload any
	err     error
}

// runOne drives one work item: semaphore admission, token acquisition,
// body invocation. The execution window (latency and timeout) opens at
// admission. A timed-out body is signaled through ctx but not forced;
// it releases its concurrency slot on its own exit path.
func (c *Coordinator) runOne(ctx context.Context, item types.WorkItem, batchTimeout time.Duration) types.TaskResult {
	if item.Invoker == nil {
		return failed("", types.ErrCodeExecution, "work item has no invoker", 0)
	}
	name := item.Invoker.Name()

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return failed(name, types.ErrCodeExecution, ctx.Err().Error(), 0)
	}

	start := time.Now()
	timeout := item.Timeout
	if timeout <= 0 {
		timeout = batchTimeout
	}
	taskCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	bodyDone := make(chan outcome, 1)
	go func() {
		defer func() { <-c.sem }()
		defer func() {
			if r := recover(); r != nil {
				bodyDone <- outcome{err: fmt.Errorf("task panic: %v", r)}
			}
		}()

		cost := item.TokenCost
		if cost <= 0 {
			cost = 1
		}
		if err := c.limiter.Acquire(taskCtx, cost); err != nil {
			bodyDone <- outcome{err: fmt.Errorf("rate limiter: %w", err)}
			return
		}
		payload, err := item.Invoker.Invoke(taskCtx)
		bodyDone <- outcome{payload: payload, err: err}
	}()

	select {
	case out := <-bodyDone:
		latency := time.Since(start).Milliseconds()
		if out.err != nil {
			return failed(name, types.ErrCodeExecution, out.err.Error(), latency)
		}
		return types.TaskResult{
			Success:    true,
			SourceName: name,
			LatencyMS:  latency,
			Payload:    out.payload,
		}
	case <-taskCtx.Done():
		latency := time.Since(start).Milliseconds()
		if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			return failed(name, types.ErrCodeTimeout,
				fmt.Sprintf("task did not finish within %v", timeout), latency)
		}
		return failed(name, types.ErrCodeExecution, taskCtx.Err().Error(), latency)
	}
}

func failed(name string, code types.ErrorCode, msg string, latencyMS int64) types.TaskResult {
	return types.TaskResult{
		Success:      false,
		ErrorCode:    code,
		ErrorMessage: msg,
		SourceName:   name,
		LatencyMS:    latencyMS,
	}
}
