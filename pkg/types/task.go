// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the evidence-engine core.
// Implements: prd010-coordinator (WorkItem, TaskResult);
//
//	prd011-synthesis (Record, SourceBundle, Citation, QualityMetrics,
//	SynthesisMetrics, SynthesisPackage).
//
// See docs/ARCHITECTURE.md § Core Interface, § Data Structures.
package types

import (
	"context"
	"time"
)

// Invoker is one unit of concurrent work submitted to the coordinator.
// It is an opaque capability: the coordinator calls Invoke exactly once
// per batch and never inspects the payload it returns. Implementations
// are expected to honor ctx cancellation but are not forced to.
type Invoker interface {
	// Name identifies the data source this invoker queries (e.g.
	// "literature", "trials"). It is copied into the TaskResult.
	Name() string

	// Invoke performs the lookup and returns its payload, or an error.
	Invoke(ctx context.Context) (any, error)
}

// WorkItem wraps an Invoker with its scheduling parameters. Immutable
// once submitted; the coordinator does not retain it after Execute returns.
type WorkItem struct {
	// Invoker is the task body. Required.
	Invoker Invoker

	// TokenCost is the number of rate-limiter tokens this task consumes
	// before running. Zero means 1.
	TokenCost int64

	// Timeout bounds this task's execution window. Zero means the
	// batch-level timeout applies, if any.
	Timeout time.Duration
}

// ErrorCode classifies a failed task outcome.
type ErrorCode string

const (
	// ErrCodeTimeout marks a task that did not finish within its
	// allotted execution window.
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeExecution marks any other fault raised by a task body,
	// including rate-limiter failures.
	ErrCodeExecution ErrorCode = "EXECUTION_ERROR"
)

// TaskResult is the terminal outcome of one work item. Created once per
// task, immutable afterward. Execute returns results index-aligned with
// the submitted items regardless of completion order.
type TaskResult struct {
	// Success reports whether the task body returned without error
	// inside its execution window.
	Success bool `json:"success" yaml:"success"`

	// ErrorCode is set when Success is false.
	ErrorCode ErrorCode `json:"error_code,omitempty" yaml:"error_code,omitempty"`

	// ErrorMessage is the fault's message when Success is false.
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	// SourceName echoes the invoker's Name.
	SourceName string `json:"source_name" yaml:"source_name"`

	// LatencyMS is the wall-clock duration of the task's execution
	// window in milliseconds, measured at the coordinator boundary
	// from admission to completion.
	LatencyMS int64 `json:"latency_ms" yaml:"latency_ms"`

	// Payload is the value the task body returned, nil on failure.
	Payload any `json:"payload,omitempty" yaml:"payload,omitempty"`
}
