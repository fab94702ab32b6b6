package debugger

import (
	"context"
	"fmt"
	"strings"
)

// Handler receives events on the control goroutine. The boolean results are
// continuation decisions: true lets the script proceed, false aborts the run.
//
// A Handler that returns an error or panics is treated according to the
// Coordinator's FaultPolicy; the execution goroutine is released either way.
type Handler interface {
	Start(ctx context.Context, program any) (bool, error)
	Step(ctx context.Context, snapshot *Snapshot) (bool, error)
	Break(ctx context.Context, snapshot *Snapshot) (bool, error)
	Stop(ctx context.Context, result any) error
}

// NopHandler proceeds on every event. Embed it to implement only some of the
// Handler methods.
type NopHandler struct{}

func (NopHandler) Start(context.Context, any) (bool, error)       { return true, nil }
func (NopHandler) Step(context.Context, *Snapshot) (bool, error)  { return true, nil }
func (NopHandler) Break(context.Context, *Snapshot) (bool, error) { return true, nil }
func (NopHandler) Stop(context.Context, any) error                { return nil }

// HandlerFuncs adapts plain functions to a Handler. Nil fields proceed.
type HandlerFuncs struct {
	StartFunc func(ctx context.Context, program any) (bool, error)
	StepFunc  func(ctx context.Context, snapshot *Snapshot) (bool, error)
	BreakFunc func(ctx context.Context, snapshot *Snapshot) (bool, error)
	StopFunc  func(ctx context.Context, result any) error
}

func (h HandlerFuncs) Start(ctx context.Context, program any) (bool, error) {
	if h.StartFunc == nil {
		return true, nil
	}
	return h.StartFunc(ctx, program)
}

func (h HandlerFuncs) Step(ctx context.Context, snapshot *Snapshot) (bool, error) {
	if h.StepFunc == nil {
		return true, nil
	}
	return h.StepFunc(ctx, snapshot)
}

func (h HandlerFuncs) Break(ctx context.Context, snapshot *Snapshot) (bool, error) {
	if h.BreakFunc == nil {
		return true, nil
	}
	return h.BreakFunc(ctx, snapshot)
}

func (h HandlerFuncs) Stop(ctx context.Context, result any) error {
	if h.StopFunc == nil {
		return nil
	}
	return h.StopFunc(ctx, result)
}

// FaultPolicy decides the continuation when a Handler fails.
type FaultPolicy int

const (
	// FaultProceed lets the script continue as if the handler had returned
	// true.
	FaultProceed FaultPolicy = iota
	// FaultAbort aborts the run.
	FaultAbort
)

func (p FaultPolicy) String() string {
	if p == FaultAbort {
		return "abort"
	}
	return "proceed"
}

// ParseFaultPolicy accepts "proceed" or "abort" (case-insensitive). The empty
// string selects FaultProceed.
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "proceed":
		return FaultProceed, nil
	case "abort":
		return FaultAbort, nil
	default:
		return FaultProceed, fmt.Errorf("invalid fault policy %q: expected proceed or abort", s)
	}
}
