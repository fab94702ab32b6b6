package debugger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/joeycumines/jdb/internal/goroutineid"
	"github.com/joeycumines/jdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Handler that logs every event it sees.
type recorder struct {
	mu     sync.Mutex
	events []string
	gids   []int64
	step   func(*Snapshot) (bool, error)
}

func (r *recorder) record(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, name)
	r.gids = append(r.gids, goroutineid.Get())
}

func (r *recorder) Start(_ context.Context, program any) (bool, error) {
	r.record("start:" + program.(string))
	return true, nil
}

func (r *recorder) Step(_ context.Context, s *Snapshot) (bool, error) {
	r.record("step:" + s.Position.String())
	if r.step != nil {
		return r.step(s)
	}
	return true, nil
}

func (r *recorder) Break(_ context.Context, s *Snapshot) (bool, error) {
	r.record("break:" + s.Position.String())
	return true, nil
}

func (r *recorder) Stop(_ context.Context, result any) error {
	r.record("stop")
	return nil
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func snap(line, col int) *Snapshot {
	return &Snapshot{Position: Position{Line: line, Column: col}, Locals: EmptyScope}
}

func TestCoordinator_FullRun(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(rec)

	require.True(t, c.OnStart("main.js"))
	require.True(t, c.Attached())
	id := c.SessionID()
	require.NotEmpty(t, id)

	assert.True(t, c.OnStep(snap(1, 1)))
	assert.True(t, c.OnStep(snap(2, 1)))
	c.OnStop(42)

	assert.False(t, c.Attached())
	assert.Empty(t, c.SessionID())
	assert.Equal(t, []string{"start:main.js", "step:1:1", "step:2:1", "stop"}, rec.Events())

	// every handler call ran on the same goroutine, which is not this one
	self := goroutineid.Get()
	for _, gid := range rec.gids {
		assert.Equal(t, rec.gids[0], gid)
		assert.NotEqual(t, self, gid)
	}
}

func TestCoordinator_OnStartTwiceIsNoop(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(rec)
	require.True(t, c.OnStart("a"))
	id := c.SessionID()
	require.True(t, c.OnStart("b"))
	assert.Equal(t, id, c.SessionID())
	c.OnStop(nil)
	assert.Equal(t, []string{"start:a", "stop"}, rec.Events())
}

func TestCoordinator_ReattachAfterStop(t *testing.T) {
	c := NewCoordinator(nil)
	require.True(t, c.OnStart("a"))
	first := c.SessionID()
	c.OnStop(nil)
	require.True(t, c.OnStart("b"))
	defer c.OnStop(nil)
	assert.NotEqual(t, first, c.SessionID())
}

func TestCoordinator_StepWithoutStart(t *testing.T) {
	c := NewCoordinator(nil)
	assert.False(t, c.OnStep(snap(1, 1)))
	assert.False(t, c.OnBreak(snap(1, 1)))
	assert.False(t, c.Stepping())
	assert.False(t, c.Attached())
}

func TestCoordinator_OnStopIdempotent(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(rec)
	c.OnStop(nil)
	require.True(t, c.OnStart("x"))
	c.OnStop(nil)
	c.OnStop(nil)
	assert.Equal(t, []string{"start:x", "stop"}, rec.Events())
}

func TestCoordinator_BreakEnablesStepping(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(rec)
	require.True(t, c.OnStart("x"))
	assert.False(t, c.Stepping())
	assert.True(t, c.OnBreak(snap(5, 3)))
	assert.True(t, c.Stepping())
	c.SetStepping(false)
	assert.False(t, c.Stepping())
	c.SetStepping(true)
	c.OnStop(nil)
	assert.False(t, c.Stepping(), "stepping resets on detach")
	assert.Equal(t, []string{"start:x", "break:5:3", "stop"}, rec.Events())
}

func TestCoordinator_StepDecisionAborts(t *testing.T) {
	rec := &recorder{step: func(*Snapshot) (bool, error) { return false, nil }}
	c := NewCoordinator(rec)
	require.True(t, c.OnStart("x"))
	assert.False(t, c.OnStep(snap(1, 1)))
	assert.True(t, c.Attached())
	c.OnStop(nil)
}

func TestCoordinator_StartDeclined(t *testing.T) {
	var events []string
	c := NewCoordinator(HandlerFuncs{
		StartFunc: func(context.Context, any) (bool, error) {
			events = append(events, "start")
			return false, nil
		},
		StopFunc: func(context.Context, any) error {
			events = append(events, "stop")
			return nil
		},
	})
	assert.False(t, c.OnStart("x"))
	assert.False(t, c.Attached())
	assert.Equal(t, []string{"start", "stop"}, events)
}

func TestCoordinator_FaultPolicy(t *testing.T) {
	for _, tc := range []struct {
		name   string
		policy FaultPolicy
		step   func(context.Context, *Snapshot) (bool, error)
		want   bool
	}{
		{"panic proceeds", FaultProceed, func(context.Context, *Snapshot) (bool, error) { panic("boom") }, true},
		{"panic aborts", FaultAbort, func(context.Context, *Snapshot) (bool, error) { panic("boom") }, false},
		{"error proceeds", FaultProceed, func(context.Context, *Snapshot) (bool, error) { return false, errors.New("bad") }, true},
		{"error aborts", FaultAbort, func(context.Context, *Snapshot) (bool, error) { return true, errors.New("bad") }, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCoordinator(HandlerFuncs{StepFunc: tc.step}, WithFaultPolicy(tc.policy))
			require.True(t, c.OnStart("x"))
			assert.Equal(t, tc.want, c.OnStep(snap(1, 1)))
			// the control goroutine survives the fault
			assert.True(t, c.Attached())
			c.OnStop(nil)
			assert.False(t, c.Attached())
		})
	}
}

func TestCoordinator_StopFaultStillDetaches(t *testing.T) {
	c := NewCoordinator(HandlerFuncs{
		StopFunc: func(context.Context, any) error { panic("boom") },
	}, WithFaultPolicy(FaultAbort))
	require.True(t, c.OnStart("x"))
	c.OnStop(nil)
	assert.False(t, c.Attached())
}

func TestCoordinator_NestedHookFromHandler(t *testing.T) {
	var c *Coordinator
	var nested []bool
	c = NewCoordinator(HandlerFuncs{
		StepFunc: func(context.Context, *Snapshot) (bool, error) {
			// e.g. the operator evaluated a call into instrumented code
			nested = append(nested, c.OnStep(snap(9, 9)), c.OnBreak(snap(9, 9)), c.OnStart("y"))
			c.OnStop(nil)
			return true, nil
		},
	})
	require.True(t, c.OnStart("x"))
	assert.True(t, c.OnStep(snap(1, 1)))
	assert.Equal(t, []bool{true, true, true}, nested)
	assert.True(t, c.Attached())
	assert.False(t, c.Stepping())
	c.OnStop(nil)
}

func TestCoordinator_HandlerContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got context.Context
	c := NewCoordinator(HandlerFuncs{
		StartFunc: func(ctx context.Context, _ any) (bool, error) {
			got = ctx
			return true, nil
		},
	}, WithContext(parent))
	require.True(t, c.OnStart("x"))
	require.NotNil(t, got)
	assert.NoError(t, got.Err())
	c.OnStop(nil)
	assert.ErrorIs(t, got.Err(), context.Canceled)
}

func TestCoordinator_StepBlocksUntilDecision(t *testing.T) {
	release := make(chan struct{})
	var entered, returned atomic.Bool
	rec := &recorder{step: func(*Snapshot) (bool, error) {
		entered.Store(true)
		<-release
		return true, nil
	}}
	c := NewCoordinator(rec)
	require.True(t, c.OnStart("p"))

	go func() {
		assert.True(t, c.OnStep(snap(2, 1)))
		returned.Store(true)
	}()

	require.NoError(t, testutil.Eventually(entered.Load))
	assert.False(t, returned.Load(), "execution must stay parked while the handler decides")
	close(release)
	require.NoError(t, testutil.Eventually(returned.Load))

	c.OnStop(nil)
	assert.Equal(t, []string{"start:p", "step:2:1", "stop"}, rec.Events())
}

func TestParseFaultPolicy(t *testing.T) {
	for in, want := range map[string]FaultPolicy{"": FaultProceed, "proceed": FaultProceed, "ABORT": FaultAbort, " abort ": FaultAbort} {
		got, err := ParseFaultPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFaultPolicy("explode")
	assert.Error(t, err)
	assert.Equal(t, "abort", FaultAbort.String())
	assert.Equal(t, "proceed", FaultProceed.String())
}
