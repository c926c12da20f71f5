package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var silent = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

type recorder struct {
	events []string
}

func (r *recorder) dep(name string, requires ...string) *Func {
	return &Func{
		Name:     name,
		Requires: requires,
		StartFunc: func(context.Context) error {
			r.events = append(r.events, "start:"+name)
			return nil
		},
		StopFunc: func(context.Context) error {
			r.events = append(r.events, "stop:"+name)
			return nil
		},
	}
}

func TestStart_DependencyOrder(t *testing.T) {
	rec := &recorder{}
	s := NewStartup(silent, 1)
	s.AddDependency(rec.dep("events", "graph"))
	s.AddDependency(rec.dep("graph"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:graph", "start:events"}, rec.events)
	assert.Equal(t, StartupStatusStarted, s.Status("graph"))
	assert.Equal(t, StartupStatusStarted, s.Status("events"))

	rec.events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop:events", "stop:graph"}, rec.events)
	assert.Equal(t, StartupStatusStopped, s.Status("graph"))
}

func TestStart_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	s := NewStartup(silent, 5)
	s.SetBackoffUnit(time.Millisecond)
	s.AddDependency(&Func{
		Name: "graph",
		StartFunc: func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, s.Attempts())
}

func TestStart_GivesUp(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewStartup(silent, 2)
	s.SetBackoffUnit(time.Millisecond)
	s.AddDependency(&Func{Name: "graph", StartFunc: func(context.Context) error { return boom }})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, StartupStatusFailed, s.Status("graph"))
}

func TestStart_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStartup(silent, 3)
	s.SetBackoffUnit(time.Hour)
	s.AddDependency(&Func{Name: "graph", StartFunc: func(context.Context) error {
		cancel()
		return errors.New("down")
	}})

	assert.ErrorIs(t, s.Start(ctx), context.Canceled)
}

func TestStart_UnknownAndCyclicDependencies(t *testing.T) {
	t.Run("unknown", func(t *testing.T) {
		s := NewStartup(silent, 1)
		s.AddDependency(&Func{Name: "events", Requires: []string{"graph"}})
		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown dependency 'graph'")
	})

	t.Run("cycle", func(t *testing.T) {
		s := NewStartup(silent, 1)
		s.AddDependency(&Func{Name: "a", Requires: []string{"b"}})
		s.AddDependency(&Func{Name: "b", Requires: []string{"a"}})
		err := s.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dependency cycle")
	})
}

func TestStop_SkipsUnstarted(t *testing.T) {
	rec := &recorder{}
	s := NewStartup(silent, 1)
	s.AddDependency(rec.dep("graph"))

	require.NoError(t, s.Stop(context.Background()))
	assert.Empty(t, rec.events)
}
