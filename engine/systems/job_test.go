package systems

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

func TestNewJobSystemValidatesItsArguments(t *testing.T) {
	_, err := NewJobSystem(-1, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)

	js, err := NewJobSystem(0, 1)
	require.NoError(t, err)
	defer js.Shutdown()
	assert.Equal(t, runtime.NumCPU(), js.Workers())
}

func TestSubmitRunsTheCallbacks(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	var wg sync.WaitGroup
	wg.Add(2)
	results := make(chan interface{}, 1)
	failures := make(chan error, 1)
	boom := errors.New("boom")

	require.NoError(t, js.Submit(metadata.JobTask{
		Name:        "double",
		InputParams: 21,
		OnStart: func(in interface{}) (interface{}, error) {
			return in.(int) * 2, nil
		},
		OnComplete: func(r interface{}) { results <- r; wg.Done() },
	}))
	require.NoError(t, js.Submit(metadata.JobTask{
		Name:      "fail",
		OnStart:   func(interface{}) (interface{}, error) { return nil, boom },
		OnFailure: func(err error) { failures <- err; wg.Done() },
	}))
	wg.Wait()

	assert.Equal(t, 42, <-results)
	assert.ErrorIs(t, <-failures, boom)

	assert.ErrorIs(t, js.Submit(metadata.JobTask{Name: "empty"}), core.ErrInvalidDescriptor)
}

func TestParallelForVisitsEveryIndexOnce(t *testing.T) {
	js, err := NewJobSystem(4, 2)
	require.NoError(t, err)
	defer js.Shutdown()

	const n = 1000
	var visits [n]atomic.Int32
	js.ParallelFor(n, func(i int) { visits[i].Add(1) })
	for i := range visits {
		require.Equal(t, int32(1), visits[i].Load(), "index %d", i)
	}

	called := false
	js.ParallelFor(0, func(int) { called = true })
	assert.False(t, called)
}

func TestShutdownDrainsAndRejects(t *testing.T) {
	js, err := NewJobSystem(1, 8)
	require.NoError(t, err)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		require.NoError(t, js.Submit(metadata.JobTask{
			Name:    "count",
			OnStart: func(interface{}) (interface{}, error) { ran.Add(1); return nil, nil },
		}))
	}
	require.NoError(t, js.Shutdown())
	assert.Equal(t, int32(5), ran.Load(), "queued jobs still run")
	require.NoError(t, js.Shutdown())

	err = js.Submit(metadata.JobTask{Name: "late", OnStart: func(interface{}) (interface{}, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrJobSystemClosed)

	sum := 0
	js.ParallelFor(4, func(i int) { sum += i })
	assert.Equal(t, 6, sum, "runs inline once closed")
}
