package systems

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/snowfall/engine/core"
	"github.com/spaghettifunk/snowfall/engine/renderer/metadata"
)

/**
 * @brief A fixed pool of workers fed through a buffered channel. It also acts
 * as the scheduler of the software device: compute thread groups and pixel
 * rows are spread over the same workers.
 */
type JobSystem struct {
	numWorkers int
	jobQueue   chan metadata.JobTask
	wg         sync.WaitGroup
	// guards sends against close
	mu     sync.RWMutex
	closed atomic.Bool
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = fmt.Errorf("job system is shut down")

/**
 * @brief Starts numWorkers workers. Zero workers means one per CPU.
 */
func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers == 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers < 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan metadata.JobTask, channelSize),
	}
	js.start()

	core.LogDebug("job system started with %d workers", numWorkers)
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				js.run(job)
			}
		}()
	}
}

func (js *JobSystem) run(job metadata.JobTask) {
	result, err := job.OnStart(job.InputParams)
	if err != nil {
		core.LogError("job %s failed: %s", job.Name, err)
		if job.OnFailure != nil {
			job.OnFailure(err)
		}
		return
	}
	if job.OnComplete != nil {
		job.OnComplete(result)
	}
}

func (js *JobSystem) Workers() int {
	return js.numWorkers
}

/**
 * @brief Shuts the job system down. Queued jobs still run.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed.Swap(true) {
		js.mu.Unlock()
		return nil
	}
	close(js.jobQueue)
	js.mu.Unlock()
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 * @param jt The description of the job to be executed.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	if jt.OnStart == nil {
		return fmt.Errorf("job %s has no OnStart: %w", jt.Name, core.ErrInvalidDescriptor)
	}
	js.mu.RLock()
	defer js.mu.RUnlock()
	if js.closed.Load() {
		return ErrJobSystemClosed
	}
	js.jobQueue <- jt
	return nil
}

/**
 * @brief Calls fn(i) for every i in [0, n) and returns once all calls are done.
 * The caller works alongside the pool, so a full queue never stalls it. Must
 * not be called from inside a job.
 */
func (js *JobSystem) ParallelFor(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if n == 1 || js.numWorkers == 1 || js.closed.Load() {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	var next atomic.Int64
	work := func() {
		for {
			i := int(next.Add(1) - 1)
			if i >= n {
				return
			}
			fn(i)
		}
	}

	var helpers sync.WaitGroup
	js.mu.RLock()
	for h := 0; h < min(js.numWorkers, n)-1 && !js.closed.Load(); h++ {
		helpers.Add(1)
		job := metadata.JobTask{
			Name: "parallel_for",
			OnStart: func(interface{}) (interface{}, error) {
				defer helpers.Done()
				work()
				return nil, nil
			},
		}
		select {
		case js.jobQueue <- job:
		default:
			helpers.Done()
		}
	}
	js.mu.RUnlock()
	work()
	helpers.Wait()
}
