package systems

import (
	"fmt"
	"sync"
)

// JobSystem is a fixed pool of workers draining one queue. Work that touches
// the device stays on the render thread; jobs only do CPU work like decoding.
type JobSystem struct {
	numWorkers int
	jobQueue   chan func()
	wg         sync.WaitGroup
	once       sync.Once
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}
	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan func(), channelSize),
	}
	js.start()
	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				job()
			}
		}()
	}
}

/**
 * @brief Shuts the job system down after queued jobs have run. Submitting
 * after Shutdown panics.
 */
func (js *JobSystem) Shutdown() error {
	js.once.Do(func() { close(js.jobQueue) })
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 */
func (js *JobSystem) Submit(job func()) {
	js.jobQueue <- job
}

// RunAll runs fn for 0..n-1 on the pool and waits for all of them. Results
// keep their index; the error is the one with the lowest index.
func RunAll[T any](js *JobSystem, n int, fn func(i int) (T, error)) ([]T, error) {
	results := make([]T, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		js.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = fn(i)
		})
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
