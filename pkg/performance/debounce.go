package performance

import (
	"sync"
	"time"
)

// Debouncer provides debouncing functionality for frequent operations
type Debouncer struct {
	mutex    sync.Mutex
	timers   map[string]*time.Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		timers:   make(map[string]*time.Timer),
		duration: duration,
	}
}

// Debounce executes the function after the debounce duration has passed
// If called again with the same key before the duration expires, the previous call is cancelled
func (d *Debouncer) Debounce(key string, fn func()) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if timer, exists := d.timers[key]; exists {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.duration, func() {
		d.mutex.Lock()
		// a newer call may have replaced this timer after it fired
		if d.timers[key] != timer {
			d.mutex.Unlock()
			return
		}
		delete(d.timers, key)
		d.mutex.Unlock()
		fn()
	})
	d.timers[key] = timer
}

// Cancel cancels a pending debounced function call
func (d *Debouncer) Cancel(key string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if timer, exists := d.timers[key]; exists {
		timer.Stop()
		delete(d.timers, key)
	}
}

// Pending returns the number of scheduled calls
func (d *Debouncer) Pending() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.timers)
}

// Clear cancels all pending debounced function calls
func (d *Debouncer) Clear() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}

// BatchProcessor collects items and hands them to processor in batches,
// either when maxBatchSize is reached or maxWaitTime after the first item
type BatchProcessor[T any] struct {
	mutex        sync.Mutex
	items        []T
	maxBatchSize int
	maxWaitTime  time.Duration
	processor    func([]T)
	timer        *time.Timer
	running      sync.WaitGroup
	closed       bool
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor[T any](maxBatchSize int, maxWaitTime time.Duration, processor func([]T)) *BatchProcessor[T] {
	if maxBatchSize < 1 {
		maxBatchSize = 1
	}
	return &BatchProcessor[T]{
		maxBatchSize: maxBatchSize,
		maxWaitTime:  maxWaitTime,
		processor:    processor,
	}
}

// Add queues an item. It reports false once the processor is closed.
func (bp *BatchProcessor[T]) Add(item T) bool {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	if bp.closed {
		return false
	}
	bp.items = append(bp.items, item)

	if len(bp.items) >= bp.maxBatchSize {
		bp.processBatch()
		return true
	}

	if bp.timer == nil {
		bp.timer = time.AfterFunc(bp.maxWaitTime, func() {
			bp.mutex.Lock()
			defer bp.mutex.Unlock()
			bp.processBatch()
		})
	}
	return true
}

// processBatch hands the current batch off (must be called with mutex held)
func (bp *BatchProcessor[T]) processBatch() {
	if bp.timer != nil {
		bp.timer.Stop()
		bp.timer = nil
	}
	if len(bp.items) == 0 {
		return
	}

	items := bp.items
	bp.items = nil

	bp.running.Add(1)
	go func() {
		defer bp.running.Done()
		bp.processor(items)
	}()
}

// Flush processes any pending items immediately
func (bp *BatchProcessor[T]) Flush() {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()
	bp.processBatch()
}

// Close flushes pending items and waits for every batch to finish
func (bp *BatchProcessor[T]) Close() {
	bp.mutex.Lock()
	bp.closed = true
	bp.processBatch()
	bp.mutex.Unlock()

	bp.running.Wait()
}
