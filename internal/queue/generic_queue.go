// Package queue provides the sequential work queue that the migration worker
// drains, along with a small task manager for deferred, ordered work.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Decision is returned by a processFunc for every processed item.
type Decision int

const (
	// DecisionSuccess is returned by a processFunc when an item was processed.
	DecisionSuccess Decision = 1

	// DecisionFailed is returned by a processFunc when an item failed.
	DecisionFailed Decision = 0

	// DecisionAbandoned is returned by a processFunc when an item was given up
	// without an outcome, such as after a cancellation. It is neither counted
	// as successful nor as failed.
	DecisionAbandoned Decision = 2
)

// Progress is a snapshot of the state of a [GenericQueue].
type Progress struct {
	HasStarted  bool
	HasFinished bool
	StartTime   time.Time
	FinishTime  time.Time
	ProgressPct float64

	TotalItems      int
	ProcessedItems  int
	InProgressItems int
	SuccessItems    int
	FailedItems     int

	TotalBytes     uint64
	ProcessedBytes uint64
	SuccessBytes   uint64

	ETA               time.Time
	TimeLeft          time.Duration
	TransferSpeed     float64
	TransferSpeedUnit string
}

// GenericQueue is a generic queue that can hold any comparable type of items.
// Items can carry a weight (such as a file size), in which case the progress
// is measured by weight rather than by item count.
type GenericQueue[T comparable] struct {
	sync.RWMutex
	weightFunc  func(T) uint64
	hasStarted  bool
	hasFinished bool
	startTime   time.Time
	finishTime  time.Time
	head        int
	items       []T
	success     []T
	failed      []T
	abandoned   []T
	inProgress  map[T]struct{}

	totalWeight     uint64
	processedWeight uint64
	successWeight   uint64
}

// NewGenericQueue returns a pointer to a new [GenericQueue]. The weightFunc
// can be nil, then the progress is measured in items.
func NewGenericQueue[T comparable](weightFunc func(T) uint64) *GenericQueue[T] {
	return &GenericQueue[T]{
		weightFunc: weightFunc,
		inProgress: make(map[T]struct{}),
	}
}

func (q *GenericQueue[T]) weight(item T) uint64 {
	if q.weightFunc == nil {
		return 1
	}

	return q.weightFunc(item)
}

// HasRemainingItems returns whether a queue has remaining items to process.
func (q *GenericQueue[T]) HasRemainingItems() bool {
	q.RLock()
	defer q.RUnlock()

	return q.head < len(q.items)
}

// Enqueue adds items to the queue.
func (q *GenericQueue[T]) Enqueue(items ...T) {
	q.Lock()
	defer q.Unlock()

	if q.hasFinished {
		q.finishTime = time.Time{}
		q.hasFinished = false
	}

	for _, item := range items {
		delete(q.inProgress, item)
		q.items = append(q.items, item)
		q.totalWeight += q.weight(item)
	}
}

// Dequeue returns an item from the queue and advances the queue head.
func (q *GenericQueue[T]) Dequeue() (T, bool) { //nolint:ireturn
	q.Lock()
	defer q.Unlock()

	if q.head >= len(q.items) {
		var zeroVal T

		return zeroVal, false
	}

	if !q.hasStarted {
		q.startTime = time.Now()
		q.hasStarted = true
	}

	item := q.items[q.head]
	q.head++

	return item, true
}

// SetSuccess sets given in-progress queue items as successfully processed. The
// items are removed from the in-progress map in the process.
func (q *GenericQueue[T]) SetSuccess(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		q.success = append(q.success, item)
		q.processedWeight += q.weight(item)
		q.successWeight += q.weight(item)
	}
	q.checkFinished()
}

// SetFailed sets given in-progress queue items as failed. The items are
// removed from the in-progress map in the process.
func (q *GenericQueue[T]) SetFailed(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		q.failed = append(q.failed, item)
		q.processedWeight += q.weight(item)
	}
	q.checkFinished()
}

// SetAbandoned sets given in-progress queue items as abandoned. Their weight
// is removed from the total, as they will not be processed.
func (q *GenericQueue[T]) SetAbandoned(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		delete(q.inProgress, item)
		q.abandoned = append(q.abandoned, item)
		q.totalWeight -= min(q.weight(item), q.totalWeight)
	}
	q.checkFinished()
}

// checkFinished marks the queue as finished once all items were processed.
// The caller must hold the lock.
func (q *GenericQueue[T]) checkFinished() {
	if !q.hasFinished && q.head >= len(q.items) && len(q.inProgress) == 0 {
		q.finishTime = time.Now()
		q.hasFinished = true
	}
}

// SetProcessing sets given items as in progress (processing).
func (q *GenericQueue[T]) SetProcessing(items ...T) {
	q.Lock()
	defer q.Unlock()

	for _, item := range items {
		q.inProgress[item] = struct{}{}
	}
}

// Progress returns the [Progress] for the [GenericQueue].
func (q *GenericQueue[T]) Progress() Progress {
	q.RLock()
	defer q.RUnlock()

	hasStarted := q.hasStarted
	totalItems := len(q.items) - len(q.abandoned)

	processedItems := len(q.success) + len(q.failed)
	processedItems = min(processedItems, totalItems)

	total := q.totalWeight
	processed := min(q.processedWeight, total)

	var progressPct float64
	if total > 0 {
		progressPct = float64(processed) / float64(total) * 100       //nolint:mnd
		progressPct = max(float64(0), min(progressPct, float64(100))) //nolint:mnd
	} else if totalItems > 0 && processedItems == totalItems {
		progressPct = 100 //nolint:mnd
	}

	var eta time.Time
	var timeLeft time.Duration

	var transferSpeed float64
	transferSpeedUnit := "items/sec"
	if q.weightFunc != nil {
		transferSpeedUnit = "bytes/sec"
	}

	if hasStarted && processed > 0 && processed < total {
		elapsed := time.Since(q.startTime)
		perSec := float64(processed) / max(elapsed.Seconds(), 1)

		if perSec > 0 {
			remainingSeconds := float64(total-processed) / perSec
			timeLeft = time.Duration(remainingSeconds * float64(time.Second))
			eta = time.Now().Add(timeLeft)
			transferSpeed = perSec
		}
	}

	return Progress{
		HasStarted:        hasStarted,
		HasFinished:       q.hasFinished,
		StartTime:         q.startTime,
		FinishTime:        q.finishTime,
		ProgressPct:       progressPct,
		TotalItems:        totalItems,
		ProcessedItems:    processedItems,
		InProgressItems:   len(q.inProgress),
		SuccessItems:      len(q.success),
		FailedItems:       len(q.failed),
		TotalBytes:        total,
		ProcessedBytes:    processed,
		SuccessBytes:      min(q.successWeight, total),
		ETA:               eta,
		TimeLeft:          timeLeft,
		TransferSpeed:     transferSpeed,
		TransferSpeedUnit: transferSpeedUnit,
	}
}

// DequeueAndProcess sequentially dequeues and processes items using the given
// processFunc. The context is checked before every item. An error is only
// returned in case of a context cancellation, the processFunc is otherwise
// expected to return only its [Decision] for that item.
func (q *GenericQueue[T]) DequeueAndProcess(ctx context.Context, processFunc func(T) Decision) error {
	for {
		if ctx.Err() != nil {
			break
		}

		item, ok := q.Dequeue()
		if !ok {
			break
		}

		q.SetProcessing(item)

		switch processFunc(item) {
		case DecisionSuccess:
			q.SetSuccess(item)

		case DecisionAbandoned:
			q.SetAbandoned(item)

		default:
			q.SetFailed(item)
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("(queue-proc) %w", ctx.Err())
	}

	return nil
}
