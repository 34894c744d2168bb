// Package queue implements the priority FIFO seed queue, the run-budget
// scheduler, and the durable artifact/statistics persistence described in
// spec.md §4.8/§5 and original_source fuzz/scheduler.hpp and
// cli/cli.cpp.
package queue

import (
	"sync"

	"github.com/graycon/graycon/internal/executor"
	"github.com/graycon/graycon/internal/seed"
)

// Item is one entry in the seed queue: a candidate seed paired with the
// coverage-derived priority that put it there (spec.md §4.6/§4.8).
type Item struct {
	Seed     *seed.Seed
	Priority executor.Priority
}

// Queue is a priority FIFO: Favored items are always popped before Normal
// ones, and items of equal priority come out in the order they were
// pushed (spec.md §7 Non-goals: "no seed-selection policy richer than
// FIFO partitioned by priority").
type Queue struct {
	mu      sync.Mutex
	favored []Item
	normal  []Item
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{}
}

// Push enqueues item under its own priority lane.
func (q *Queue) Push(item Item) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch item.Priority {
	case executor.Favored:
		q.favored = append(q.favored, item)
	default:
		q.normal = append(q.normal, item)
	}
}

// Pop removes and returns the next item in priority order, or reports
// false if the queue is empty.
func (q *Queue) Pop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.favored) > 0 {
		item := q.favored[0]
		q.favored = q.favored[1:]

		return item, true
	}

	if len(q.normal) > 0 {
		item := q.normal[0]
		q.normal = q.normal[1:]

		return item, true
	}

	return Item{}, false
}

// Len reports the total number of queued items across both lanes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.favored) + len(q.normal)
}
