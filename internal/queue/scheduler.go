package queue

import (
	"sync"
	"time"
)

// Scheduler tracks a run's wall-clock budget and per-round statistics,
// mirroring the original's distinct scheduler type
// (original_source fuzz/scheduler.hpp) rather than folding budget
// bookkeeping into the Queue itself.
type Scheduler struct {
	budget time.Duration // zero means unbounded
	start  time.Time

	mu             sync.Mutex
	round          int
	statsOn        bool
	roundTestCases int
	totalTestCases int
	totalCrashes   int
}

// NewScheduler returns a Scheduler with the given wall-clock budget. A
// zero budget means the run has no time limit and Expired never reports
// true.
func NewScheduler(budget time.Duration) *Scheduler {
	return &Scheduler{budget: budget, start: now()}
}

// now is overridable in tests; production code always uses time.Now.
var now = time.Now

// Expired reports whether the run's wall-clock budget has elapsed.
func (s *Scheduler) Expired() bool {
	if s.budget <= 0 {
		return false
	}

	return now().Sub(s.start) >= s.budget
}

// Remaining returns the time left in the budget, or the maximum duration
// if the scheduler is unbounded.
func (s *Scheduler) Remaining() time.Duration {
	if s.budget <= 0 {
		return time.Duration(1<<63 - 1)
	}

	elapsed := now().Sub(s.start)
	if elapsed >= s.budget {
		return 0
	}

	return s.budget - elapsed
}

// NextRound increments the round counter and resets the round's test-case
// count, whether or not per-round statistics are enabled (spec.md §4.8
// "Statistics maintained globally").
func (s *Scheduler) NextRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.round++
	s.roundTestCases = 0

	return s.round
}

// Round returns the current round number.
func (s *Scheduler) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.round
}

// EnableRoundStats turns on per-round test-case counting.
func (s *Scheduler) EnableRoundStats() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statsOn = true
}

// DisableRoundStats turns off per-round test-case counting without
// clearing the totals.
func (s *Scheduler) DisableRoundStats() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statsOn = false
}

// ResetRoundStats clears only the current round's test-case count,
// leaving totals and the round counter untouched.
func (s *Scheduler) ResetRoundStats() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roundTestCases = 0
}

// RecordTestCase increments the total test-case count and, if round
// statistics are enabled, the round's count too.
func (s *Scheduler) RecordTestCase() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalTestCases++
	if s.statsOn {
		s.roundTestCases++
	}
}

// RecordCrash increments the total crash count.
func (s *Scheduler) RecordCrash() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalCrashes++
}

// Stats is a snapshot of the scheduler's counters.
type Stats struct {
	Round          int
	RoundTestCases int
	TotalTestCases int
	TotalCrashes   int
}

// Snapshot returns the scheduler's current counters.
func (s *Scheduler) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Round:          s.round,
		RoundTestCases: s.roundTestCases,
		TotalTestCases: s.totalTestCases,
		TotalCrashes:   s.totalCrashes,
	}
}
