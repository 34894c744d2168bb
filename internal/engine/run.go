package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/graycon/graycon/internal/concolic"
	"github.com/graycon/graycon/internal/executor"
	"github.com/graycon/graycon/internal/queue"
	"github.com/graycon/graycon/internal/seed"
)

// Summary reports what one `graycon fuzz` invocation accomplished.
type Summary struct {
	Rounds       int
	TestCases    int
	Crashes      int
	CrashesBySig map[string]int
}

// Run drives rounds until the scheduler's budget is exhausted, the queue
// runs dry, or ctx is cancelled (spec.md §4.5-§4.8). Each round pops one
// seed, runs [concolic.Driver.RunRound] against it, and persists every
// gaining or crashing candidate; gaining candidates that did not crash are
// also requeued for further probing, crashing ones are not.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	e.Scheduler.EnableRoundStats()

	sum := Summary{CrashesBySig: make(map[string]int)}

	for {
		if ctx.Err() != nil {
			return sum, nil
		}

		if e.Scheduler.Expired() {
			return sum, nil
		}

		item, ok := e.Queue.Pop()
		if !ok {
			return sum, nil
		}

		if err := e.runRoundFor(ctx, item.Seed, &sum); err != nil {
			return sum, err
		}

		if e.cfg.DumpTree != "" {
			if err := e.dumpLastTree(); err != nil {
				return sum, err
			}
		}

		round := e.Scheduler.NextRound()
		snap := e.Scheduler.Snapshot()

		sig, err := json.Marshal(sum.CrashesBySig)
		if err != nil {
			return sum, fmt.Errorf("engine: encode crash tally: %w", err)
		}

		if err := e.stats.RecordRound(ctx, round, snap.RoundTestCases, string(sig)); err != nil {
			return sum, err
		}

		sum.Rounds = round
	}
}

func (e *Engine) runRoundFor(ctx context.Context, base *seed.Seed, sum *Summary) error {
	candidates, err := e.driver.RunRound(ctx, e.rng, base)
	if err != nil {
		return fmt.Errorf("engine: run round: %w", err)
	}

	for _, cand := range candidates {
		if cand.Crash {
			if err := e.recordCrash(cand); err != nil {
				return err
			}

			sum.Crashes++
			sum.CrashesBySig[cand.Signal.String()]++
			e.Scheduler.RecordCrash()

			continue
		}

		priority, keep := executor.PriorityOf(cand.Gain)
		if !keep {
			continue
		}

		if err := e.recordTestCase(cand.Seed); err != nil {
			return err
		}

		sum.TestCases++
		e.Scheduler.RecordTestCase()
		e.Queue.Push(queue.Item{Seed: cand.Seed, Priority: priority})
	}

	return nil
}

func (e *Engine) recordTestCase(s *seed.Seed) error {
	e.nextSeq++

	_, err := e.artifacts.Write(queue.TestCaseKind, e.nextSeq, s.Concretize())
	if err != nil {
		return err
	}

	e.log.Debug("queued test case", "seq", e.nextSeq)

	return nil
}

func (e *Engine) recordCrash(cand concolic.Candidate) error {
	e.crashSeq++

	_, err := e.artifacts.Write(queue.CrashKind, e.crashSeq, cand.Seed.Concretize())
	if err != nil {
		return err
	}

	e.log.Warn("crash confirmed", "seq", e.crashSeq, "signal", cand.Signal)

	return nil
}

// dumpLastTree writes the most recently built branch tree to cfg.DumpTree
// as indented JSON (already valid JSONC, the format --dump-tree promises;
// see DESIGN.md on why this is plain encoding/json rather than hujson
// output). Overwritten every round so the file always reflects the latest
// tree.
func (e *Engine) dumpLastTree() error {
	tree := e.driver.LastTree()
	if tree == nil {
		return nil
	}

	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return fmt.Errorf("engine: encode branch tree dump: %w", err)
	}

	if err := os.WriteFile(e.cfg.DumpTree, data, 0o600); err != nil {
		return fmt.Errorf("engine: write branch tree dump: %w", err)
	}

	return nil
}
