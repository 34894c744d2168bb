// Package engine wires the concolic driver, executor, queue, and scheduler
// into a runnable fuzzing session: the process-wide state spec.md's
// component map assigns no single package of its own (SPEC_FULL §0,
// "engine wiring & process-wide state").
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/graycon/graycon/internal/byteval"
	"github.com/graycon/graycon/internal/concolic"
	"github.com/graycon/graycon/internal/config"
	"github.com/graycon/graycon/internal/executor"
	"github.com/graycon/graycon/internal/queue"
	"github.com/graycon/graycon/internal/seed"
	"github.com/graycon/graycon/internal/tracer"
)

// Engine owns every live resource one `graycon fuzz` invocation needs:
// the tracer session(s), the executor facade, the concolic driver, the
// seed queue and scheduler, and the durable artifact/stats sinks.
type Engine struct {
	cfg config.Config
	log *slog.Logger

	session       *tracer.Session
	nativeSession *tracer.Session
	exec          *executor.Executor
	driver        *concolic.Driver

	Queue     *queue.Queue
	Scheduler *queue.Scheduler
	artifacts *queue.ArtifactWriter
	stats     *queue.StatsIndex

	rng      *rand.Rand
	nextSeq  uint64
	crashSeq uint64
}

// New starts the tracer session(s) described by cfg, opens the stats index
// under cfg.OutputDir, and seeds the queue from cfg.InputDir.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*Engine, error) {
	e, err := newEngine(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	seeds, err := loadSeeds(cfg)
	if err != nil {
		_ = e.Close()

		return nil, err
	}

	for _, s := range seeds {
		e.Queue.Push(queue.Item{Seed: s, Priority: executor.Normal})
	}

	e.log.Info("engine started", "seeds", len(seeds), "nspawn", cfg.NSpawn, "nsolve", cfg.NSolve)

	return e, nil
}

// NewReplay starts the same tracer session(s) and executor as New, without
// reading an input corpus or populating the queue: `graycon replay` only
// needs [Engine.Replay].
func NewReplay(ctx context.Context, cfg config.Config, log *slog.Logger) (*Engine, error) {
	return newEngine(ctx, cfg, log)
}

func newEngine(ctx context.Context, cfg config.Config, log *slog.Logger) (*Engine, error) {
	timeout := time.Duration(cfg.ExecTimeoutMS) * time.Millisecond

	mode := tracer.ForkServer
	if cfg.NoForkServer {
		mode = tracer.SpawnPerCall
	}

	session, err := tracer.NewSession(ctx, tracer.Config{
		Path:    cfg.Target,
		Args:    cfg.TargetArgs,
		Mode:    mode,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("engine: start tracer session: %w", err)
	}

	var nativeSession *tracer.Session

	if cfg.NativeTarget != "" {
		nativeSession, err = tracer.NewSession(ctx, tracer.Config{
			Path:    cfg.NativeTarget,
			Args:    cfg.TargetArgs,
			Mode:    tracer.SpawnPerCall,
			Timeout: timeout,
		})
		if err != nil {
			_ = session.Close()

			return nil, fmt.Errorf("engine: start native tracer session: %w", err)
		}
	}

	exec := executor.New(session, nativeSession)
	driver := concolic.New(exec, cfg.NSpawn, cfg.NSolve)

	statsDir := filepath.Join(cfg.OutputDir, ".graycon")
	if err := os.MkdirAll(statsDir, 0o750); err != nil {
		closeAll(session, nativeSession)

		return nil, fmt.Errorf("engine: create stats directory: %w", err)
	}

	stats, err := queue.OpenStatsIndex(ctx, filepath.Join(statsDir, "stats.sqlite"))
	if err != nil {
		closeAll(session, nativeSession)

		return nil, err
	}

	return &Engine{
		cfg:           cfg,
		log:           log,
		session:       session,
		nativeSession: nativeSession,
		exec:          exec,
		driver:        driver,
		Queue:         queue.New(),
		Scheduler:     queue.NewScheduler(time.Duration(cfg.BudgetSeconds) * time.Second),
		artifacts:     queue.NewArtifactWriter(cfg.OutputDir),
		stats:         stats,
		rng:           rand.New(rand.NewSource(1)),
	}, nil
}

func closeAll(sessions ...*tracer.Session) {
	for _, s := range sessions {
		if s != nil {
			_ = s.Close()
		}
	}
}

// Close tears down the tracer session(s) and the stats index.
func (e *Engine) Close() error {
	var err error

	if e.nativeSession != nil {
		err = e.nativeSession.Close()
	}

	if cerr := e.session.Close(); cerr != nil {
		err = cerr
	}

	if serr := e.stats.Close(); serr != nil {
		err = serr
	}

	return err
}

// loadSeeds reads every regular file directly under cfg.InputDir as one
// fully-[byteval.Untouched] seed (spec.md §4.2 start state).
func loadSeeds(cfg config.Config) ([]*seed.Seed, error) {
	entries, err := os.ReadDir(cfg.InputDir)
	if err != nil {
		return nil, fmt.Errorf("engine: read input directory: %w", err)
	}

	source := seed.StdInput()
	if !cfg.StdinInput {
		source = seed.FileInput(filepath.Join(cfg.OutputDir, ".graycon", "current-input"))
	}

	var out []*seed.Seed

	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}

		path := filepath.Join(cfg.InputDir, ent.Name())

		s, err := LoadSeedFile(path, source)
		if err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, nil
}

// LoadSeedFile reads path into a fully-untouched [seed.Seed] backed by
// source, with the cursor at byte 0. Used both for initial corpus loading
// and by `graycon replay`.
func LoadSeedFile(path string, source seed.Source) (*seed.Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("engine: read seed file %s: %w", path, err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("engine: seed file %s is empty", path)
	}

	vals := make([]byteval.Value, len(raw))
	for i, b := range raw {
		vals[i] = byteval.NewUntouched(b)
	}

	s, err := seed.New(vals, 0, seed.Right, source)
	if err != nil {
		return nil, fmt.Errorf("engine: build seed from %s: %w", path, err)
	}

	return s, nil
}
