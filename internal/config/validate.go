package config

import (
	"errors"
	"fmt"
	"os"
)

// Validation errors, checked with errors.Is.
var (
	ErrTargetRequired    = errors.New("config: target is required")
	ErrTargetNotFound    = errors.New("config: target binary not found")
	ErrTargetNotExec     = errors.New("config: target binary is not executable")
	ErrInputDirRequired  = errors.New("config: input directory is required")
	ErrOutputDirRequired = errors.New("config: output directory is required")
	ErrOutputDirWrite    = errors.New("config: output directory is not writable")
	ErrNSpawnTooSmall    = errors.New("config: nspawn must be at least 3 (inference needs at least three samples)")
)

// Validate checks that cfg describes a runnable fuzzing session: the
// tracer and, if set, native target binaries exist and are executable,
// the input directory is present, the output directory is writable, and
// nspawn leaves inference enough samples to work with (original_source
// cli_compat/fuzzer.cpp's option validation, spec.md §5 item 1).
func Validate(cfg Config) error {
	if cfg.Target == "" {
		return ErrTargetRequired
	}

	if err := checkExecutable(cfg.Target); err != nil {
		return err
	}

	if cfg.NativeTarget != "" {
		if err := checkExecutable(cfg.NativeTarget); err != nil {
			return err
		}
	}

	if cfg.InputDir == "" {
		return ErrInputDirRequired
	}

	if _, err := os.Stat(cfg.InputDir); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInputDirRequired, cfg.InputDir, err)
	}

	if cfg.OutputDir == "" {
		return ErrOutputDirRequired
	}

	if err := checkWritableDir(cfg.OutputDir); err != nil {
		return err
	}

	if cfg.NSpawn < 3 {
		return ErrNSpawnTooSmall
	}

	return nil
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTargetNotFound, path, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrTargetNotExec, path)
	}

	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%w: %s", ErrTargetNotExec, path)
	}

	return nil
}

func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputDirWrite, dir, err)
	}

	probe, err := os.CreateTemp(dir, ".graycon-writable-*")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrOutputDirWrite, dir, err)
	}

	path := probe.Name()
	_ = probe.Close()
	_ = os.Remove(path)

	return nil
}
