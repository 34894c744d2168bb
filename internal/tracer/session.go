package tracer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/graycon/graycon/internal/branch"
)

// ErrForkServerTimeout is returned when the fork-server child does not
// signal readiness within its startup deadline (spec.md §4.1b).
var ErrForkServerTimeout = errors.New("tracer: fork-server did not signal readiness in time")

// Mode selects how the target is invoked.
type Mode int

const (
	// ForkServer spawns the target once and reuses it across executions,
	// synchronized by the readiness handshake of spec.md §4.1b.
	ForkServer Mode = iota
	// SpawnPerCall execs a fresh target process for every candidate.
	SpawnPerCall
)

// Config describes how to reach the instrumented target binary.
type Config struct {
	Path    string
	Args    []string
	Mode    Mode
	Timeout time.Duration
}

// Session is one live connection to a tracer child. It carries a UUIDv7
// correlation id ([Session.ID]); no log line includes it
// (spec.md §5, ambient "process correlation").
type Session struct {
	cfg Config
	id  uuid.UUID

	cmd    *exec.Cmd
	toCh   *os.File // writes reach the child's stdin
	fromCh *os.File // reads come from the child's response pipe
	ready  *os.File // fork-server status pipe
}

// NewSession prepares a tracer session. In [ForkServer] mode the child is
// started immediately and its readiness handshake is awaited; in
// [SpawnPerCall] mode the child is started fresh inside every [Execute].
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("tracer: generating session id: %w", err)
	}

	s := &Session{cfg: cfg, id: id}

	if cfg.Mode == ForkServer {
		if err := s.startForkServer(ctx); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// ID returns the session's correlation UUID.
func (s *Session) ID() uuid.UUID { return s.id }

// Close releases the fork-server child, if one is running.
func (s *Session) Close() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}

	_ = s.killGroup(unix.SIGKILL)

	return s.cmd.Wait() //nolint:errcheck // best-effort cleanup
}

// Result is the decoded outcome of one target execution.
type Result struct {
	Signal Signal
	Infos  []branch.Info
	Output []byte
}

// Execute runs the target once against input, returning within
// [Config.Timeout]; on timeout the whole process group is killed with
// SIGKILL so no orphaned children survive the watchdog (spec.md §4.1).
func (s *Session) Execute(ctx context.Context, input []byte) (Result, error) {
	if s.cfg.Mode == SpawnPerCall {
		return s.executeSpawnPerCall(ctx, input)
	}

	return s.executeForkServer(ctx, input)
}

func (s *Session) startForkServer(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, s.cfg.Path, s.cfg.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	toChRead, toChWrite, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("tracer: creating request pipe: %w", err)
	}

	fromChRead, fromChWrite, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("tracer: creating response pipe: %w", err)
	}

	readyRead, readyWrite, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("tracer: creating readiness pipe: %w", err)
	}

	cmd.Stdin = toChRead
	cmd.Stdout = fromChWrite
	cmd.ExtraFiles = []*os.File{readyWrite}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("tracer: starting fork-server child: %w", err)
	}

	_ = toChRead.Close()
	_ = fromChWrite.Close()
	_ = readyWrite.Close()

	s.cmd = cmd
	s.toCh = toChWrite
	s.fromCh = fromChRead
	s.ready = readyRead

	return s.awaitReadiness()
}

// awaitReadiness blocks until the child writes its single 0x00 readiness
// byte, bounded by the configured timeout as a startup deadline
// (spec.md §4.1b).
func (s *Session) awaitReadiness() error {
	done := make(chan error, 1)

	go func() {
		buf := make([]byte, 1)
		_, err := s.ready.Read(buf)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrForkServerTimeout, err) //nolint:errorlint
		}

		return nil
	case <-time.After(s.cfg.Timeout):
		_ = s.killGroup(unix.SIGKILL)

		return ErrForkServerTimeout
	}
}

func (s *Session) executeForkServer(ctx context.Context, input []byte) (Result, error) {
	if _, err := s.toCh.Write(input); err != nil {
		return Result{}, fmt.Errorf("tracer: writing request: %w", err)
	}

	return s.readWithWatchdog(ctx)
}

func (s *Session) executeSpawnPerCall(ctx context.Context, input []byte) (Result, error) {
	cmd := exec.CommandContext(ctx, s.cfg.Path, s.cfg.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin = bytes.NewReader(input)

	out, err := cmd.StdoutPipe()
	if err != nil {
		return Result{}, fmt.Errorf("tracer: attaching stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("tracer: starting target: %w", err)
	}

	respCh := make(chan response, 1)
	errCh := make(chan error, 1)

	go func() {
		resp, err := decodeResponse(out)
		if err != nil {
			errCh <- err
			return
		}

		respCh <- resp
	}()

	watchdog := time.AfterFunc(s.cfg.Timeout, func() {
		if cmd.Process != nil {
			_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		}
	})
	defer watchdog.Stop()

	select {
	case resp := <-respCh:
		waitErr := cmd.Wait()

		return signalFromWait(resp, waitErr), nil
	case err := <-errCh:
		waitErr := cmd.Wait()

		if isTimeoutKill(waitErr) {
			return Result{Signal: Timeout}, nil
		}

		return Result{Signal: Error}, fmt.Errorf("tracer: decoding response: %w", err)
	case <-ctx.Done():
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		_ = cmd.Wait()

		return Result{Signal: Timeout}, nil
	}
}

func (s *Session) readWithWatchdog(ctx context.Context) (Result, error) {
	respCh := make(chan response, 1)
	errCh := make(chan error, 1)

	go func() {
		resp, err := decodeResponse(s.fromCh)
		if err != nil {
			errCh <- err
			return
		}

		respCh <- resp
	}()

	select {
	case resp := <-respCh:
		return Result{Signal: Normal, Infos: resp.Infos, Output: resp.Output}, nil
	case err := <-errCh:
		return Result{Signal: Error}, fmt.Errorf("tracer: decoding response: %w", err)
	case <-time.After(s.cfg.Timeout):
		_ = s.killGroup(unix.SIGKILL)

		return Result{Signal: Timeout}, nil
	case <-ctx.Done():
		_ = s.killGroup(unix.SIGKILL)

		return Result{Signal: Timeout}, ctx.Err()
	}
}

func (s *Session) killGroup(sig unix.Signal) error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}

	return unix.Kill(-s.cmd.Process.Pid, sig)
}

func signalFromWait(resp response, waitErr error) Result {
	result := Result{Signal: Normal, Infos: resp.Infos, Output: resp.Output}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			result.Signal = DecodeWaitStatus(ws)
		}
	}

	return result
}

func isTimeoutKill(waitErr error) bool {
	var exitErr *exec.ExitError

	if !errors.As(waitErr, &exitErr) {
		return false
	}

	ws, ok := exitErr.Sys().(syscall.WaitStatus)

	return ok && ws.Signaled() && ws.Signal() == syscall.SIGKILL
}
