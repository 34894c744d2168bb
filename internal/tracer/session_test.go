package tracer

import (
	"context"
	"encoding/binary"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyResponseScript prints a well-formed, record-less tracer response
// frame (header only, no branch records, no output) to stdout.
func emptyResponseScript(t *testing.T) string {
	t.Helper()

	var buf [headerSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], 0)
	binary.LittleEndian.PutUint32(buf[4:8], 0)
	binary.LittleEndian.PutUint32(buf[8:12], 0)

	script := "printf '"
	for _, b := range buf {
		script += fmt.Sprintf("\\%03o", b)
	}

	return script + "'"
}

func TestSession_SpawnPerCall_NormalExit(t *testing.T) {
	s, err := NewSession(context.Background(), Config{
		Path:    "/bin/sh",
		Args:    []string{"-c", emptyResponseScript(t)},
		Mode:    SpawnPerCall,
		Timeout: time.Second,
	})
	require.NoError(t, err)

	res, err := s.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Normal, res.Signal)
	assert.Empty(t, res.Infos)
}

func TestSession_SpawnPerCall_CrashSignal(t *testing.T) {
	script := emptyResponseScript(t) + "; kill -SEGV $$"

	s, err := NewSession(context.Background(), Config{
		Path:    "/bin/sh",
		Args:    []string{"-c", script},
		Mode:    SpawnPerCall,
		Timeout: time.Second,
	})
	require.NoError(t, err)

	res, err := s.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, SIGSEGV, res.Signal)
}

func TestSession_SpawnPerCall_WatchdogKillsOnTimeout(t *testing.T) {
	s, err := NewSession(context.Background(), Config{
		Path:    "/bin/sh",
		Args:    []string{"-c", "sleep 5"},
		Mode:    SpawnPerCall,
		Timeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	res, err := s.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Timeout, res.Signal)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestSession_ForkServer_ReadinessHandshake(t *testing.T) {
	script := "printf '\\000' >&3; head -c 1 >/dev/null; " + emptyResponseScript(t)

	s, err := NewSession(context.Background(), Config{
		Path:    "/bin/sh",
		Args:    []string{"-c", script},
		Mode:    ForkServer,
		Timeout: time.Second,
	})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	res, err := s.Execute(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, Normal, res.Signal)
}

func TestSession_ForkServer_TimesOutWithoutReadinessByte(t *testing.T) {
	_, err := NewSession(context.Background(), Config{
		Path:    "/bin/sh",
		Args:    []string{"-c", "sleep 5"},
		Mode:    ForkServer,
		Timeout: 50 * time.Millisecond,
	})
	assert.ErrorIs(t, err, ErrForkServerTimeout)
}
