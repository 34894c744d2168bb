package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun_PrintsUsageOnBareInvocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "no args", args: []string{"graycon"}},
		{name: "long flag", args: []string{"graycon", "--help"}},
		{name: "short flag", args: []string{"graycon", "-h"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var stdout, stderr bytes.Buffer

			exitCode := Run(nil, &stdout, &stderr, tc.args, nil, nil)

			assert.Equal(t, 0, exitCode)
			assert.Empty(t, stderr.String())

			out := stdout.String()
			assert.Contains(t, out, "graycon - a gray-box concolic fuzzing engine")
			assert.Contains(t, out, "--cwd")
			assert.Contains(t, out, "fuzz")
			assert.Contains(t, out, "replay")
		})
	}
}

func TestRun_UnknownCommandExitsNonZero(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	exitCode := Run(nil, &stdout, &stderr, []string{"graycon", "bogus"}, nil, nil)

	assert.Equal(t, 1, exitCode)
	assert.True(t, strings.Contains(stderr.String(), "unknown command"))
}

func TestRun_FuzzHelpListsConfigFlags(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	exitCode := Run(nil, &stdout, &stderr, []string{"graycon", "fuzz", "--help"}, nil, nil)

	assert.Equal(t, 0, exitCode)
	assert.Contains(t, stdout.String(), "--nspawn")
	assert.Contains(t, stdout.String(), "--target")
}

func TestRun_ReplayRequiresExactlyOneArgument(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	var stdout, stderr bytes.Buffer

	exitCode := Run(nil, &stdout, &stderr, []string{"graycon", "--cwd", dir, "replay"}, map[string]string{}, nil)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "expected exactly one seed file argument")
}
