package queue

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/graycon/graycon/pkg/fs"
)

// Kind tags which durable artifact a seed is being persisted as.
type Kind int

const (
	// TestCaseKind is a non-crashing candidate kept for coverage.
	TestCaseKind Kind = iota
	// CrashKind is a confirmed crash.
	CrashKind
)

// ArtifactName formats seq as the "id:NNNNNN" hex filename the original
// uses for both queue/ and crashes/ entries (original_source
// fuzz/test_case.cpp's DumpCrash/DumpTestCase, cli/cli.cpp's id helper).
// kind does not change the format (both kinds share it in the original)
// but documents at the call site which counter seq came from.
func ArtifactName(kind Kind, seq uint64) string {
	_ = kind

	return fmt.Sprintf("id:%06x", seq)
}

// ArtifactWriter durably persists concretized seed bytes under outDir's
// queue/ or crashes/ subdirectory, using the teacher's atomic
// temp-file-then-rename technique (pkg/fs.AtomicWriter) so a crash mid-write
// never leaves a truncated artifact behind.
type ArtifactWriter struct {
	outDir string
	atomic *fs.AtomicWriter
}

// NewArtifactWriter returns an ArtifactWriter rooted at outDir.
func NewArtifactWriter(outDir string) *ArtifactWriter {
	return &ArtifactWriter{
		outDir: outDir,
		atomic: fs.NewAtomicWriter(fs.NewReal()),
	}
}

func (w *ArtifactWriter) subdir(kind Kind) string {
	if kind == CrashKind {
		return "crashes"
	}

	return "queue"
}

// Write durably persists data as the given kind's artifact seq, returning
// the path it was written to.
func (w *ArtifactWriter) Write(kind Kind, seq uint64, data []byte) (string, error) {
	path := filepath.Join(w.outDir, w.subdir(kind), ArtifactName(kind, seq))

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", fmt.Errorf("queue: create artifact directory: %w", err)
	}

	if err := w.atomic.WriteWithDefaults(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("queue: write artifact %s: %w", path, err)
	}

	return path, nil
}
