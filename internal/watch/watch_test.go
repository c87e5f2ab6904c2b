package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRunFiresOncePerBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "documents.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	w, err := NewFileWatcher(path, 200*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	fired := make(chan struct{}, 10)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) { fired <- struct{}{} })
	}()

	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("{\"content\":\"x\"}\n"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}
	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644))

	select {
	case <-fired:
	case <-ctx.Done():
		t.Fatal("timeout waiting for rebuild trigger")
	}
	select {
	case <-fired:
		t.Fatal("burst should trigger a single rebuild")
	case <-time.After(500 * time.Millisecond):
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileWatcher(filepath.Join(dir, "documents.jsonl"), 100*time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancel()

	fired := make(chan struct{}, 1)
	go func() { _ = w.Run(ctx, func(context.Context) { fired <- struct{}{} }) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))

	select {
	case <-fired:
		t.Error("should not fire for other files")
	case <-ctx.Done():
	}
}
