package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/asmacro/internal/testutil"
)

func TestWatcher_Matches(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "lib")
	hidden := filepath.Join(dir, ".git")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.MkdirAll(hidden, 0o755))
	other := t.TempDir()
	named := filepath.Join(other, "main.txt")
	require.NoError(t, os.WriteFile(named, nil, 0o600))

	w := New(Config{Paths: []string{dir, named}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx, func(context.Context, []string) error { return nil }))

	assert.True(t, w.matches(filepath.Join(dir, "a.s")))
	assert.True(t, w.matches(filepath.Join(sub, "b.inc")))
	assert.False(t, w.matches(filepath.Join(sub, "notes.md")))
	assert.False(t, w.matches(filepath.Join(hidden, "c.s")), "hidden directories are skipped")
	assert.True(t, w.matches(named), "named files match regardless of extension")
	assert.False(t, w.matches(filepath.Join(other, "sibling.s")), "siblings of named files are not watched")
}

func TestWatcher_MissingPath(t *testing.T) {
	w := New(Config{Paths: []string{filepath.Join(t.TempDir(), "nope")}})
	err := w.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}

func TestWatcher_Debounces(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.s")
	require.NoError(t, os.WriteFile(file, []byte("nop\n"), 0o600))

	w := New(Config{Paths: []string{dir}, Debounce: 50 * time.Millisecond, Logger: testutil.NewTestLogger(t)})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	calls := make(chan []string, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		})
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(file, []byte("nop\nnop\n"), 0o600))
	}

	select {
	case changed := <-calls:
		assert.Equal(t, []string{file}, changed)
	case <-ctx.Done():
		t.Fatal("no change reported")
	}

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, calls, "rapid writes are batched into one call")
}

func TestWatcher_HandlerErrorKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "boot.S")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	logger, logs := testutil.NewBufferLogger(slog.LevelError)
	w := New(Config{Paths: []string{file}, Debounce: 20 * time.Millisecond, Logger: logger})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	calls := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context, []string) error {
			calls <- struct{}{}
			return errors.New("boom")
		})
	}()

	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(file, []byte("nop\n"), 0o600))
		select {
		case <-calls:
		case <-ctx.Done():
			t.Fatalf("change %d not reported", i+1)
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, logs.String(), "change handler failed")
	assert.Contains(t, logs.String(), "boom")
}
