package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func waitResult(t *testing.T, w *Watcher) *Result {
	t.Helper()
	select {
	case res, ok := <-w.Results():
		require.True(t, ok, "results channel closed early")
		return res
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for a review result")
		return nil
	}
}

func TestWatcherReviewsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    return 1\n")

	e := newTestEngine(t, root, nil)
	w, err := NewWatcher(e, 50*time.Millisecond)
	require.NoError(t, err)

	w.Start(context.Background())
	defer w.Stop()

	first := waitResult(t, w)
	assert.Zero(t, first.Summary.Total(), "the initial review sets the baseline")

	writeFile(t, root, "a.py", "def f():\n    return 2\n")

	second := waitResult(t, w)
	assert.Equal(t, 1, second.Summary.Warnings)
	assert.Greater(t, second.Generation, first.Generation)
}

func TestWatcherStopIsIdempotentWithPendingTimer(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	writeFile(t, root, "a.py", "def f():\n    return 1\n")

	e := newTestEngine(t, root, nil)
	w, err := NewWatcher(e, time.Hour)
	require.NoError(t, err)

	w.Start(context.Background())
	w.Stop()

	_, ok := <-w.Results()
	assert.False(t, ok, "stop closes the results channel")
}
