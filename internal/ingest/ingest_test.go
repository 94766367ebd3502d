package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docproc/constants"
	"github.com/joseph-ayodele/docproc/internal/async"
	"github.com/joseph-ayodele/docproc/internal/pipeline"
)

type recordingQueue struct {
	mu   sync.Mutex
	reqs []pipeline.Request
	err  error
}

func (q *recordingQueue) EnqueueWait(_ context.Context, req pipeline.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.reqs = append(q.reqs, req)
	return nil
}

func (q *recordingQueue) refs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.reqs))
	for i, r := range q.reqs {
		out[i] = r.DocumentRef
	}
	return out
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o644))
}

func TestScanDir(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "a.PNG"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, ".hidden.pdf"))
	touch(t, filepath.Join(root, ".cache", "c.pdf"))
	touch(t, filepath.Join(root, "sub", "d.jpg"))

	paths, stats, err := ScanDir(root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.PNG"),
		filepath.Join(root, "b.pdf"),
		filepath.Join(root, "sub", "d.jpg"),
	}, paths)
	assert.EqualValues(t, 4, stats.Scanned)
	assert.EqualValues(t, 3, stats.Matched)

	paths, _, err = ScanDir(root, false)
	require.NoError(t, err)
	assert.Len(t, paths, 5)

	_, _, err = ScanDir(filepath.Join(root, "missing"), true)
	assert.Error(t, err)
	_, _, err = ScanDir(" ", true)
	assert.Error(t, err)
}

func TestInboxSubmitDir(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "a.pdf"))
	touch(t, filepath.Join(root, "b.pdf"))

	q := &recordingQueue{}
	in := NewInbox(q, "static_invoice", nil)
	stats, err := in.SubmitDir(context.Background(), root, true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Failed)
	require.Len(t, q.reqs, 2)
	assert.Equal(t, "static_invoice", q.reqs[0].TemplateName)

	full := &recordingQueue{err: errors.New("full")}
	stats, err = NewInbox(full, "t", nil).SubmitDir(context.Background(), root, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Failed)
}

func TestInboxWatch(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.pdf"))

	q := &recordingQueue{}
	in := NewInbox(q, "inv", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- in.Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, SkipHidden: true})
	}()

	require.Eventually(t, func() bool { return len(q.refs()) == 1 }, 2*time.Second, 10*time.Millisecond)

	touch(t, filepath.Join(root, "new.pdf"))
	touch(t, filepath.Join(root, "ignored.txt"))
	require.Eventually(t, func() bool {
		for _, r := range q.refs() {
			if r == filepath.Join(root, "new.pdf") {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	for _, r := range q.refs() {
		assert.NotEqual(t, filepath.Join(root, "ignored.txt"), r)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestStartWatcherNoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}

type countingProcessor struct {
	mu   sync.Mutex
	seen map[string]int
}

func (p *countingProcessor) Process(_ context.Context, req pipeline.Request) (pipeline.Run, error) {
	time.Sleep(2 * time.Millisecond)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen[req.DocumentRef]++
	return pipeline.Run{State: constants.StateAcknowledged, Request: req}, nil
}

func (p *countingProcessor) distinct() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}

func TestInboxBurstLargerThanQueue(t *testing.T) {
	const capacity = 4
	root := t.TempDir()
	for i := 0; i < 2*capacity; i++ {
		touch(t, filepath.Join(root, fmt.Sprintf("inv-%02d.pdf", i)))
	}

	proc := &countingProcessor{seen: map[string]int{}}
	q := async.NewProcessorQueue(proc, nil, async.WithWorkers(1), async.WithQueueSize(capacity))
	in := NewInbox(q, "inv", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = in.Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, SkipHidden: true}) }()

	// files landing while the queue is still busy with the initial scan
	for i := 0; i < 2*capacity; i++ {
		touch(t, filepath.Join(root, fmt.Sprintf("late-%02d.pdf", i)))
	}

	require.Eventually(t, func() bool { return proc.distinct() == 4*capacity }, 5*time.Second, 10*time.Millisecond)
	cancel()
	q.Shutdown(context.Background())
}

func TestInboxSubmitDirBurst(t *testing.T) {
	const capacity = 3
	root := t.TempDir()
	for i := 0; i < 2*capacity; i++ {
		touch(t, filepath.Join(root, fmt.Sprintf("doc-%d.pdf", i)))
	}
	proc := &countingProcessor{seen: map[string]int{}}
	q := async.NewProcessorQueue(proc, nil, async.WithWorkers(1), async.WithQueueSize(capacity))

	stats, err := NewInbox(q, "inv", nil).SubmitDir(context.Background(), root, true)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Failed)

	q.Shutdown(context.Background())
	assert.Equal(t, 2*capacity, proc.distinct())
}
