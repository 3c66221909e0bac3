package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darkmc/plugin-forge/internal/store"
)

// scriptedFetcher returns its statuses in order, then repeats the last one.
type scriptedFetcher struct {
	mu       sync.Mutex
	statuses []Status
	errs     []error
	calls    int
}

func (f *scriptedFetcher) FetchStatus(ctx context.Context, jobID string) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return Status{}, f.errs[i]
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPoller_StopsOnTerminalStatus(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []Status{
		{ID: "j1", Status: store.JobProcessing, Progress: 20},
		{ID: "j1", Status: store.JobProcessing, Progress: 60},
		{ID: "j1", Status: store.JobCompleted, Progress: 100},
	}}

	var progress []int
	var done []Status
	p := NewPoller(fetcher, zerolog.Nop(),
		WithInterval(5*time.Millisecond),
		WithProgress(func(s Status) { progress = append(progress, s.Progress) }),
		WithDone(func(s Status) { done = append(done, s) }),
	)

	finished := make(chan struct{})
	go func() {
		p.Run(context.Background(), "j1")
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop on terminal status")
	}

	require.Len(t, done, 1, "completion callback fires exactly once")
	assert.Equal(t, store.JobCompleted, done[0].Status)
	assert.Equal(t, []int{20, 60, 100}, progress)

	calls := fetcher.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, fetcher.callCount(), "no checks after terminal status")
}

func TestPoller_FirstCheckIsImmediate(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []Status{
		{ID: "j1", Status: store.JobFailed, ErrorMessage: "boom"},
	}}

	var done Status
	p := NewPoller(fetcher, zerolog.Nop(),
		WithInterval(time.Hour),
		WithDone(func(s Status) { done = s }),
	)

	start := time.Now()
	p.Run(context.Background(), "j1")

	assert.Less(t, time.Since(start), time.Second, "terminal on first check returns without waiting an interval")
	assert.Equal(t, store.JobFailed, done.Status)
	assert.Equal(t, "boom", done.ErrorMessage)
}

func TestPoller_FetchErrorsAreRetried(t *testing.T) {
	fetcher := &scriptedFetcher{
		errs: []error{errors.New("connection refused"), errors.New("timeout")},
		statuses: []Status{
			{}, {},
			{ID: "j1", Status: store.JobCompleted, Progress: 100},
		},
	}

	var done []Status
	p := NewPoller(fetcher, zerolog.Nop(),
		WithInterval(5*time.Millisecond),
		WithDone(func(s Status) { done = append(done, s) }),
	)
	p.Run(context.Background(), "j1")

	require.Len(t, done, 1)
	assert.GreaterOrEqual(t, fetcher.callCount(), 3)
}

func TestPoller_ContextCancelStopsWithoutDone(t *testing.T) {
	fetcher := &scriptedFetcher{statuses: []Status{
		{ID: "j1", Status: store.JobProcessing, Progress: 10},
	}}

	var doneCalls int
	p := NewPoller(fetcher, zerolog.Nop(),
		WithInterval(5*time.Millisecond),
		WithDone(func(Status) { doneCalls++ }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		p.Run(ctx, "j1")
		close(finished)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancel")
	}
	assert.Zero(t, doneCalls, "cancellation is not completion")
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, Status{Status: store.JobPending}.Terminal())
	assert.False(t, Status{Status: store.JobProcessing}.Terminal())
	assert.True(t, Status{Status: store.JobCompleted}.Terminal())
	assert.True(t, Status{Status: store.JobFailed}.Terminal())
}
