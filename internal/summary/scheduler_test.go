package summary

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tchow-twistedxcom/agent-watch/internal/logging"
)

// fakeClient blocks until release is closed, then returns reply or err.
type fakeClient struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	reply   string
	err     error
}

func newFakeClient(reply string) *fakeClient {
	return &fakeClient{release: make(chan struct{}), reply: reply}
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	select {
	case <-f.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func (f *fakeClient) Provider() string { return "fake" }

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitResult(t *testing.T, s *Scheduler) Result {
	t.Helper()
	select {
	case r := <-s.Results():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for summary result")
		return Result{}
	}
}

func testScheduler(client Client) *Scheduler {
	return NewScheduler(client, logging.Logger())
}

func TestScheduler_DeliversParsedSummary(t *testing.T) {
	client := newFakeClient("Goal: Ship it\nProgress: Testing\nNeeds user: no")
	close(client.release)
	s := testScheduler(client)

	require.True(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "output"))

	res := waitResult(t, s)
	assert.NoError(t, res.Err)
	assert.Equal(t, "w:0.0", res.PaneID)
	assert.Equal(t, "Ship it", res.Summary.Goal)

	cached, ok := s.Cached("w:0.0")
	require.True(t, ok)
	assert.Equal(t, "Ship it", cached.Goal)
}

func TestScheduler_NoSecondRequestWhileInFlight(t *testing.T) {
	client := newFakeClient("Goal: g\nProgress: p\nNeeds user: no")
	s := testScheduler(client)

	require.True(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "a"))
	assert.False(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "b"))
	assert.False(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "c"))

	close(client.release)
	waitResult(t, s)
	assert.Equal(t, 1, client.callCount())
}

func TestScheduler_ThrottlesByInterval(t *testing.T) {
	client := newFakeClient("Goal: g\nProgress: p\nNeeds user: no")
	close(client.release)
	s := NewScheduler(client, logging.Logger(), WithInterval(time.Hour))

	require.True(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "a"))
	waitResult(t, s)

	// Within the interval: nothing new, even after completion.
	assert.False(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "b"))
	assert.Equal(t, 1, client.callCount())
}

func TestScheduler_FailureStillCountsAsAttempt(t *testing.T) {
	client := newFakeClient("")
	client.err = errors.New("rate limited")
	close(client.release)
	s := NewScheduler(client, logging.Logger(), WithInterval(time.Hour))

	require.True(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "a"))
	res := waitResult(t, s)
	require.Error(t, res.Err)

	// A broken provider is not retried every tick.
	assert.False(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "b"))

	_, ok := s.Cached("w:0.0")
	assert.False(t, ok, "failed attempts must not populate the cache")
}

func TestScheduler_RequestRefreshBypassesThrottle(t *testing.T) {
	client := newFakeClient("Goal: g\nProgress: p\nNeeds user: no")
	close(client.release)
	s := NewScheduler(client, logging.Logger(), WithInterval(time.Hour))

	require.True(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "a"))
	waitResult(t, s)

	s.RequestRefresh("w:0.0")
	// The in-flight flag clears just after the result is delivered.
	require.Eventually(t, func() bool {
		return s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "b")
	}, 2*time.Second, 10*time.Millisecond)
	waitResult(t, s)
	assert.Equal(t, 2, client.callCount())
}

func TestScheduler_ForgetDiscardsInFlightResult(t *testing.T) {
	client := newFakeClient("Goal: g\nProgress: p\nNeeds user: no")
	s := testScheduler(client)

	require.True(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "a"))
	s.Forget("w:0.0")
	close(client.release)

	select {
	case r := <-s.Results():
		t.Fatalf("expected no result after Forget, got %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
	_, ok := s.Cached("w:0.0")
	assert.False(t, ok)
}

func TestScheduler_IndependentPanes(t *testing.T) {
	client := newFakeClient("Goal: g\nProgress: p\nNeeds user: no")
	close(client.release)
	s := testScheduler(client)

	require.True(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "a"))
	require.True(t, s.MaybeSchedule(context.Background(), "w:0.1", "Aider", "b"))

	got := map[string]bool{}
	got[waitResult(t, s).PaneID] = true
	got[waitResult(t, s).PaneID] = true
	assert.True(t, got["w:0.0"])
	assert.True(t, got["w:0.1"])
}

func TestScheduler_NilClientNeverSchedules(t *testing.T) {
	s := testScheduler(nil)
	assert.False(t, s.MaybeSchedule(context.Background(), "w:0.0", "Claude", "a"))
}
