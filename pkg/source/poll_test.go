package source

import (
	"context"
	stderrors "errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/topology"
)

var errBoom = stderrors.New("boom")

// scriptedFetch returns the scripted results in order, repeating the last.
func scriptedFetch(results ...error) (FetchFunc, *atomic.Int32) {
	var calls atomic.Int32
	return func(ctx context.Context) (topology.Snapshot, error) {
		i := int(calls.Add(1)) - 1
		if i >= len(results) {
			i = len(results) - 1
		}
		if err := results[i]; err != nil {
			return topology.Snapshot{}, err
		}
		return topology.Snapshot{Nodes: []topology.Node{{ID: "s1", Type: topology.TypeSwitch}}}, nil
	}, &calls
}

func next(t *testing.T, s Stream) Event {
	t.Helper()
	select {
	case ev, ok := <-s.Events():
		require.True(t, ok, "stream closed early")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func requireClosed(t *testing.T, s Stream) {
	t.Helper()
	select {
	case _, ok := <-s.Events():
		require.False(t, ok, "expected stream to be closed")
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not close")
	}
}

func newPoll(t *testing.T, fetch FetchFunc) (Stream, *testingclock.FakeClock) {
	clk := testingclock.NewFakeClock(time.Unix(0, 0))
	s := Poll(context.Background(), fetch, PollConfig{
		Interval: time.Second,
		Clock:    clk,
		Logger:   log.New(io.Discard),
	})
	t.Cleanup(s.Close)
	return s, clk
}

func tick(t *testing.T, clk *testingclock.FakeClock) {
	t.Helper()
	require.Eventually(t, clk.HasWaiters, 5*time.Second, time.Millisecond)
	clk.Step(time.Second)
}

func TestPollInitialFailureIsFatal(t *testing.T) {
	fetch, _ := scriptedFetch(errBoom)
	s, _ := newPoll(t, fetch)

	ev := next(t, s)
	require.Equal(t, EventError, ev.Kind)
	assert.Equal(t, errors.ErrCodeInitialConnectionFailed, ev.Err.Code)
	assert.True(t, ev.Err.Fatal())
	requireClosed(t, s)
}

func TestPollEmitsSnapshots(t *testing.T) {
	fetch, calls := scriptedFetch(nil)
	s, clk := newPoll(t, fetch)

	ev := next(t, s)
	require.Equal(t, EventTopology, ev.Kind)
	assert.Len(t, ev.Snapshot.Nodes, 1)

	tick(t, clk)
	assert.Equal(t, EventTopology, next(t, s).Kind)
	assert.EqualValues(t, 2, calls.Load())
}

func TestPollTransientErrorsThenMaxErrors(t *testing.T) {
	fetch, _ := scriptedFetch(nil, errBoom, nil, errBoom, errBoom, errBoom)
	s, clk := newPoll(t, fetch)

	require.Equal(t, EventTopology, next(t, s).Kind)

	tick(t, clk)
	ev := next(t, s)
	require.Equal(t, EventError, ev.Kind)
	assert.Equal(t, errors.ErrCodeFetch, ev.Err.Code)
	assert.False(t, ev.Err.Fatal())

	// A success resets the failure count.
	tick(t, clk)
	require.Equal(t, EventTopology, next(t, s).Kind)

	for range DefaultMaxErrors {
		tick(t, clk)
		assert.Equal(t, errors.ErrCodeFetch, next(t, s).Err.Code)
	}
	ev = next(t, s)
	assert.Equal(t, errors.ErrCodeMaxErrorsReached, ev.Err.Code)
	assert.True(t, ev.Err.Fatal())
	requireClosed(t, s)
}

func TestPollCloseStopsDelivery(t *testing.T) {
	fetch, _ := scriptedFetch(nil)
	s, _ := newPoll(t, fetch)

	// Nobody reads the first event; Close must still return.
	s.Close()
	s.Close()

	for range s.Events() {
	}
}
