package countdown

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"
	"time"

	"remoteshutdown/internal/core/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// manualClock hands out ticks only when the test asks for them.
type manualClock struct {
	ticks chan time.Time
}

func newManualClock() *manualClock {
	return &manualClock{ticks: make(chan time.Time)}
}

func (clock *manualClock) After(time.Duration) <-chan time.Time {
	return clock.ticks
}

func (clock *manualClock) Tick(t *testing.T) {
	t.Helper()
	select {
	case clock.ticks <- time.Now():
	case <-time.After(time.Second):
		t.Fatal("tick loop is not waiting for a tick")
	}
}

type mockExecutor struct {
	mock.Mock
}

func (executor *mockExecutor) Fire(ctx context.Context) error {
	args := executor.Called(ctx)
	return args.Error(0)
}

func newTestEngine(t *testing.T, executor Executor) (*Engine, *manualClock) {
	t.Helper()
	clock := newManualClock()
	engine := New(model.CountdownConfig{Granularity: time.Second}, executor, Config{Clock: clock})
	t.Cleanup(engine.Close)
	return engine, clock
}

func nextEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		require.True(t, ok, "event stream closed")
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case event, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected event %+v", event)
		}
	case <-time.After(20 * time.Millisecond):
	}
}

func TestStartZeroFiresImmediately(t *testing.T) {
	executor := &mockExecutor{}
	executor.On("Fire", mock.Anything).Return(nil).Once()
	engine, _ := newTestEngine(t, executor)
	sub := engine.Subscribe()

	session, err := engine.Start(0)
	require.NoError(t, err)
	assert.Equal(t, 0, session.Ticks)
	assert.NotEmpty(t, session.ID)

	started := nextEvent(t, sub)
	assert.Equal(t, EventStarted, started.Type)
	assert.Equal(t, time.Duration(0), started.Remaining)

	fired := nextEvent(t, sub)
	assert.Equal(t, EventFired, fired.Type)
	assert.Equal(t, session.ID, fired.SessionID)

	engine.Wait()
	executor.AssertNumberOfCalls(t, "Fire", 1)
	assert.Equal(t, StateIdle, engine.State())
	assertNoEvent(t, sub)
}

func TestCountdownFiresAfterTicks(t *testing.T) {
	executor := &mockExecutor{}
	executor.On("Fire", mock.Anything).Return(nil).Once()
	engine, clock := newTestEngine(t, executor)
	sub := engine.Subscribe()

	_, err := engine.Start(5 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, engine.State())

	started := nextEvent(t, sub)
	assert.Equal(t, EventStarted, started.Type)
	assert.Equal(t, 5*time.Second, started.Remaining)

	for _, want := range []int{4, 3, 2, 1, 0} {
		clock.Tick(t)
		event := nextEvent(t, sub)
		assert.Equal(t, EventProgress, event.Type)
		assert.Equal(t, time.Duration(want)*time.Second, event.Remaining)
	}

	fired := nextEvent(t, sub)
	assert.Equal(t, EventFired, fired.Type)
	assert.Equal(t, 1.0, fired.Progress)

	engine.Wait()
	executor.AssertNumberOfCalls(t, "Fire", 1)
	assert.Equal(t, StateIdle, engine.State())
}

func TestAbortStopsCountdown(t *testing.T) {
	executor := &mockExecutor{}
	engine, clock := newTestEngine(t, executor)
	sub := engine.Subscribe()

	_, err := engine.Start(60 * time.Second)
	require.NoError(t, err)
	nextEvent(t, sub)

	for remaining := 59; remaining >= 42; remaining-- {
		clock.Tick(t)
		event := nextEvent(t, sub)
		require.Equal(t, time.Duration(remaining)*time.Second, event.Remaining)
	}

	assert.True(t, engine.Abort())

	aborted := nextEvent(t, sub)
	assert.Equal(t, EventAborted, aborted.Type)
	assert.Equal(t, 42*time.Second, aborted.Remaining)

	engine.Wait()
	executor.AssertNotCalled(t, "Fire", mock.Anything)
	assert.Equal(t, StateIdle, engine.State())
	assertNoEvent(t, sub)
}

func TestStartWhileRunningIsRejected(t *testing.T) {
	executor := &mockExecutor{}
	executor.On("Fire", mock.Anything).Return(nil).Once()
	engine, clock := newTestEngine(t, executor)
	sub := engine.Subscribe()

	first, err := engine.Start(30 * time.Second)
	require.NoError(t, err)

	_, err = engine.Start(10 * time.Second)
	assert.ErrorIs(t, err, ErrNotIdle)

	started := nextEvent(t, sub)
	assert.Equal(t, first.ID, started.SessionID)
	assert.Equal(t, 30*time.Second, started.Total)

	for i := 0; i < 30; i++ {
		clock.Tick(t)
		event := nextEvent(t, sub)
		assert.Equal(t, first.ID, event.SessionID)
	}

	fired := nextEvent(t, sub)
	assert.Equal(t, EventFired, fired.Type)
	assert.Equal(t, 30*time.Second, fired.Total)

	engine.Wait()
	executor.AssertNumberOfCalls(t, "Fire", 1)
}

func TestAbortWhenIdleDoesNotCarryOver(t *testing.T) {
	executor := &mockExecutor{}
	executor.On("Fire", mock.Anything).Return(nil).Once()
	engine, clock := newTestEngine(t, executor)
	sub := engine.Subscribe()

	assert.False(t, engine.Abort())

	_, err := engine.Start(2 * time.Second)
	require.NoError(t, err)
	nextEvent(t, sub)

	clock.Tick(t)
	assert.Equal(t, EventProgress, nextEvent(t, sub).Type)
	clock.Tick(t)
	assert.Equal(t, EventProgress, nextEvent(t, sub).Type)
	assert.Equal(t, EventFired, nextEvent(t, sub).Type)

	engine.Wait()
	executor.AssertNumberOfCalls(t, "Fire", 1)
}

func TestRepeatedAbortEndsSessionOnce(t *testing.T) {
	engine, clock := newTestEngine(t, &mockExecutor{})
	sub := engine.Subscribe()

	_, err := engine.Start(10 * time.Second)
	require.NoError(t, err)
	nextEvent(t, sub)
	clock.Tick(t)
	nextEvent(t, sub)

	engine.Abort()
	engine.Abort()

	assert.Equal(t, EventAborted, nextEvent(t, sub).Type)
	engine.Wait()
	assert.False(t, engine.Abort())
	assertNoEvent(t, sub)
}

func TestStartRejectedUntilTerminalDelivered(t *testing.T) {
	executor := &mockExecutor{}
	executor.On("Fire", mock.Anything).Return(nil).Twice()
	engine, _ := newTestEngine(t, executor)
	sub := engine.Subscribe()

	_, err := engine.Start(0)
	require.NoError(t, err)

	// The unread started event keeps the fired event from being delivered.
	assert.Eventually(t, func() bool {
		return engine.State() == StateFiring
	}, time.Second, time.Millisecond)

	_, err = engine.Start(5 * time.Second)
	assert.ErrorIs(t, err, ErrNotIdle)

	assert.Equal(t, EventStarted, nextEvent(t, sub).Type)
	assert.Equal(t, EventFired, nextEvent(t, sub).Type)
	engine.Wait()

	_, err = engine.Start(0)
	require.NoError(t, err)
	assert.Equal(t, EventStarted, nextEvent(t, sub).Type)
	assert.Equal(t, EventFired, nextEvent(t, sub).Type)
	engine.Wait()
	executor.AssertNumberOfCalls(t, "Fire", 2)
}

func TestSlowSubscriberSeesLatestProgress(t *testing.T) {
	engine, clock := newTestEngine(t, &mockExecutor{})
	sub := engine.Subscribe()

	_, err := engine.Start(5 * time.Second)
	require.NoError(t, err)

	clock.Tick(t)
	clock.Tick(t)
	clock.Tick(t)
	engine.Abort()

	latest := nextEvent(t, sub)
	assert.Equal(t, EventProgress, latest.Type)
	assert.Equal(t, 2*time.Second, latest.Remaining)

	aborted := nextEvent(t, sub)
	assert.Equal(t, EventAborted, aborted.Type)
	assert.Equal(t, 2*time.Second, aborted.Remaining)
}

func TestClosedSubscriptionDoesNotBlockSession(t *testing.T) {
	executor := &mockExecutor{}
	executor.On("Fire", mock.Anything).Return(nil).Once()
	engine, _ := newTestEngine(t, executor)
	sub := engine.Subscribe()
	sub.Close()

	_, err := engine.Start(0)
	require.NoError(t, err)

	engine.Wait()
	executor.AssertNumberOfCalls(t, "Fire", 1)
	assert.Equal(t, StateIdle, engine.State())
}

func TestCloseAbortsRunningSession(t *testing.T) {
	executor := &mockExecutor{}
	clock := newManualClock()
	engine := New(model.CountdownConfig{}, executor, Config{Clock: clock})
	sub := engine.Subscribe()

	_, err := engine.Start(10 * time.Second)
	require.NoError(t, err)
	nextEvent(t, sub)

	closed := make(chan struct{})
	go func() {
		engine.Close()
		close(closed)
	}()

	assert.Equal(t, EventAborted, nextEvent(t, sub).Type)
	<-closed

	_, ok := <-sub.Events()
	assert.False(t, ok)

	_, err = engine.Start(time.Second)
	assert.ErrorIs(t, err, ErrClosed)
	executor.AssertNotCalled(t, "Fire", mock.Anything)

	_, ok = <-engine.Subscribe().Events()
	assert.False(t, ok)
}

func TestGranularityRoundsUp(t *testing.T) {
	clock := newManualClock()
	engine := New(model.CountdownConfig{Granularity: 100 * time.Millisecond}, &mockExecutor{}, Config{Clock: clock})
	t.Cleanup(engine.Close)

	session, err := engine.Start(250 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, session.Ticks)
	assert.Equal(t, 300*time.Millisecond, session.Total)
	assert.Equal(t, 100*time.Millisecond, engine.Granularity())
}

func TestStartRejectsNegativeDuration(t *testing.T) {
	engine, _ := newTestEngine(t, &mockExecutor{})

	_, err := engine.Start(-time.Second)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Equal(t, StateIdle, engine.State())
}

func TestStartRejectsOverflowingDuration(t *testing.T) {
	executor := &mockExecutor{}
	engine, clock := newTestEngine(t, executor)
	sub := engine.Subscribe()
	defer sub.Close()

	for _, total := range []time.Duration{math.MaxInt64, math.MaxInt64 - time.Second + 1} {
		_, err := engine.Start(total)
		assert.ErrorIs(t, err, ErrInvalidDuration)
		assert.Equal(t, StateIdle, engine.State())
	}
	assertNoEvent(t, sub)

	session, err := engine.Start(math.MaxInt64 - time.Second)
	require.NoError(t, err)
	assert.Positive(t, session.Ticks)

	assert.Equal(t, EventStarted, nextEvent(t, sub).Type)
	clock.Tick(t)
	event := nextEvent(t, sub)
	assert.Equal(t, EventProgress, event.Type)
	assert.Equal(t, session.Total-time.Second, event.Remaining)
	executor.AssertNotCalled(t, "Fire", mock.Anything)
}

func TestFireErrorIsLoggedAndSessionEnds(t *testing.T) {
	var logs bytes.Buffer
	executor := &mockExecutor{}
	executor.On("Fire", mock.Anything).Return(errors.New("permission denied")).Once()
	engine := New(model.CountdownConfig{}, executor, Config{
		Clock:  newManualClock(),
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})
	t.Cleanup(engine.Close)

	_, err := engine.Start(0)
	require.NoError(t, err)
	engine.Wait()

	executor.AssertNumberOfCalls(t, "Fire", 1)
	assert.Equal(t, StateIdle, engine.State())
	assert.Contains(t, logs.String(), "shutdown action failed")
	assert.Contains(t, logs.String(), "permission denied")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "firing", StateFiring.String())
	assert.Equal(t, "aborted", StateAborted.String())
}
