package countdown

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"remoteshutdown/internal/core/model"

	"github.com/google/uuid"
)

var (
	// ErrNotIdle indicates a session is already running or still delivering its outcome.
	ErrNotIdle = errors.New("countdown not idle")
	// ErrClosed indicates the engine has been closed.
	ErrClosed = errors.New("countdown engine closed")
	// ErrInvalidDuration indicates a negative or unrepresentably long countdown duration.
	ErrInvalidDuration = errors.New("invalid countdown duration")
)

// Executor performs the action at the end of a countdown.
type Executor interface {
	Fire(ctx context.Context) error
}

// Config contains runtime options for Engine.
type Config struct {
	Clock  Clock
	Logger *slog.Logger
}

// Session describes one countdown run.
type Session struct {
	ID        string
	Total     time.Duration
	Ticks     int
	StartedAt time.Time
}

type session struct {
	Session
	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// closedSession occupies the engine slot once Close has run.
var closedSession = func() *session {
	s := &session{done: make(chan struct{})}
	s.state.Store(int32(stateClosed))
	close(s.done)
	return s
}()

// Engine runs at most one countdown session at a time. Each session is driven
// by its own goroutine, which is the only writer of the session's remaining
// ticks and state. Start and Abort only hand signals to that goroutine.
type Engine struct {
	config   model.CountdownConfig
	options  Config
	executor Executor
	logger   *slog.Logger

	current atomic.Pointer[session]

	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
}

// New creates an Engine that calls executor when a session fires.
func New(config model.CountdownConfig, executor Executor, options Config) *Engine {
	if config.Granularity <= 0 {
		config.Granularity = time.Second
	}
	if options.Clock == nil {
		options.Clock = systemClock{}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		config:      config,
		options:     options,
		executor:    executor,
		logger:      logger.With("component", "countdown"),
		subscribers: make(map[*Subscription]struct{}),
	}
}

// Granularity returns the time removed from a countdown per tick.
func (engine *Engine) Granularity() time.Duration {
	return engine.config.Granularity
}

// State returns the state of the current session, or StateIdle.
func (engine *Engine) State() State {
	current := engine.current.Load()
	if current == nil {
		return StateIdle
	}
	return State(current.state.Load())
}

// Start begins a countdown of total, rounded up to whole ticks. It fails with
// ErrNotIdle unless the previous session has fully finished.
func (engine *Engine) Start(total time.Duration) (Session, error) {
	granularity := engine.config.Granularity
	if total < 0 || total > math.MaxInt64-granularity {
		return Session{}, ErrInvalidDuration
	}

	ticks := int((total + granularity - 1) / granularity)

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		Session: Session{
			ID:        uuid.NewString(),
			Total:     time.Duration(ticks) * granularity,
			Ticks:     ticks,
			StartedAt: time.Now(),
		},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.state.Store(int32(StateRunning))

	if !engine.current.CompareAndSwap(nil, s) {
		cancel()
		if engine.current.Load() == closedSession {
			return Session{}, ErrClosed
		}
		return Session{}, ErrNotIdle
	}

	engine.logger.Info("countdown started",
		"session", s.ID,
		"duration", s.Total,
		"granularity", granularity,
	)

	go engine.run(s)
	return s.Session, nil
}

// Abort cancels the running session. The session observes the signal at its
// next tick boundary. Abort reports whether a running session was signalled.
func (engine *Engine) Abort() bool {
	current := engine.current.Load()
	if current == nil || State(current.state.Load()) != StateRunning {
		return false
	}
	current.cancel()
	return true
}

// Wait blocks until the current session, if any, has finished.
func (engine *Engine) Wait() {
	if current := engine.current.Load(); current != nil {
		<-current.done
	}
}

// Close aborts any running session, waits for it to finish and closes all
// subscriptions. Later calls to Start return ErrClosed.
func (engine *Engine) Close() {
	for {
		if engine.current.CompareAndSwap(nil, closedSession) {
			break
		}
		current := engine.current.Load()
		if current == closedSession {
			return
		}
		if current != nil {
			current.cancel()
			<-current.done
		}
	}

	engine.mu.Lock()
	subscribers := engine.subscribers
	engine.subscribers = make(map[*Subscription]struct{})
	engine.mu.Unlock()

	for sub := range subscribers {
		sub.closeEvents()
	}
}

func (engine *Engine) run(s *session) {
	defer engine.finish(s)

	remaining := s.Ticks
	engine.publish(engine.event(s, EventStarted, remaining))
	if remaining == 0 {
		engine.fire(s)
		return
	}

	for {
		select {
		case <-s.ctx.Done():
		case <-engine.options.Clock.After(engine.config.Granularity):
		}

		if s.ctx.Err() != nil {
			s.state.Store(int32(StateAborted))
			engine.logger.Info("countdown aborted",
				"session", s.ID,
				"remaining", time.Duration(remaining)*engine.config.Granularity,
			)
			engine.deliver(engine.event(s, EventAborted, remaining))
			return
		}

		remaining--
		if remaining < 0 {
			remaining = 0
		}
		engine.publish(engine.event(s, EventProgress, remaining))

		if remaining == 0 {
			engine.fire(s)
			return
		}
	}
}

func (engine *Engine) fire(s *session) {
	s.state.Store(int32(StateFiring))
	engine.logger.Info("countdown fired", "session", s.ID)
	engine.deliver(engine.event(s, EventFired, 0))

	if engine.executor == nil {
		return
	}
	// Firing is a point of no return: an abort arriving now must not cancel it.
	if err := engine.executor.Fire(context.WithoutCancel(s.ctx)); err != nil {
		engine.logger.Error("shutdown action failed", "session", s.ID, "error", err)
	}
}

func (engine *Engine) finish(s *session) {
	s.cancel()
	engine.current.CompareAndSwap(s, nil)
	close(s.done)
}

func (engine *Engine) event(s *session, eventType EventType, remaining int) Event {
	progress := 1.0
	if s.Ticks > 0 {
		progress = float64(s.Ticks-remaining) / float64(s.Ticks)
	}
	return Event{
		Type:      eventType,
		SessionID: s.ID,
		Remaining: time.Duration(remaining) * engine.config.Granularity,
		Total:     s.Total,
		Progress:  progress,
		At:        time.Now(),
	}
}

func (engine *Engine) snapshot() []*Subscription {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	subscribers := make([]*Subscription, 0, len(engine.subscribers))
	for sub := range engine.subscribers {
		subscribers = append(subscribers, sub)
	}
	return subscribers
}

func (engine *Engine) publish(event Event) {
	if event.Type == EventProgress {
		engine.logger.Debug("countdown progress", "session", event.SessionID, "remaining", event.Remaining)
	}
	for _, sub := range engine.snapshot() {
		sub.offer(event)
	}
}

func (engine *Engine) deliver(event Event) {
	for _, sub := range engine.snapshot() {
		sub.deliver(event)
	}
}
