// Package trigger decides whether an inbound shutdown request may start a countdown.
package trigger

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"remoteshutdown/internal/core/countdown"
	"remoteshutdown/internal/core/model"
)

// DefaultDelay is used when neither the request nor the configuration sets one.
const DefaultDelay = 60 * time.Second

// Outcome is the result of a trigger attempt.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedInvalidCredential
	RejectedAlreadyRunning
	RejectedUnavailable
)

func (outcome Outcome) String() string {
	switch outcome {
	case Accepted:
		return "accepted"
	case RejectedInvalidCredential:
		return "invalid_credential"
	case RejectedAlreadyRunning:
		return "already_running"
	case RejectedUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Starter is the part of the countdown engine the gate drives.
type Starter interface {
	State() countdown.State
	Start(total time.Duration) (countdown.Session, error)
}

// Config contains runtime options for Gate.
type Config struct {
	Logger *slog.Logger
}

// Gate checks credentials and enforces that only one countdown runs at a time.
type Gate struct {
	secret       string
	defaultDelay time.Duration
	engine       Starter
	logger       *slog.Logger
}

// New creates a Gate. The secret is never modified after construction, so
// Attempt may be called from any number of goroutines.
func New(secret string, config model.CountdownConfig, engine Starter, options Config) *Gate {
	if config.DefaultDelay <= 0 || config.DefaultDelay > time.Duration(model.MaxDelaySeconds)*time.Second {
		config.DefaultDelay = DefaultDelay
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		secret:       secret,
		defaultDelay: config.DefaultDelay,
		engine:       engine,
		logger:       logger.With("component", "trigger"),
	}
}

// Attempt starts a countdown of delaySeconds (or the default delay when nil)
// if credential matches the secret and no countdown is active.
func (gate *Gate) Attempt(credential string, delaySeconds *int) Outcome {
	if credential != gate.secret {
		gate.logger.Warn("trigger rejected", "reason", RejectedInvalidCredential)
		return RejectedInvalidCredential
	}

	if gate.engine.State() != countdown.StateIdle {
		gate.logger.Info("trigger rejected", "reason", RejectedAlreadyRunning)
		return RejectedAlreadyRunning
	}

	delay := gate.defaultDelay
	if delaySeconds != nil && validDelay(*delaySeconds) {
		delay = time.Duration(*delaySeconds) * time.Second
	}

	session, err := gate.engine.Start(delay)
	if errors.Is(err, countdown.ErrNotIdle) {
		gate.logger.Info("trigger rejected", "reason", RejectedAlreadyRunning)
		return RejectedAlreadyRunning
	}
	if err != nil {
		gate.logger.Error("trigger rejected", "reason", RejectedUnavailable, "delay", delay, "error", err)
		return RejectedUnavailable
	}

	gate.logger.Info("trigger accepted", "session", session.ID, "delay", delay)
	return Accepted
}

// ParseDelay converts a raw delay parameter to seconds. Missing, malformed,
// negative and out-of-range values yield nil so the default delay applies.
func ParseDelay(raw string) *int {
	if raw == "" {
		return nil
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || !validDelay(seconds) {
		return nil
	}
	return &seconds
}

func validDelay(seconds int) bool {
	return seconds >= 0 && int64(seconds) <= model.MaxDelaySeconds
}
