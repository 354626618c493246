package countdown

import "time"

// State represents the lifecycle position of a countdown session.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateFiring
	StateAborted

	// stateClosed marks an engine that no longer accepts sessions.
	stateClosed
)

func (state State) String() string {
	switch state {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFiring:
		return "firing"
	case StateAborted:
		return "aborted"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventType defines the type of countdown event.
type EventType string

const (
	EventStarted  EventType = "started"
	EventProgress EventType = "progress"
	EventFired    EventType = "fired"
	EventAborted  EventType = "aborted"
)

// Event represents a countdown update for observers.
type Event struct {
	Type      EventType
	SessionID string
	Remaining time.Duration
	Total     time.Duration
	Progress  float64
	At        time.Time
}

// Terminal reports whether the event ends its session.
func (event Event) Terminal() bool {
	return event.Type == EventFired || event.Type == EventAborted
}
