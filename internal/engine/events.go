package engine

import (
	"log/slog"
	"sync"
	"time"
)

// Severity classifies a log event raised to listeners.
type Severity string

const (
	SeverityDiagnostic  Severity = "DIAGNOSTIC"
	SeverityInformation Severity = "INFORMATION"
	SeveritySuccess     Severity = "SUCCESS"
	SeverityWarning     Severity = "WARNING"
	SeverityError       Severity = "ERROR"
)

// ProcessResult is the outcome of expanding one source file.
// Immutable after creation; one is produced per expansion attempt.
type ProcessResult struct {
	// Path is the source file that was processed.
	Path string

	// Success is true when expansion completed without error.
	Success bool

	// Err holds the failure when Success is false.
	Err error

	// OutputPaths are the absolute destinations the file rendered to.
	OutputPaths []string

	// IsPartial is true when the file renders no output of its own.
	IsPartial bool
}

// Event is a notification raised by the engine to subscribers.
type Event interface {
	event()
}

// Started is emitted when the engine begins watching.
type Started struct{}

// Stopped is emitted after the engine has torn down every watch.
type Stopped struct{}

// StartedWatching is emitted once per monitored extension on start.
type StartedWatching struct {
	Extension string
}

// StoppedWatching is emitted once per monitored extension on stop.
type StoppedWatching struct {
	Extension string
}

// ProcessSucceeded carries the result of a successful expansion.
type ProcessSucceeded struct {
	Result ProcessResult
}

// ProcessFailed carries the result of a failed expansion.
type ProcessFailed struct {
	Result ProcessResult
}

// Log is a structured log message raised to listeners.
type Log struct {
	Title     string
	Message   string
	Severity  Severity
	Timestamp time.Time
}

func (Started) event()          {}
func (Stopped) event()          {}
func (StartedWatching) event()  {}
func (StoppedWatching) event()  {}
func (ProcessSucceeded) event() {}
func (ProcessFailed) event()    {}
func (Log) event()              {}

// Bus delivers engine events to subscribers in emission order.
// Publishing never blocks the engine: a subscriber whose buffer is
// full misses the event.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a listener and returns its channel plus an
// unsubscribe function. The channel is closed on unsubscribe or when
// the bus closes.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish sends an event to all current subscribers.
// Emission order is preserved per subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			slog.Warn("event subscriber buffer full, dropping event")
		}
	}
}

// Close closes every subscriber channel. Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
