package session

import (
	"sync"
	"time"
)

// EventLog is the append-only record of one session. It is the single audit
// surface for validator verdicts, approval outcomes, execution results, and
// model attempts. Appends are mutex-guarded so concurrent sub-agents may log;
// readers always receive copies.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	nextSq uint64
	now    func() time.Time
}

// NewEventLog creates an empty log.
func NewEventLog() *EventLog {
	return &EventLog{now: time.Now, nextSq: 1}
}

// NewEventLogWithClock creates a log with an injected clock (for testing).
func NewEventLogWithClock(now func() time.Time) *EventLog {
	if now == nil {
		panic("now is required")
	}
	return &EventLog{now: now, nextSq: 1}
}

// Append records an event, assigning its sequence number and timestamp.
// The assigned event is returned for correlation.
func (l *EventLog) Append(ev Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev.Seq = l.nextSq
	ev.Timestamp = l.now()
	l.nextSq++
	l.events = append(l.events, ev)
	return ev
}

// AppendError is a convenience for recording a terminal failure.
func (l *EventLog) AppendError(source, reason string) Event {
	return l.Append(Event{Kind: EventError, Source: source, Reason: reason})
}

// Events returns a copy of the full event sequence in append order.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Len returns the number of recorded events.
func (l *EventLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Clear drops all events. This is the only way events are removed;
// sequence numbers keep increasing across a clear so ordering stays
// unambiguous in any retained copies.
func (l *EventLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
