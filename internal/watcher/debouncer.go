package watcher

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid note events so one editor save burst becomes a
// single batch. Events for the same path within the window merge:
//   - CREATE + MODIFY = CREATE (the note is still new)
//   - CREATE + DELETE = nothing (the note never really existed)
//   - MODIFY + DELETE = DELETE (the note is gone)
//   - DELETE + CREATE = MODIFY (the note was replaced)
type Debouncer struct {
	window  time.Duration
	pending map[string]*pendingEvent
	mu      sync.Mutex
	output  chan []NoteEvent
	timer   *time.Timer
	stopped bool
}

type pendingEvent struct {
	event   NoteEvent
	firstOp Operation
}

// NewDebouncer creates a debouncer that emits coalesced batches after
// window elapses without new events.
func NewDebouncer(window time.Duration, bufferSize int) *Debouncer {
	return &Debouncer{
		window:  window,
		pending: make(map[string]*pendingEvent),
		output:  make(chan []NoteEvent, bufferSize),
	}
}

// Add queues an event, coalescing it with any pending event for the same
// path.
func (d *Debouncer) Add(event NoteEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if existing, ok := d.pending[event.Path]; ok {
		coalesced := coalesce(existing, event)
		if coalesced == nil {
			delete(d.pending, event.Path)
		} else {
			existing.event = *coalesced
		}
	} else {
		d.pending[event.Path] = &pendingEvent{event: event, firstOp: event.Operation}
	}

	d.scheduleFlush()
}

// coalesce merges a new event into a pending one. A nil result means the
// events cancelled out.
func coalesce(existing *pendingEvent, incoming NoteEvent) *NoteEvent {
	switch existing.firstOp {
	case OpCreate:
		switch incoming.Operation {
		case OpModify:
			return &existing.event
		case OpDelete:
			return nil
		default:
			return &incoming
		}
	case OpDelete:
		if incoming.Operation == OpCreate {
			result := incoming
			result.Operation = OpModify
			return &result
		}
		return &incoming
	default:
		return &incoming
	}
}

func (d *Debouncer) scheduleFlush() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	events := make([]NoteEvent, 0, len(d.pending))
	for _, pe := range d.pending {
		events = append(events, pe.event)
	}
	d.pending = make(map[string]*pendingEvent)

	select {
	case d.output <- events:
	default:
		slog.Warn("debouncer output full, dropping batch",
			slog.Int("batch_size", len(events)))
	}
}

// Output returns the channel of debounced event batches.
func (d *Debouncer) Output() <-chan []NoteEvent {
	return d.output
}

// Stop stops the debouncer and closes the output channel. Safe to call
// multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}
