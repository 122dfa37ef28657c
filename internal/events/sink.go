// Package events delivers committed market events to their consumers:
// store projections, websocket clients and in-memory recorders.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rep-protocol/internal/domain"
)

// Sink consumes the events of one committed transaction, in emission order.
// Publish is only called after commit, so a failing sink cannot revert state.
type Sink interface {
	Publish(ctx context.Context, events []domain.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, events []domain.Event) error

func (f SinkFunc) Publish(ctx context.Context, events []domain.Event) error {
	return f(ctx, events)
}

// Fanout publishes to every registered sink, in registration order.
// A failing sink does not stop delivery to the rest.
type Fanout struct {
	mu      sync.RWMutex
	names   []string
	sinks   []Sink
	onError func(name string, err error)
}

// NewFanout creates an empty fanout. onError, if non-nil, is called for every
// failed delivery.
func NewFanout(onError func(name string, err error)) *Fanout {
	return &Fanout{onError: onError}
}

// Add registers sink under name.
func (f *Fanout) Add(name string, sink Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.names = append(f.names, name)
	f.sinks = append(f.sinks, sink)
}

// Publish delivers events to all sinks and joins their errors.
func (f *Fanout) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	f.mu.RLock()
	names, sinks := f.names, f.sinks
	f.mu.RUnlock()

	var errs []error
	for i, s := range sinks {
		if err := s.Publish(ctx, events); err != nil {
			if f.onError != nil {
				f.onError(names[i], err)
			}
			errs = append(errs, fmt.Errorf("sink %s: %w", names[i], err))
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.RWMutex
	events []domain.Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(_ context.Context, events []domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range events {
		r.events = append(r.events, *events[i].Clone())
	}
	return nil
}

// Events returns copies of the recorded events.
func (r *Recorder) Events() []domain.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Event, len(r.events))
	for i := range r.events {
		out[i] = *r.events[i].Clone()
	}
	return out
}

// Kinds returns the kinds of the recorded events in order.
func (r *Recorder) Kinds() []domain.EventKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.EventKind, len(r.events))
	for i := range r.events {
		out[i] = r.events[i].Kind
	}
	return out
}
