// Package source defines how openvis obtains topology snapshots from a
// controller, and provides the polling stream shared by concrete sources.
//
// A [Source] can probe a controller URL and open a [Stream] of [Event] values.
// Each event is either a full topology snapshot or a coded stream error.
// Only [errors.ErrCodeInitialConnectionFailed] and
// [errors.ErrCodeMaxErrorsReached] end a stream; every other error code is a
// transient warning.
//
// Implementations live in subpackages:
//   - source/floodlight: Floodlight REST API
//   - source/file: snapshot JSON files on disk, for demos and offline use
package source

import (
	"context"
	"time"

	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/topology"
)

// EventKind names a stream event.
type EventKind string

const (
	EventTopology EventKind = "topology"
	EventError    EventKind = "error"
)

// StreamError is the payload of an error event.
type StreamError struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (e *StreamError) Error() string { return string(e.Code) + ": " + e.Message }

// Fatal reports whether the error ends the stream.
func (e *StreamError) Fatal() bool { return errors.IsFatalStreamCode(e.Code) }

// Event is one message from a stream.
type Event struct {
	Kind     EventKind          `json:"type"`
	Snapshot *topology.Snapshot `json:"snapshot,omitempty"`
	Err      *StreamError       `json:"error,omitempty"`
}

// TopologyEvent wraps a snapshot.
func TopologyEvent(snap topology.Snapshot) Event {
	return Event{Kind: EventTopology, Snapshot: &snap}
}

// ErrorEvent wraps a coded error.
func ErrorEvent(code errors.Code, message string) Event {
	return Event{Kind: EventError, Err: &StreamError{Code: code, Message: message}}
}

// Stream delivers events until it is closed or ends on a fatal error, after
// which Events is closed.
type Stream interface {
	Events() <-chan Event
	// Close stops the stream and waits until it has stopped sending.
	// It is safe to call more than once.
	Close()
}

// Source connects to controllers.
type Source interface {
	// Probe performs one bounded health check against url.
	Probe(ctx context.Context, url string) error
	// Open starts streaming snapshots from url every interval.
	Open(ctx context.Context, url string, interval time.Duration) (Stream, error)
}
