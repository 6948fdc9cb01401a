package connection

import (
	"time"

	"github.com/4ry1337/openvis/pkg/errors"
	"github.com/4ry1337/openvis/pkg/topology"
)

// Status is the lifecycle state of one controller connection.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusUnreachable  Status = "unreachable"
	StatusError        Status = "error"
	StatusDisconnected Status = "disconnected"
)

// Controller is the public view of one registered controller.
type Controller struct {
	URL       string        `json:"url"`
	Interval  time.Duration `json:"-"`
	Status    Status        `json:"status"`
	LastError string        `json:"last_error,omitempty"`
	Since     time.Time     `json:"since"` // time of the last status change
}

// Level is the severity of a Notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a user-facing message about a controller.
type Notification struct {
	Level   Level       `json:"level"`
	URL     string      `json:"url"`
	Status  Status      `json:"status,omitempty"`
	Code    errors.Code `json:"code,omitempty"`
	Message string      `json:"message"`
	Time    time.Time   `json:"time"`
}

// Sink receives everything a Manager produces.
//
// Deliver is called from the stream's pump goroutine in arrival order; it may
// block, which applies backpressure to that one stream only. Purge is called
// after a Disconnect has stopped the stream.
type Sink interface {
	Deliver(url string, snap topology.Snapshot)
	Purge(url string)
	Notify(n Notification)
}
