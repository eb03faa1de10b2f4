package watcher

import "time"

// EventType represents the type of file system event
type EventType int

const (
	// EventChanged is emitted when the watched file was written or
	// replaced and has stopped changing.
	EventChanged EventType = iota
	// EventRemoved is emitted when the watched file disappears, for
	// example when the reader is unmounted.
	EventRemoved
)

// String returns the string representation of the event type
func (t EventType) String() string {
	switch t {
	case EventChanged:
		return "changed"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event represents a change to the watched file
type Event struct {
	Type    EventType
	Path    string
	Size    int64
	ModTime time.Time
}
