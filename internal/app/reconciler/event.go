package reconciler

import "github.com/osa030/vibeq/internal/domain/request"

// EventType represents a reconciliation event type.
type EventType int

const (
	EventTrackStarted   EventType = iota // A play command was issued for a request
	EventTrackCompleted                  // A request finished playing and was marked COMPLETED
	EventQueueDrained                    // The approved queue became empty
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackCompleted:
		return "track_completed"
	case EventQueueDrained:
		return "queue_drained"
	default:
		return "unknown"
	}
}

// Event represents a reconciliation event.
type Event struct {
	Type    EventType
	Request *request.Request // Affected request (nil for EventQueueDrained)
}
