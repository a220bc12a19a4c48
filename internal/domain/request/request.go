// Package request provides the song request domain entity.
package request

import "time"

// Status represents the lifecycle status of a song request.
type Status string

const (
	StatusPending   Status = "PENDING"   // Submitted by a guest, awaiting host review
	StatusApproved  Status = "APPROVED"  // Accepted by the host, part of the play queue
	StatusRejected  Status = "REJECTED"  // Denied by the host or removed from the queue
	StatusCompleted Status = "COMPLETED" // Finished playing on the device
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal status.
// Terminal requests are frozen: status and order never change again.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// Metadata holds the display and playback metadata of a request.
// All fields are immutable after creation; they come from the catalog.
type Metadata struct {
	Title      string        `json:"title"`       // Track title
	Artist     string        `json:"artist"`      // Primary artist name
	ArtworkURL string        `json:"artwork_url"` // Album art URL
	TrackRef   string        `json:"track_ref"`   // External track reference (catalog/device id)
	Duration   time.Duration `json:"duration"`    // Track duration in nanoseconds
	Explicit   bool          `json:"explicit"`    // Explicit content flag from the catalog
}

// Request represents a guest song request.
type Request struct {
	ID string `json:"id"` // UUID, assigned at creation
	Metadata

	Status Status `json:"status"`
	// Order is the position key among APPROVED requests. It is unique
	// within the approved set and meaningless for any other status.
	Order int `json:"order"`

	CreatedAt time.Time `json:"created_at"`
}

// NowPlayingCandidate reports whether the request participates in
// scheduling, i.e. is approved and not yet terminal.
func (r *Request) NowPlayingCandidate() bool {
	return r.Status == StatusApproved
}
