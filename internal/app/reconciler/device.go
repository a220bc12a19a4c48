// Package reconciler provides the playback reconciliation loop: it compares
// the desired queue state against the actual state of the external playback
// device and issues corrective commands.
package reconciler

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrDeviceUnavailable   = errors.New("playback device unavailable")
	ErrDeviceCommandFailed = errors.New("device command failed")
)

// PlaybackSnapshot is the device state observed during one reconciliation
// cycle. It is ephemeral: recomputed each cycle and owned by the loop.
type PlaybackSnapshot struct {
	Connected      bool          // Whether a device is currently addressable
	LoadedTrackRef string        // External id of the loaded track, empty if none
	Paused         bool          // Whether playback is paused
	Position       time.Duration // Last reported playback position
	Duration       time.Duration // Last reported track duration
	HasQueuedNext  bool          // Whether the device reports a queued next track
}

// Device abstracts the external playback device. Calls may block on
// network I/O; the loop never holds queue locks across them.
type Device interface {
	// GetState reports the current device state.
	GetState(ctx context.Context) (PlaybackSnapshot, error)
	// Play loads and starts the given external track reference.
	Play(ctx context.Context, trackRef string) error
	// Resume resumes the currently loaded track.
	Resume(ctx context.Context) error
	// Pause pauses playback.
	Pause(ctx context.Context) error
	// Seek moves the playback position of the loaded track.
	Seek(ctx context.Context, position time.Duration) error
}

// Notifier is an optional push-notification channel a Device may provide.
// Each receive means "device state may have changed"; the loop coalesces
// these with its periodic tick.
type Notifier interface {
	StateChanges() <-chan struct{}
}
