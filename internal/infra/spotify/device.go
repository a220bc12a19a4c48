package spotify

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"

	"github.com/osa030/vibeq/internal/app/reconciler"
)

// Device adapts Spotify Connect playback to the reconciler's device
// boundary. All playback state belongs to Spotify; this type only
// observes and sends commands.
type Device struct {
	client   *Client
	deviceID spotify.ID
}

// NewDevice creates a playback device bound to the given Spotify Connect
// device ID. An empty ID targets the user's currently active device.
func NewDevice(client *Client, deviceID string) *Device {
	return &Device{
		client:   client,
		deviceID: spotify.ID(deviceID),
	}
}

// GetState fetches a point-in-time playback snapshot.
func (d *Device) GetState(ctx context.Context) (reconciler.PlaybackSnapshot, error) {
	state, err := d.client.client.PlayerState(ctx)
	if err != nil {
		return reconciler.PlaybackSnapshot{}, errors.Wrapf(reconciler.ErrDeviceUnavailable, "player state: %v", err)
	}
	if state == nil || state.Device.ID == "" {
		return reconciler.PlaybackSnapshot{Connected: false}, nil
	}

	snap := reconciler.PlaybackSnapshot{
		Connected: true,
		Paused:    !state.Playing,
		Position:  time.Duration(state.Progress) * time.Millisecond,
	}
	if state.Item != nil {
		snap.LoadedTrackRef = string(state.Item.ID)
		snap.Duration = time.Duration(state.Item.Duration) * time.Millisecond
	}

	// The queue endpoint is only consulted when the snapshot looks like a
	// track-end, which is the sole consumer of this field.
	if snap.Paused && snap.Position == 0 && snap.LoadedTrackRef != "" {
		queue, err := d.client.client.GetQueue(ctx)
		if err != nil {
			zlog.Warn().Msgf("spotify: queue lookup failed, assuming empty: %v", err)
		} else {
			snap.HasQueuedNext = len(queue.Items) > 0
		}
	}

	return snap, nil
}

// Play loads and starts the given track, replacing whatever is playing.
func (d *Device) Play(ctx context.Context, trackRef string) error {
	uri := spotify.URI("spotify:track:" + extractTrackID(trackRef))
	opts := &spotify.PlayOptions{
		URIs: []spotify.URI{uri},
	}
	if d.deviceID != "" {
		opts.DeviceID = &d.deviceID
	}
	if err := d.client.client.PlayOpt(ctx, opts); err != nil {
		return errors.Wrapf(reconciler.ErrDeviceCommandFailed, "play %s: %v", trackRef, err)
	}
	return nil
}

// Resume continues playback of the loaded track.
func (d *Device) Resume(ctx context.Context) error {
	var opts *spotify.PlayOptions
	if d.deviceID != "" {
		opts = &spotify.PlayOptions{DeviceID: &d.deviceID}
	}
	if err := d.client.client.PlayOpt(ctx, opts); err != nil {
		return errors.Wrapf(reconciler.ErrDeviceCommandFailed, "resume: %v", err)
	}
	return nil
}

// Pause pauses playback without unloading the track.
func (d *Device) Pause(ctx context.Context) error {
	var opts *spotify.PlayOptions
	if d.deviceID != "" {
		opts = &spotify.PlayOptions{DeviceID: &d.deviceID}
	}
	if err := d.client.client.PauseOpt(ctx, opts); err != nil {
		return errors.Wrapf(reconciler.ErrDeviceCommandFailed, "pause: %v", err)
	}
	return nil
}

// Seek moves the playhead of the loaded track.
func (d *Device) Seek(ctx context.Context, position time.Duration) error {
	var opts *spotify.PlayOptions
	if d.deviceID != "" {
		opts = &spotify.PlayOptions{DeviceID: &d.deviceID}
	}
	if err := d.client.client.SeekOpt(ctx, int(position.Milliseconds()), opts); err != nil {
		return errors.Wrapf(reconciler.ErrDeviceCommandFailed, "seek: %v", err)
	}
	return nil
}
