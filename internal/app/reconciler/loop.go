package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibeq/internal/app/queue"
	"github.com/osa030/vibeq/internal/domain/request"
)

// Config holds loop configuration.
type Config struct {
	TickInterval time.Duration // Period of the observation tick
	GracePeriod  time.Duration // How long the transition guard may stay claimed
}

const (
	defaultTickInterval = 2 * time.Second
	defaultGracePeriod  = 2 * time.Second
)

// Loop is the reconciliation control loop. One Loop goroutine owns the
// exclusive right to issue device commands; host actions and device push
// notifications only schedule a pass via Kick, so bursts coalesce into at
// most one pending cycle.
type Loop struct {
	queue  *queue.Machine
	device Device
	config Config

	mu        sync.Mutex
	trans     transition
	lastPlay  string           // trackRef of the last play command this loop issued
	snapshot  PlaybackSnapshot // last observed device state, for status views
	connSeen  bool             // a cycle has observed the connection state at least once
	connected bool             // connection state of the previous cycle

	kick    chan struct{}
	eventCh chan Event
}

// New creates a reconciliation loop over the given queue and device.
func New(q *queue.Machine, d Device, cfg Config) *Loop {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultGracePeriod
	}
	return &Loop{
		queue:   q,
		device:  d,
		config:  cfg,
		kick:    make(chan struct{}, 1),
		eventCh: make(chan Event, 10),
	}
}

// Events returns the event channel.
func (l *Loop) Events() <-chan Event {
	return l.eventCh
}

// Kick schedules a reconciliation pass. Non-blocking: if a pass is already
// pending, the trigger is dropped.
func (l *Loop) Kick() {
	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// Run drives the loop until ctx is cancelled. Cycles are triggered by the
// periodic tick, by Kick, and by device push notifications when the device
// supports them.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.config.TickInterval)
	defer ticker.Stop()

	var pushCh <-chan struct{}
	if n, ok := l.device.(Notifier); ok {
		pushCh = n.StateChanges()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-l.kick:
		case <-pushCh:
		}
		l.runCycle(ctx)
	}
}

// Snapshot returns the device state observed by the most recent cycle.
func (l *Loop) Snapshot() PlaybackSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot
}

// Skip is the host-triggered equivalent of completion detection: it marks
// the given now-playing request COMPLETED and starts the next one, under
// the same transition guard, so a device completion signal arriving
// concurrently cannot double-advance the queue.
func (l *Loop) Skip(ctx context.Context, id string) error {
	cur, ok := l.queue.NowPlaying()
	if !ok || cur.ID != id {
		if _, err := l.queue.Store().Get(id); err != nil {
			return err
		}
		return errors.Wrapf(queue.ErrInvalidState, "skip: request %s is not now-playing", id)
	}

	if !l.beginTransition(cur.ID) {
		// A completion for this track is already being handled.
		zlog.Debug().Msgf("reconciler: skip coalesced with in-flight transition: request_id=%s", id)
		return nil
	}
	defer l.settleTransition()

	l.completeAndAdvance(ctx, cur)
	l.Kick()
	return nil
}

// PauseDevice forwards a host pause to the device. Queue state is untouched.
func (l *Loop) PauseDevice(ctx context.Context) error {
	if err := l.device.Pause(ctx); err != nil {
		return errors.Wrap(ErrDeviceCommandFailed, err.Error())
	}
	l.Kick()
	return nil
}

// ResumeDevice forwards a host resume to the device.
func (l *Loop) ResumeDevice(ctx context.Context) error {
	if err := l.device.Resume(ctx); err != nil {
		return errors.Wrap(ErrDeviceCommandFailed, err.Error())
	}
	l.Kick()
	return nil
}

// SeekDevice forwards a host seek to the device.
func (l *Loop) SeekDevice(ctx context.Context, position time.Duration) error {
	if err := l.device.Seek(ctx, position); err != nil {
		return errors.Wrap(ErrDeviceCommandFailed, err.Error())
	}
	l.Kick()
	return nil
}

// runCycle performs one observe-decide-act pass.
func (l *Loop) runCycle(ctx context.Context) {
	now, hasNow := l.queue.NowPlaying()

	snap, err := l.device.GetState(ctx)
	if err != nil {
		zlog.Warn().Msgf("reconciler: device state unavailable, retrying next tick: %v", err)
		return
	}
	l.setSnapshot(snap)
	reconnected := l.observeConnected(snap.Connected)

	if !snap.Connected {
		zlog.Debug().Msg("reconciler: device disconnected, holding queue state")
		return
	}

	// Completion detection. Paused at position zero with no queued next,
	// while our track is still the loaded one, is how the device reports
	// "ended". The loadedTrackRef equality guards against a fresh load at
	// position zero and against stale completions after N changed.
	if hasNow && trackEnded(snap, now.TrackRef) {
		if !l.beginTransition(now.ID) {
			zlog.Debug().Msgf("reconciler: duplicate completion ignored: request_id=%s", now.ID)
			return
		}
		defer l.settleTransition()
		l.completeAndAdvance(ctx, now)
		return
	}

	if l.transitionActive() {
		// A play command is in flight; never race it with another one.
		return
	}

	if !hasNow {
		if snap.LoadedTrackRef != "" && !snap.Paused {
			if err := l.device.Pause(ctx); err != nil {
				zlog.Warn().Msgf("reconciler: pause failed, retrying next tick: %v", err)
				return
			}
			l.resetPositionCache()
			zlog.Info().Msg("reconciler: queue empty, device paused")
		}
		return
	}

	if snap.LoadedTrackRef == now.TrackRef {
		if !reconnected || !snap.Paused {
			return // converged
		}
		// The device came back with our track still loaded but paused
		// mid-track; resume in place instead of restarting it.
		if !l.beginTransition(now.ID) {
			return
		}
		defer l.settleTransition()
		if err := l.device.Resume(ctx); err != nil {
			zlog.Warn().Msgf("reconciler: resume after reconnect failed, retrying next tick: %v", err)
			return
		}
		l.setLastIssued(now.TrackRef)
		zlog.Info().Msgf("reconciler: playback resumed after reconnect: request_id=%s track_ref=%s", now.ID, now.TrackRef)
		return
	}

	// The device is actively playing something this loop did not request
	// (the host started other content out of band); leave it alone.
	if !snap.Paused && snap.LoadedTrackRef != "" && snap.LoadedTrackRef != l.lastIssued() {
		zlog.Debug().Msgf("reconciler: foreign playback active, holding off: loaded=%s", snap.LoadedTrackRef)
		return
	}

	if !l.beginTransition(now.ID) {
		return
	}
	defer l.settleTransition()
	l.issuePlay(ctx, now)
}

// completeAndAdvance commits the completion of cur and starts the next
// request. Caller must hold the transition guard. Marking cur COMPLETED is
// deliberately not conditioned on the subsequent play command succeeding.
func (l *Loop) completeAndAdvance(ctx context.Context, cur request.Request) {
	if _, err := l.queue.MarkPlayed(cur.ID); err != nil {
		// The queue moved on underneath us; treat the signal as stale.
		zlog.Warn().Msgf("reconciler: stale completion dropped: request_id=%s err=%v", cur.ID, err)
		return
	}
	zlog.Info().Msgf("reconciler: track completed: request_id=%s title=%s", cur.ID, cur.Title)
	l.sendEvent(Event{Type: EventTrackCompleted, Request: &cur})

	next, ok := l.queue.NowPlaying()
	if !ok {
		l.sendEvent(Event{Type: EventQueueDrained})
		return
	}
	l.issuePlay(ctx, next)
}

// issuePlay sends a play command for target. The queue is re-read
// immediately beforehand so that a concurrent reset or removal is observed
// before the command leaves.
func (l *Loop) issuePlay(ctx context.Context, target request.Request) {
	now, ok := l.queue.NowPlaying()
	if !ok || now.ID != target.ID {
		zlog.Debug().Msgf("reconciler: play aborted, queue changed: request_id=%s", target.ID)
		return
	}

	if err := l.device.Play(ctx, target.TrackRef); err != nil {
		zlog.Warn().Msgf("reconciler: play failed, retrying next tick: track_ref=%s err=%v", target.TrackRef, err)
		return
	}
	l.setLastIssued(target.TrackRef)
	zlog.Info().Msgf("reconciler: play issued: request_id=%s track_ref=%s title=%s", target.ID, target.TrackRef, target.Title)
	l.sendEvent(Event{Type: EventTrackStarted, Request: &target})
}

// trackEnded applies the completion heuristic for the given track ref.
func trackEnded(snap PlaybackSnapshot, trackRef string) bool {
	return snap.Paused &&
		snap.Position == 0 &&
		!snap.HasQueuedNext &&
		snap.LoadedTrackRef == trackRef
}

func (l *Loop) setSnapshot(snap PlaybackSnapshot) {
	l.mu.Lock()
	l.snapshot = snap
	l.mu.Unlock()
}

// observeConnected records the connection state of this cycle and reports
// whether it is a disconnect-to-reconnect edge. The first observation only
// sets the baseline.
func (l *Loop) observeConnected(connected bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	edge := l.connSeen && !l.connected && connected
	l.connSeen = true
	l.connected = connected
	return edge
}

func (l *Loop) resetPositionCache() {
	l.mu.Lock()
	l.snapshot.Position = 0
	l.snapshot.Duration = 0
	l.mu.Unlock()
}

func (l *Loop) lastIssued() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastPlay
}

func (l *Loop) setLastIssued(trackRef string) {
	l.mu.Lock()
	l.lastPlay = trackRef
	l.mu.Unlock()
}

// sendEvent sends an event without blocking.
func (l *Loop) sendEvent(e Event) {
	select {
	case l.eventCh <- e:
	default:
		// Channel full, drop event
	}
}
