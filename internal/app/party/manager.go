// Package party provides the party manager that wires the request queue,
// filter chain, reconciliation loop, and persistence together.
package party

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibeq/internal/app/filter"
	"github.com/osa030/vibeq/internal/app/notification"
	"github.com/osa030/vibeq/internal/app/queue"
	"github.com/osa030/vibeq/internal/app/reconciler"
	"github.com/osa030/vibeq/internal/domain/request"
	"github.com/osa030/vibeq/internal/infra/config"
)

// Catalog resolves track metadata from the music provider.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]request.Metadata, error)
	GetTrack(ctx context.Context, trackRef string) (request.Metadata, error)
}

// Repository persists requests across restarts.
type Repository interface {
	LoadAll(ctx context.Context) ([]request.Request, error)
	Save(ctx context.Context, req request.Request) error
	DeleteAll(ctx context.Context) error
}

// Manager manages a single party.
type Manager struct {
	config *config.Config

	store    *queue.Store
	machine  *queue.Machine
	reorder  *queue.Engine
	loop     *reconciler.Loop
	filters  *filter.Chain
	notifier *notification.Manager
	catalog  Catalog
	repo     Repository

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a new party manager.
func NewManager(cfg *config.Config, catalog Catalog, device reconciler.Device, repo Repository) *Manager {
	store := queue.NewStore()
	machine := queue.NewMachine(store)

	m := &Manager{
		config:  cfg,
		store:   store,
		machine: machine,
		reorder: queue.NewEngine(store),
		loop: reconciler.New(machine, device, reconciler.Config{
			TickInterval: time.Duration(cfg.Playback.TickIntervalMs) * time.Millisecond,
			GracePeriod:  time.Duration(cfg.Playback.GracePeriodMs) * time.Millisecond,
		}),
		filters:  filter.NewChain(),
		notifier: notification.NewManager(),
		catalog:  catalog,
		repo:     repo,
		done:     make(chan struct{}),
	}

	m.setupFilters()
	return m
}

// setupFilters initializes the filter chain from config.
func (m *Manager) setupFilters() {
	cfg := m.config

	if cfg.IsFilterEnabled("explicit_track_filter") {
		f := filter.NewExplicitTrackFilter()
		settings := cfg.Filters["explicit_track_filter"].Settings
		if err := f.ValidateConfig(settings); err != nil {
			zlog.Error().Msgf("failed to validate explicit track filter config: %v", err)
		} else {
			m.filters.Add(f)
		}
	}

	if cfg.IsFilterEnabled("duplicate_track_filter") {
		m.filters.Add(filter.NewDuplicateTrackFilter(m.store))
	}

	if cfg.IsFilterEnabled("duration_limit_filter") {
		f := filter.NewDurationLimitFilter()
		settings := cfg.Filters["duration_limit_filter"].Settings
		if err := f.ValidateConfig(settings); err != nil {
			zlog.Error().Msgf("failed to validate duration limit filter config: %v", err)
		} else {
			m.filters.Add(f)
		}
	}
}

// Start restores persisted requests and runs the reconciliation loop until
// ctx is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	restored, err := m.repo.LoadAll(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load persisted requests")
	}
	m.store.Restore(restored)
	zlog.Info().Msgf("party started: restored_requests=%d", len(restored))

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go func() {
		defer close(m.done)
		m.loop.Run(loopCtx)
	}()
	go m.eventLoop(loopCtx)

	return nil
}

// eventLoop consumes playback events, persists completions, and fans them
// out to subscribers.
func (m *Manager) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-m.loop.Events():
			m.handlePlaybackEvent(ctx, ev)
		}
	}
}

func (m *Manager) handlePlaybackEvent(ctx context.Context, ev reconciler.Event) {
	switch ev.Type {
	case reconciler.EventTrackCompleted:
		if ev.Request != nil {
			if err := m.repo.Save(ctx, *ev.Request); err != nil {
				zlog.Error().Msgf("failed to persist completed request: id=%s err=%v", ev.Request.ID, err)
			}
		}
		m.notifier.Broadcast(notification.Notification{
			Type:    notification.TypeTrackCompleted,
			Payload: ev.Request,
		})
		m.broadcastQueueUpdate()
	case reconciler.EventTrackStarted:
		m.notifier.Broadcast(notification.Notification{
			Type:    notification.TypeTrackStarted,
			Payload: ev.Request,
		})
	case reconciler.EventQueueDrained:
		m.notifier.Broadcast(notification.Notification{
			Type: notification.TypeQueueDrained,
		})
	}
}

// Submit resolves a track ref through the catalog, runs the filter chain,
// and creates a PENDING request.
// The boolean reports acceptance; the string is a rejection code for the
// guest-facing message.
func (m *Manager) Submit(ctx context.Context, trackRef string) (request.Request, bool, string, error) {
	meta, err := m.catalog.GetTrack(ctx, trackRef)
	if err != nil {
		zlog.Warn().Msgf("request rejected: track_ref=%s code=track_not_found err=%v", trackRef, err)
		return request.Request{}, false, "track_not_found", nil
	}

	result := m.filters.Execute(ctx, meta)
	zlog.Info().Msgf("request: track=%s artist=%s accepted=%t code=%s", meta.Title, meta.Artist, result.Accepted, result.Code)
	if !result.Accepted {
		return request.Request{}, false, result.Code, nil
	}

	req := m.store.Create(meta)
	if err := m.repo.Save(ctx, req); err != nil {
		zlog.Error().Msgf("failed to persist request: id=%s err=%v", req.ID, err)
	}
	m.broadcastQueueUpdate()
	return req, true, "", nil
}

// Search queries the catalog.
func (m *Manager) Search(ctx context.Context, query string, limit int) ([]request.Metadata, error) {
	if query == "" {
		return nil, errors.Wrap(queue.ErrInvalidArgument, "search query is empty")
	}
	return m.catalog.Search(ctx, query, limit)
}

// Approve moves a pending request into the play queue.
func (m *Manager) Approve(ctx context.Context, id string) (request.Request, error) {
	req, err := m.machine.Approve(id)
	if err != nil {
		return request.Request{}, err
	}
	m.afterTransition(ctx, req)
	return req, nil
}

// Deny rejects a pending request.
func (m *Manager) Deny(ctx context.Context, id string) (request.Request, error) {
	req, err := m.machine.Deny(id)
	if err != nil {
		return request.Request{}, err
	}
	m.afterTransition(ctx, req)
	return req, nil
}

// Remove pulls an approved request back out of the play queue.
func (m *Manager) Remove(ctx context.Context, id string) (request.Request, error) {
	req, err := m.machine.Remove(id)
	if err != nil {
		return request.Request{}, err
	}
	m.afterTransition(ctx, req)
	return req, nil
}

func (m *Manager) afterTransition(ctx context.Context, req request.Request) {
	if err := m.repo.Save(ctx, req); err != nil {
		zlog.Error().Msgf("failed to persist request: id=%s err=%v", req.ID, err)
	}
	m.loop.Kick()
	m.broadcastQueueUpdate()
}

// Skip completes the now-playing request and advances the queue.
func (m *Manager) Skip(ctx context.Context, id string) error {
	if err := m.loop.Skip(ctx, id); err != nil {
		return err
	}
	m.broadcastQueueUpdate()
	return nil
}

// Reorder rearranges the upcoming queue. ids must be exactly the upcoming
// requests in their desired order.
func (m *Manager) Reorder(ctx context.Context, ids []string) error {
	if err := m.reorder.Reorder(ids); err != nil {
		return err
	}
	m.persistUpcoming(ctx)
	m.loop.Kick()
	m.broadcastQueueUpdate()
	return nil
}

// Shuffle randomizes the upcoming queue.
func (m *Manager) Shuffle(ctx context.Context) error {
	if err := m.reorder.Shuffle(); err != nil {
		return err
	}
	m.persistUpcoming(ctx)
	m.loop.Kick()
	m.broadcastQueueUpdate()
	return nil
}

func (m *Manager) persistUpcoming(ctx context.Context) {
	for _, req := range m.store.Upcoming() {
		if err := m.repo.Save(ctx, req); err != nil {
			zlog.Error().Msgf("failed to persist request: id=%s err=%v", req.ID, err)
		}
	}
}

// ResetAll wipes the party state. Safe to call repeatedly.
func (m *Manager) ResetAll(ctx context.Context) error {
	m.machine.ClearAll()
	if err := m.repo.DeleteAll(ctx); err != nil {
		return errors.Wrap(err, "failed to clear persisted requests")
	}
	m.loop.Kick()
	m.broadcastQueueUpdate()
	zlog.Info().Msg("party reset")
	return nil
}

// PausePlayback pauses the device without touching queue state.
func (m *Manager) PausePlayback(ctx context.Context) error {
	return m.loop.PauseDevice(ctx)
}

// ResumePlayback resumes the device without touching queue state.
func (m *Manager) ResumePlayback(ctx context.Context) error {
	return m.loop.ResumeDevice(ctx)
}

// SeekPlayback moves the device position within the loaded track.
func (m *Manager) SeekPlayback(ctx context.Context, position time.Duration) error {
	if position < 0 {
		return errors.Wrap(queue.ErrInvalidArgument, "seek position is negative")
	}
	return m.loop.SeekDevice(ctx, position)
}

// View is a read-only snapshot of the party for clients.
type View struct {
	NowPlaying *request.Request  `json:"now_playing"`
	Upcoming   []request.Request `json:"upcoming"`
	Pending    []request.Request `json:"pending"`
	History    []request.Request `json:"history"`
	Paused     bool              `json:"paused"`
	PositionMs int64             `json:"position_ms"`
	DurationMs int64             `json:"duration_ms"`
	Connected  bool              `json:"device_connected"`
}

// QueueView assembles the current queue snapshot.
func (m *Manager) QueueView() View {
	view := View{
		Upcoming: m.store.Upcoming(),
		Pending:  make([]request.Request, 0),
		History:  make([]request.Request, 0),
	}

	if now, ok := m.store.NowPlaying(); ok {
		view.NowPlaying = &now
	}
	for _, req := range m.store.List() {
		switch req.Status {
		case request.StatusPending:
			view.Pending = append(view.Pending, req)
		case request.StatusCompleted:
			view.History = append(view.History, req)
		}
	}

	snap := m.loop.Snapshot()
	view.Paused = snap.Paused
	view.PositionMs = snap.Position.Milliseconds()
	view.DurationMs = snap.Duration.Milliseconds()
	view.Connected = snap.Connected
	return view
}

// Notifications returns the notification manager for subscription wiring.
func (m *Manager) Notifications() *notification.Manager {
	return m.notifier
}

// Messages resolves rejection codes to guest-facing text.
func (m *Manager) Messages() *config.Config {
	return m.config
}

func (m *Manager) broadcastQueueUpdate() {
	m.notifier.Broadcast(notification.Notification{
		Type:    notification.TypeQueueUpdated,
		Payload: m.QueueView(),
	})
}

// Close stops the reconciliation loop and drops all subscribers.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	m.notifier.Close()
}
