package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibeq/internal/app/notification"
)

// sseStream forwards notifications to a buffered channel consumed by the
// HTTP handler goroutine.
type sseStream struct {
	ch chan notification.Notification
}

func (s *sseStream) Send(n notification.Notification) error {
	select {
	case s.ch <- n:
		return nil
	default:
		return errors.New("subscriber buffer full")
	}
}

// handleEvents streams queue and playback notifications over
// server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	stream := &sseStream{ch: make(chan notification.Notification, 16)}
	id := s.party.Notifications().Subscribe(stream)
	defer s.party.Notifications().Unsubscribe(id)
	zlog.Debug().Msgf("sse subscriber connected: id=%s", id)

	// Initial snapshot so a fresh client renders without waiting for the
	// next change.
	writeSSE(w, notification.Notification{
		Type:    notification.TypeQueueUpdated,
		Payload: s.party.QueueView(),
	})
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			zlog.Debug().Msgf("sse subscriber disconnected: id=%s", id)
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case n := <-stream.ch:
			writeSSE(w, n)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, n notification.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		zlog.Error().Msgf("failed to encode sse event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Type, data)
}
