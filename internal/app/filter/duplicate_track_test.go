package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/vibeq/internal/domain/request"
)

type staticQueue struct {
	requests []request.Request
}

func (q *staticQueue) List() []request.Request {
	return q.requests
}

func queuedRequest(title, artist, ref string, status request.Status) request.Request {
	return request.Request{
		ID: "id-" + ref,
		Metadata: request.Metadata{
			Title:    title,
			Artist:   artist,
			TrackRef: ref,
		},
		Status: status,
	}
}

func TestDuplicateTrackFilter(t *testing.T) {
	tests := []struct {
		name     string
		queued   []request.Request
		meta     request.Metadata
		accepted bool
	}{
		{
			name:     "empty queue accepts",
			queued:   nil,
			meta:     request.Metadata{Title: "Song A", Artist: "Artist X", TrackRef: "ref1"},
			accepted: true,
		},
		{
			name: "exact track ref rejected",
			queued: []request.Request{
				queuedRequest("Song A", "Artist X", "ref1", request.StatusApproved),
			},
			meta:     request.Metadata{Title: "Song A", Artist: "Artist X", TrackRef: "ref1"},
			accepted: false,
		},
		{
			name: "pending duplicate rejected",
			queued: []request.Request{
				queuedRequest("Song A", "Artist X", "ref1", request.StatusPending),
			},
			meta:     request.Metadata{Title: "Song A", Artist: "Artist X", TrackRef: "ref1"},
			accepted: false,
		},
		{
			name: "completed request does not block resubmission",
			queued: []request.Request{
				queuedRequest("Song A", "Artist X", "ref1", request.StatusCompleted),
			},
			meta:     request.Metadata{Title: "Song A", Artist: "Artist X", TrackRef: "ref1"},
			accepted: true,
		},
		{
			name: "rejected request does not block resubmission",
			queued: []request.Request{
				queuedRequest("Song A", "Artist X", "ref1", request.StatusRejected),
			},
			meta:     request.Metadata{Title: "Song A", Artist: "Artist X", TrackRef: "ref1"},
			accepted: true,
		},
		{
			name: "remaster of queued track rejected",
			queued: []request.Request{
				queuedRequest("Song A", "Artist X", "ref1", request.StatusApproved),
			},
			meta:     request.Metadata{Title: "Song A - 2011 Remaster", Artist: "Artist X", TrackRef: "ref2"},
			accepted: false,
		},
		{
			name: "radio edit of queued track rejected",
			queued: []request.Request{
				queuedRequest("Song A", "Artist X", "ref1", request.StatusApproved),
			},
			meta:     request.Metadata{Title: "Song A (Radio Edit)", Artist: "artist x", TrackRef: "ref2"},
			accepted: false,
		},
		{
			name: "cover by different artist accepted",
			queued: []request.Request{
				queuedRequest("Song A", "Artist X", "ref1", request.StatusApproved),
			},
			meta:     request.Metadata{Title: "Song A", Artist: "Artist Y", TrackRef: "ref2"},
			accepted: true,
		},
		{
			name: "different song same artist accepted",
			queued: []request.Request{
				queuedRequest("Song A", "Artist X", "ref1", request.StatusApproved),
			},
			meta:     request.Metadata{Title: "Song B", Artist: "Artist X", TrackRef: "ref2"},
			accepted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDuplicateTrackFilter(&staticQueue{requests: tt.queued})

			result := f.Check(context.Background(), tt.meta)
			assert.Equal(t, tt.accepted, result.Accepted)
			if !tt.accepted {
				assert.Equal(t, "duplicate_track", result.Code)
			}
		})
	}
}

func TestNormalizeTrackTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Song A", "song a"},
		{"Song A - 2011 Remaster", "song a"},
		{"Song A (Remastered 2023)", "song a"},
		{"Song A [Remastered]", "song a"},
		{"Song A (Single Version)", "song a"},
		{"Song A - Radio Edit", "song a"},
		{"Song A (Live)", "song a"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTrackTitle(tt.in))
		})
	}
}
