package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/vibeq/internal/domain/request"
)

// DuplicateTrackFilter rejects tracks that are already waiting in the queue.
// Detects:
// - Exact track ref matches
// - Remasters (normalized title + same artist)
// Excludes:
// - Cover songs (same title but different artist)
// - Tracks whose earlier request already reached a terminal status
type DuplicateTrackFilter struct {
	queue QueueLookup
}

// QueueLookup provides the current queue contents for duplicate detection.
type QueueLookup interface {
	List() []request.Request
}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter(queue QueueLookup) *DuplicateTrackFilter {
	return &DuplicateTrackFilter{
		queue: queue,
	}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "Rejects requests for tracks already waiting in the queue, remasters included. Covers by a different artist are allowed"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(config map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track is a duplicate of a pending or approved request.
func (f *DuplicateTrackFilter) Check(ctx context.Context, meta request.Metadata) Result {
	for _, queued := range f.queue.List() {
		// Rejected and completed requests do not block a resubmission.
		if queued.Status.Terminal() {
			continue
		}

		if queued.TrackRef == meta.TrackRef {
			return Reject("duplicate_track")
		}

		if isRemaster(queued.Metadata, meta) {
			return Reject("duplicate_track")
		}
	}

	return Accept()
}

func init() {
	// The registry instance has no queue; it serves discovery and config
	// validation only. The party manager builds the wired one.
	Register("duplicate_track_filter", func() Filter {
		return &DuplicateTrackFilter{}
	})
}

// isRemaster checks if two tracks are the same song (remaster/different version).
func isRemaster(a, b request.Metadata) bool {
	if normalizeTrackTitle(a.Title) != normalizeTrackTitle(b.Title) {
		return false
	}

	// Same normalized title with a different artist is a cover, not a
	// duplicate.
	if a.Artist == "" || b.Artist == "" {
		return false
	}
	return strings.EqualFold(a.Artist, b.Artist)
}

// normalizeTrackTitle removes remaster information and version details.
func normalizeTrackTitle(title string) string {
	normalized := strings.ToLower(title)

	remasterPatterns := []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	versionPatterns := []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),        // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),           // "(Radio Edit)"
		regexp.MustCompile(`\s*-?\s*live`),             // "- Live"
		regexp.MustCompile(`\s*\(live\)`),              // "(Live)"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),     // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`), // "- Single Version"
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = regexp.MustCompile(`\s+`).ReplaceAllString(normalized, " ")
	normalized = strings.TrimRight(normalized, " -")

	return normalized
}
