package filter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vibeq/internal/domain/request"
)

// rejectAll is a test filter that rejects everything with a fixed code.
type rejectAll struct{ code string }

func (f *rejectAll) Name() string                               { return "reject_all" }
func (f *rejectAll) Description() string                        { return "rejects everything" }
func (f *rejectAll) ReturnCodes() []string                      { return []string{f.code} }
func (f *rejectAll) ValidateConfig(settings map[string]any) error { return nil }
func (f *rejectAll) Check(ctx context.Context, meta request.Metadata) Result {
	return Reject(f.code)
}

func TestChain_StopsAtFirstRejection(t *testing.T) {
	chain := NewChain()
	chain.Add(&rejectAll{code: "first"})
	chain.Add(&rejectAll{code: "second"})

	result := chain.Execute(context.Background(), request.Metadata{Title: "Song"})
	assert.False(t, result.Accepted)
	assert.Equal(t, "first", result.Code)
}

func TestChain_EmptyChainAccepts(t *testing.T) {
	chain := NewChain()
	result := chain.Execute(context.Background(), request.Metadata{Title: "Song"})
	assert.True(t, result.Accepted)
	assert.Empty(t, result.Code)
}

func TestRegistry_KnownFilters(t *testing.T) {
	registered := GetRegistered()
	for _, name := range []string{"explicit_track_filter", "duration_limit_filter", "duplicate_track_filter"} {
		factory, ok := registered[name]
		require.True(t, ok, "filter %s not registered", name)
		f := factory()
		assert.Equal(t, name, f.Name())
		assert.NoError(t, f.ValidateConfig(nil))
	}
}

func TestDurationLimitFilter(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		duration time.Duration
		accepted bool
	}{
		{
			name:     "within limits",
			settings: map[string]any{"min_minutes": 1.0, "max_minutes": 10.0},
			duration: 3 * time.Minute,
			accepted: true,
		},
		{
			name:     "too short",
			settings: map[string]any{"min_minutes": 1.0, "max_minutes": 10.0},
			duration: 30 * time.Second,
			accepted: false,
		},
		{
			name:     "too long",
			settings: map[string]any{"min_minutes": 1.0, "max_minutes": 10.0},
			duration: 15 * time.Minute,
			accepted: false,
		},
		{
			name:     "max zero means no upper limit",
			settings: map[string]any{"min_minutes": 1.0, "max_minutes": 0.0},
			duration: 2 * time.Hour,
			accepted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			require.NoError(t, f.ValidateConfig(tt.settings))

			result := f.Check(context.Background(), request.Metadata{
				Title:    "Song",
				Duration: tt.duration,
			})
			assert.Equal(t, tt.accepted, result.Accepted)
			if !tt.accepted {
				assert.Equal(t, "duration_limit_exceeded", result.Code)
			}
		})
	}
}

func TestDurationLimitFilter_InvalidConfig(t *testing.T) {
	f := NewDurationLimitFilter()
	err := f.ValidateConfig(map[string]any{"min_minutes": 10.0, "max_minutes": 5.0})
	assert.Error(t, err)
}

func TestDurationLimitFilter_NoConfigAcceptsAll(t *testing.T) {
	f := NewDurationLimitFilter()
	result := f.Check(context.Background(), request.Metadata{Duration: 9 * time.Hour})
	assert.True(t, result.Accepted)
}

func TestExplicitTrackFilter(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		explicit bool
		accepted bool
	}{
		{
			name:     "clean track accepted",
			settings: map[string]any{},
			explicit: false,
			accepted: true,
		},
		{
			name:     "explicit track rejected by default",
			settings: map[string]any{},
			explicit: true,
			accepted: false,
		},
		{
			name:     "explicit track accepted when allowed",
			settings: map[string]any{"allow_explicit": true},
			explicit: true,
			accepted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewExplicitTrackFilter()
			require.NoError(t, f.ValidateConfig(tt.settings))

			result := f.Check(context.Background(), request.Metadata{
				Title:    "Song",
				Explicit: tt.explicit,
			})
			assert.Equal(t, tt.accepted, result.Accepted)
			if !tt.accepted {
				assert.Equal(t, "explicit_content", result.Code)
			}
		})
	}
}
