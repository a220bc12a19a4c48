package filter

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/vibeq/internal/domain/request"
)

// ExplicitTrackConfig represents the configuration for ExplicitTrackFilter.
type ExplicitTrackConfig struct {
	AllowExplicit bool `yaml:"allow_explicit" mapstructure:"allow_explicit"`
}

// ExplicitTrackFilter rejects tracks carrying an explicit content flag.
type ExplicitTrackFilter struct {
	config *ExplicitTrackConfig
}

// NewExplicitTrackFilter creates a new explicit track filter.
func NewExplicitTrackFilter() *ExplicitTrackFilter {
	return &ExplicitTrackFilter{}
}

func (f *ExplicitTrackFilter) Name() string {
	return "explicit_track_filter"
}

func (f *ExplicitTrackFilter) Description() string {
	return "Rejects tracks flagged as explicit by the catalog"
}

func (f *ExplicitTrackFilter) ReturnCodes() []string {
	return []string{"explicit_content"}
}

func (f *ExplicitTrackFilter) ValidateConfig(settings map[string]any) error {
	var config ExplicitTrackConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &config,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}

	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	f.config = &config
	zlog.Info().Msgf("explicit track filter config: %+v", config)
	return nil
}

func (f *ExplicitTrackFilter) Check(ctx context.Context, meta request.Metadata) Result {
	if f.config != nil && f.config.AllowExplicit {
		return Accept()
	}

	if meta.Explicit {
		return Reject("explicit_content")
	}

	return Accept()
}

func init() {
	Register("explicit_track_filter", func() Filter {
		return &ExplicitTrackFilter{}
	})
}
