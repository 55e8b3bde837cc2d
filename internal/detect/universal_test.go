package detect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lognorm-backend/config"
	"lognorm-backend/internal/detect"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/timestamp"
)

func newDetector(t *testing.T, cfg config.DetectionConfig) *detect.UniversalDetector {
	t.Helper()
	if cfg.SampleSize == 0 {
		cfg.SampleSize = 100
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = 0.6
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "UTC"
	}
	if cfg.YearPivot == 0 {
		cfg.YearPivot = 50
	}
	resolver, err := timestamp.NewResolver(&cfg)
	require.NoError(t, err)
	detector, err := detect.NewUniversalDetector(&cfg, resolver)
	require.NoError(t, err)
	return detector
}

func TestNewUniversalDetectorRejectsInvalidConfig(t *testing.T) {
	resolver, err := timestamp.NewResolver(&config.DetectionConfig{DefaultTimezone: "UTC"})
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  config.DetectionConfig
	}{
		{"negative sample size", config.DetectionConfig{SampleSize: -1, MinConfidence: 0.6, DefaultTimezone: "UTC", YearPivot: 50}},
		{"zero sample size", config.DetectionConfig{SampleSize: 0, MinConfidence: 0.6, DefaultTimezone: "UTC", YearPivot: 50}},
		{"confidence above one", config.DetectionConfig{SampleSize: 100, MinConfidence: 1.5, DefaultTimezone: "UTC", YearPivot: 50}},
		{"pivot out of range", config.DetectionConfig{SampleSize: 100, MinConfidence: 0.6, DefaultTimezone: "UTC", YearPivot: 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := detect.NewUniversalDetector(&tt.cfg, resolver)
			assert.Error(t, err)
		})
	}
}

func TestDetectDelimitedWithTimestampField(t *testing.T) {
	detector := newDetector(t, config.DetectionConfig{})

	profile := detector.Detect([]string{
		"2024-01-15T10:30:00Z,INFO,auth,login ok",
		"2024-01-15T10:30:01Z,WARN,auth,token expiring",
		"2024-01-15T10:30:02Z,ERROR,db,connection refused",
		"2024-01-15T10:30:03Z,INFO,db,reconnected",
	})

	assert.Equal(t, model.PatternDelimited, profile.Kind)
	assert.Equal(t, ",", profile.Fields.Delimiter)
	assert.Equal(t, 4, profile.Fields.FieldCount)
	assert.Equal(t, 0, profile.Fields.TimestampField)
	assert.Equal(t, "iso8601_z", profile.TimestampFormat)
	assert.InDelta(t, 1.0, profile.Confidence, 1e-9)
}

func TestDetectAnchoredFreeform(t *testing.T) {
	detector := newDetector(t, config.DetectionConfig{})

	profile := detector.Detect([]string{
		"2024-01-01T00:00:00Z ERROR boom",
		"2024-01-01T00:00:01Z INFO ok",
		"2024-01-01T00:00:02Z INFO still ok",
	})

	assert.Equal(t, model.PatternFreeform, profile.Kind)
	assert.Equal(t, "iso8601_z", profile.TimestampFormat)
	assert.True(t, profile.Continuation.TimestampAnchored)
	assert.True(t, profile.Continuation.IndentContinues)
}

func TestDetectFreeformWithoutTimestamps(t *testing.T) {
	detector := newDetector(t, config.DetectionConfig{})

	profile := detector.Detect([]string{
		"starting worker pool",
		"worker 1 ready",
		"worker 2 ready",
	})

	assert.Equal(t, model.PatternFreeform, profile.Kind)
	assert.False(t, profile.HasTimestamp())
	assert.False(t, profile.Continuation.TimestampAnchored)
}

func TestDetectEmptySample(t *testing.T) {
	detector := newDetector(t, config.DetectionConfig{})

	profile := detector.Detect(nil)
	assert.Equal(t, model.PatternFreeform, profile.Kind)
	assert.Zero(t, profile.Confidence)
	assert.False(t, profile.HasTimestamp())
}

func TestSamplerStateMachine(t *testing.T) {
	detector := newDetector(t, config.DetectionConfig{SampleSize: 2})
	sampler := detector.NewSampler()

	assert.Equal(t, detect.PhaseSampling, sampler.Phase())
	sampler.Observe("2024-01-01T00:00:00Z one")
	assert.False(t, sampler.Full())
	sampler.Observe("2024-01-01T00:00:01Z two")
	assert.True(t, sampler.Full())

	// Lines past the sample budget are not observed.
	sampler.Observe("2024-01-01T00:00:02Z three")
	assert.Len(t, sampler.Buffered(), 2)

	profile := sampler.Commit()
	assert.Equal(t, detect.PhaseCommitted, sampler.Phase())

	// Commit is idempotent and the profile stays frozen.
	again := sampler.Commit()
	assert.Same(t, profile, again)
}
