package normalize_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lognorm-backend/config"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/normalize"
)

func newPipeline(t *testing.T, cfg config.DetectionConfig) *normalize.Pipeline {
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
	pipeline, err := normalize.NewPipeline(&cfg)
	require.NoError(t, err)
	return pipeline
}

func runAll(t *testing.T, p *normalize.Pipeline, lines []string) []model.LogEvent {
	t.Helper()
	stream, err := p.Run(normalize.Lines(lines), "test.log")
	require.NoError(t, err)
	events, err := stream.Collect()
	require.NoError(t, err)
	return events
}

func TestRunDelimitedStream(t *testing.T) {
	pipeline := newPipeline(t, config.DetectionConfig{})

	events := runAll(t, pipeline, []string{
		"2024-01-15T10:00:00Z,INFO,service started",
		"2024-01-15T10:00:01Z,WARN,cache miss rate high",
		"2024-01-15T10:00:02Z,ERROR,upstream timed out",
	})
	require.Len(t, events, 3)

	first := events[0]
	assert.Equal(t, model.PatternDelimited, first.Kind)
	assert.Equal(t, "test.log", first.Source)
	assert.Equal(t, 1, first.LineNumber)
	assert.Equal(t, 1, first.LineCount)
	assert.Equal(t, "INFO", first.Level)
	assert.Equal(t, "service started", first.Message)
	assert.Equal(t, 1.0, first.Confidence)
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), first.Timestamp.UTC())

	assert.Equal(t, "WARNING", events[1].Level)
	assert.Equal(t, "ERROR", events[2].Level)
	assert.Equal(t, 3, events[2].LineNumber)
}

func TestRunFixedWidthStream(t *testing.T) {
	pipeline := newPipeline(t, config.DetectionConfig{})

	// Aligned columns; the timestamp straddles the first two cells, so
	// resolution has to work from the whole line, not a single field.
	events := runAll(t, pipeline, []string{
		"2024-01-15 10:30:00 INFO     auth     login ok",
		"2024-01-15 10:30:05 WARNING  auth     token near expiry",
		"2024-01-15 10:30:09 ERROR    db       connection refused",
	})
	require.Len(t, events, 3)

	first := events[0]
	assert.Equal(t, model.PatternFixedToken, first.Kind)
	assert.Equal(t, "INFO", first.Level)
	assert.Equal(t, "login ok", first.Message)
	assert.Equal(t, "auth", first.Fields["field_3"])
	assert.Equal(t, 1.0, first.Confidence)
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), first.Timestamp.UTC())
	assert.False(t, first.HasFlag(model.FlagTimestampUnresolved))
	assert.True(t, first.HasFlag(model.FlagZoneDefaulted))

	assert.Equal(t, "WARNING", events[1].Level)
	require.NotNil(t, events[1].Timestamp)
	assert.Equal(t, "ERROR", events[2].Level)
	require.NotNil(t, events[2].Timestamp)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 9, 0, time.UTC), events[2].Timestamp.UTC())
}

func TestMalformedRecordDegrades(t *testing.T) {
	pipeline := newPipeline(t, config.DetectionConfig{})

	lines := []string{
		"2024-01-15T10:00:00Z,INFO,boot",
		"2024-01-15T10:00:01Z,INFO,ready",
		"2024-01-15T10:00:02Z,INFO,serving",
		"2024-01-15T10:00:03Z,WARN,slow query",
		"garbage line without any structure",
		"2024-01-15T10:00:04Z,INFO,recovered",
		"2024-01-15T10:00:05Z,INFO,steady",
		"2024-01-15T10:00:06Z,INFO,done",
	}
	events := runAll(t, pipeline, lines)
	require.Len(t, events, 8)

	bad := events[4]
	assert.Equal(t, model.PatternFreeform, bad.Kind)
	assert.True(t, bad.HasFlag(model.FlagRecordMalformed))
	assert.Equal(t, "garbage line without any structure", bad.Message)
	assert.Equal(t, "garbage line without any structure", bad.Raw)
	assert.Nil(t, bad.Timestamp)
	assert.True(t, bad.HasFlag(model.FlagTimestampUnresolved))

	good := events[5]
	assert.Equal(t, model.PatternDelimited, good.Kind)
	assert.False(t, good.HasFlag(model.FlagRecordMalformed))
	// Malformed records keep half the committed confidence.
	assert.InDelta(t, good.Confidence/2, bad.Confidence, 1e-9)
}

func TestContinuationStacksTraceUnderAnchoredProfile(t *testing.T) {
	pipeline := newPipeline(t, config.DetectionConfig{})

	events := runAll(t, pipeline, []string{
		"2024-01-15T10:00:00Z INFO starting",
		"2024-01-15T10:00:02Z ERROR something failed",
		"Traceback (most recent call last):",
		`  File "app.py", line 10, in main`,
		"ValueError: boom",
		"2024-01-15T10:00:05Z INFO ok",
	})
	require.Len(t, events, 3)

	crash := events[1]
	assert.Equal(t, 2, crash.LineNumber)
	assert.Equal(t, 4, crash.LineCount)
	assert.Equal(t, "ERROR", crash.Level)
	assert.Equal(t,
		"something failed\nTraceback (most recent call last):\n  File \"app.py\", line 10, in main\nValueError: boom",
		crash.Message)
	require.NotNil(t, crash.Timestamp)

	last := events[2]
	assert.Equal(t, 6, last.LineNumber)
	assert.Equal(t, "ok", last.Message)
	assert.Equal(t, "INFO", last.Level)
}

func TestFreeformWithoutTimestampsRoundTrips(t *testing.T) {
	pipeline := newPipeline(t, config.DetectionConfig{})

	lines := []string{
		"started worker pool with four slots",
		"accepted connection from peer",
		"shutting down after drain",
	}
	events := runAll(t, pipeline, lines)
	require.Len(t, events, 3)

	for i, ev := range events {
		assert.Equal(t, model.PatternFreeform, ev.Kind)
		assert.Equal(t, lines[i], ev.Message)
		assert.Equal(t, lines[i], ev.Raw)
		assert.Nil(t, ev.Timestamp)
	}
}

func TestNormalizationIsIdempotent(t *testing.T) {
	lines := []string{
		"2024-01-15T10:00:00Z INFO starting",
		"2024-01-15T10:00:01Z WARN resource low",
		"2024-01-15T10:00:02Z INFO done",
	}

	first := runAll(t, newPipeline(t, config.DetectionConfig{}), lines)
	second := runAll(t, newPipeline(t, config.DetectionConfig{}), lines)
	assert.Equal(t, first, second)
}

func TestBlankLinesSkippedButCounted(t *testing.T) {
	pipeline := newPipeline(t, config.DetectionConfig{})

	events := runAll(t, pipeline, []string{
		"2024-01-15T10:00:00Z INFO one",
		"",
		"   ",
		"2024-01-15T10:00:01Z INFO two",
	})
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].LineNumber)
	assert.Equal(t, 4, events[1].LineNumber)
}

func TestJSONRecordsUseConfiguredPaths(t *testing.T) {
	pipeline := newPipeline(t, config.DetectionConfig{
		JSONPaths: map[string]string{
			"level":     "level",
			"message":   "msg",
			"timestamp": "ts",
		},
	})

	events := runAll(t, pipeline, []string{
		`{"msg":"boot"}`,
		`{"level":"warn","msg":"disk low"}`,
		`{"ts":"2024-01-15T10:00:00Z","level":"error","msg":"write failed","attempts":3}`,
		`{"msg":"steady"}`,
		`{"level":"info","msg":"done"}`,
	})
	require.Len(t, events, 5)

	warn := events[1]
	assert.Equal(t, "WARNING", warn.Level)
	assert.Equal(t, "disk low", warn.Message)

	failed := events[2]
	assert.Equal(t, "ERROR", failed.Level)
	assert.Equal(t, "write failed", failed.Message)
	assert.Equal(t, "3", failed.Fields["attempts"])
	require.NotNil(t, failed.Timestamp)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), failed.Timestamp.UTC())
}

func TestEmptySourceYieldsNoEvents(t *testing.T) {
	pipeline := newPipeline(t, config.DetectionConfig{})

	stream, err := pipeline.Run(normalize.Lines(nil), "empty.log")
	require.NoError(t, err)

	events, err := stream.Collect()
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0.0, stream.Profile().Confidence)
}

func TestRunWithProfileSkipsDetection(t *testing.T) {
	pipeline := newPipeline(t, config.DetectionConfig{})

	profile := &model.FormatProfile{
		Kind: model.PatternDelimited,
		Fields: model.FieldRule{
			Delimiter:      ",",
			FieldCount:     3,
			TimestampField: 0,
		},
		TimestampFormat: "iso8601_z",
		Confidence:      0.9,
	}

	stream := pipeline.RunWithProfile(profile, normalize.Lines([]string{
		"2024-01-15T10:00:00Z,INFO,cached profile works",
	}), "cached.log")
	events, err := stream.Collect()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "cached profile works", events[0].Message)
	assert.Equal(t, 0.9, events[0].Confidence)
}
