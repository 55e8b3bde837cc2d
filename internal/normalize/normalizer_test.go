package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lognorm-backend/config"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/normalize"
	"lognorm-backend/internal/timestamp"
)

func newNormalizer(t *testing.T, profile *model.FormatProfile) *normalize.Normalizer {
	t.Helper()
	resolver, err := timestamp.NewResolver(&config.DetectionConfig{DefaultTimezone: "UTC"})
	require.NoError(t, err)
	return normalize.NewNormalizer(profile, resolver, nil)
}

func delimitedProfile() *model.FormatProfile {
	return &model.FormatProfile{
		Kind: model.PatternDelimited,
		Fields: model.FieldRule{
			Delimiter:      ",",
			FieldCount:     3,
			TimestampField: 0,
		},
		TimestampFormat: "iso8601_z",
		Confidence:      0.8,
	}
}

func TestNormalizeRecordStripsANSISequences(t *testing.T) {
	n := newNormalizer(t, delimitedProfile())

	ev := n.NormalizeRecord("app.log", model.RawRecord{
		LineNumber: 1,
		Lines:      []string{"2024-01-15T10:00:00Z,\x1b[31mERROR\x1b[0m,request failed"},
	})

	assert.Equal(t, "ERROR", ev.Fields["field_1"])
	assert.Equal(t, "ERROR", ev.Level)
	assert.Contains(t, ev.Raw, "\x1b[31m")
}

func TestNormalizeRecordTimestampFieldUnresolved(t *testing.T) {
	n := newNormalizer(t, delimitedProfile())

	ev := n.NormalizeRecord("app.log", model.RawRecord{
		LineNumber: 7,
		Lines:      []string{"not-a-time,INFO,field count still matches"},
	})

	// Field structure held, so the record is not malformed; only the
	// timestamp is missing.
	assert.Equal(t, model.PatternDelimited, ev.Kind)
	assert.False(t, ev.HasFlag(model.FlagRecordMalformed))
	assert.True(t, ev.HasFlag(model.FlagTimestampUnresolved))
	assert.Nil(t, ev.Timestamp)
	assert.Equal(t, "field count still matches", ev.Message)
}

func TestNormalizeRecordFreeformMissingTimestamp(t *testing.T) {
	n := newNormalizer(t, &model.FormatProfile{
		Kind:            model.PatternFreeform,
		Fields:          model.FieldRule{TimestampField: -1},
		TimestampFormat: "iso8601_z",
		Continuation:    model.ContinuationRule{TimestampAnchored: true, IndentContinues: true},
		Confidence:      0.7,
	})

	ev := n.NormalizeRecord("app.log", model.RawRecord{
		LineNumber: 3,
		Lines:      []string{"WARN something without a clock"},
	})

	assert.True(t, ev.HasFlag(model.FlagTimestampUnresolved))
	assert.Nil(t, ev.Timestamp)
	assert.Equal(t, "WARN something without a clock", ev.Message)
	assert.Equal(t, "WARNING", ev.Level)
}

func TestNormalizeRecordCanonicalizesFatal(t *testing.T) {
	n := newNormalizer(t, &model.FormatProfile{
		Kind:            model.PatternFreeform,
		Fields:          model.FieldRule{TimestampField: -1},
		TimestampFormat: "iso8601_z",
		Continuation:    model.ContinuationRule{TimestampAnchored: true, IndentContinues: true},
		Confidence:      0.7,
	})

	ev := n.NormalizeRecord("app.log", model.RawRecord{
		LineNumber: 1,
		Lines:      []string{"2024-01-15T10:00:00Z FATAL out of memory"},
	})

	assert.Equal(t, "CRITICAL", ev.Level)
	assert.Equal(t, "out of memory", ev.Message)
	require.NotNil(t, ev.Timestamp)
}

func TestNormalizeRecordYearInferenceFlag(t *testing.T) {
	n := newNormalizer(t, &model.FormatProfile{
		Kind:            model.PatternFreeform,
		Fields:          model.FieldRule{TimestampField: -1},
		TimestampFormat: "syslog",
		Continuation:    model.ContinuationRule{TimestampAnchored: true, IndentContinues: true},
		Confidence:      0.7,
	})

	ev := n.NormalizeRecord("syslog", model.RawRecord{
		LineNumber: 1,
		Lines:      []string{"Jan 15 10:00:00 host sshd[1234]: accepted publickey"},
	})

	require.NotNil(t, ev.Timestamp)
	assert.True(t, ev.HasFlag(model.FlagYearInferred))
	assert.True(t, ev.HasFlag(model.FlagZoneDefaulted))
}
