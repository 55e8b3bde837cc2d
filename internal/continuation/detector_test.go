package continuation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lognorm-backend/config"
	"lognorm-backend/internal/continuation"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/timestamp"
)

func newDetector(t *testing.T) *continuation.Detector {
	t.Helper()
	resolver, err := timestamp.NewResolver(&config.DetectionConfig{
		DefaultTimezone: "UTC",
		YearPivot:       50,
	})
	require.NoError(t, err)
	return continuation.NewDetector(resolver)
}

func anchoredFreeform() *model.FormatProfile {
	return &model.FormatProfile{
		Kind:            model.PatternFreeform,
		Fields:          model.FieldRule{TimestampField: -1},
		TimestampFormat: "iso8601_z",
		Continuation: model.ContinuationRule{
			TimestampAnchored: true,
			IndentContinues:   true,
		},
		Confidence: 1.0,
	}
}

func TestTimestampAnchorStartsNewRecord(t *testing.T) {
	d := newDetector(t)
	profile := anchoredFreeform()

	assert.False(t, d.IsContinuation(profile, "2024-01-01T00:00:00Z ERROR boom", "2024-01-01T00:00:01Z INFO ok"))
}

func TestIndentationContinuesAnchoredRecords(t *testing.T) {
	d := newDetector(t)
	profile := anchoredFreeform()

	assert.True(t, d.IsContinuation(profile, "2024-01-01T00:00:00Z ERROR boom", "  at frame1"))
	assert.True(t, d.IsContinuation(profile, "  at frame1", "  at frame2"))
	assert.True(t, d.IsContinuation(profile, "2024-01-01T00:00:00Z ERROR boom", "\tcaused somewhere"))
}

// The timestamp anchor must dominate indentation: an indented line that
// nonetheless carries a leading timestamp starts a new record.
func TestAnchorDominatesIndentation(t *testing.T) {
	d := newDetector(t)
	profile := anchoredFreeform()

	assert.False(t, d.IsContinuation(profile, "junk", "2024-01-01T00:00:05Z INFO next"))
}

func TestStackTraceShape(t *testing.T) {
	d := newDetector(t)
	profile := &model.FormatProfile{
		Kind:         model.PatternFreeform,
		Fields:       model.FieldRule{TimestampField: -1},
		Continuation: model.ContinuationRule{},
	}

	assert.True(t, d.IsContinuation(profile, `Exception in thread "main"`, "    at com.example.Main.run(Main.java:42)"))
	assert.True(t, d.IsContinuation(profile, "    at com.example.Main.run(Main.java:42)", "Caused by: java.io.IOException"))
	assert.True(t, d.IsContinuation(profile, "Traceback (most recent call last):", `  File "app.py", line 3`))
	assert.False(t, d.IsContinuation(profile, "plain line", "another plain line"))
}

func TestStructuredKindsAreOneRecordPerLine(t *testing.T) {
	d := newDetector(t)
	profile := &model.FormatProfile{
		Kind:            model.PatternDelimited,
		Fields:          model.FieldRule{Delimiter: ",", FieldCount: 3, TimestampField: 0},
		TimestampFormat: "iso8601_z",
		Continuation:    model.ContinuationRule{},
	}

	assert.False(t, d.IsContinuation(profile, "2024-01-01T00:00:00Z,INFO,a", "2024-01-01T00:00:01Z,INFO,b"))
	assert.False(t, d.IsContinuation(profile, "2024-01-01T00:00:00Z,INFO,a", "not,matching,anything"))
}

func TestFreeformWithoutAnchorNeverContinues(t *testing.T) {
	d := newDetector(t)
	profile := &model.FormatProfile{
		Kind:         model.PatternFreeform,
		Fields:       model.FieldRule{TimestampField: -1},
		Continuation: model.ContinuationRule{},
	}

	assert.False(t, d.IsContinuation(profile, "first", "  indented but unanchored"))
}
