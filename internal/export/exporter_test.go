package export_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lognorm-backend/internal/export"
	"lognorm-backend/internal/model"
)

func sampleEvent() model.LogEvent {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return model.LogEvent{
		Timestamp:  &ts,
		Level:      "ERROR",
		Message:    "upstream timed out",
		Source:     "app.log",
		LineNumber: 12,
		LineCount:  1,
		Kind:       model.PatternFreeform,
		Confidence: 0.8,
		Raw:        "2024-01-15T10:00:00Z ERROR upstream timed out",
	}
}

func TestJSONLExporter(t *testing.T) {
	var buf bytes.Buffer
	e, err := export.New("jsonl", &buf)
	require.NoError(t, err)
	require.NoError(t, e.Write(sampleEvent()))
	require.NoError(t, e.Write(sampleEvent()))
	require.NoError(t, e.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, "upstream timed out", decoded["message"])
	assert.Equal(t, "2024-01-15T10:00:00Z", decoded["@timestamp"])
}

func TestJSONArrayExporter(t *testing.T) {
	var buf bytes.Buffer
	e, err := export.New("json", &buf)
	require.NoError(t, err)
	require.NoError(t, e.Write(sampleEvent()))
	require.NoError(t, e.Write(sampleEvent()))
	require.NoError(t, e.Close())

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 2)
}

func TestJSONArrayExporterEmpty(t *testing.T) {
	var buf bytes.Buffer
	e, err := export.New("json", &buf)
	require.NoError(t, err)
	require.NoError(t, e.Close())
	assert.JSONEq(t, "[]", buf.String())
}

func TestCSVExporterHeaderAndRow(t *testing.T) {
	var buf bytes.Buffer
	e, err := export.New("csv", &buf)
	require.NoError(t, err)
	require.NoError(t, e.Write(sampleEvent()))
	require.NoError(t, e.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "timestamp,level,message")
	assert.Contains(t, lines[1], "ERROR")
	assert.Contains(t, lines[1], "freeform")
}

func TestTextExporterIndentsContinuations(t *testing.T) {
	ev := sampleEvent()
	ev.Message = "head line\ncontinuation line"

	var buf bytes.Buffer
	e, err := export.New("text", &buf)
	require.NoError(t, err)
	require.NoError(t, e.Write(ev))
	require.NoError(t, e.Close())

	assert.Contains(t, buf.String(), "head line\n    continuation line")
}

func TestUnknownFormatRejected(t *testing.T) {
	var buf bytes.Buffer
	_, err := export.New("xml", &buf)
	assert.Error(t, err)
}
