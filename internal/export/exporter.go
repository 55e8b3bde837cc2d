package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"lognorm-backend/internal/model"
)

// Exporter writes normalized events to an output sink, one at a time.
// Close flushes any buffered framing; it does not close the sink.
type Exporter interface {
	Write(ev model.LogEvent) error
	Close() error
}

// New picks an exporter by format name. Supported formats are jsonl,
// json, csv and text.
func New(format string, w io.Writer) (Exporter, error) {
	switch strings.ToLower(format) {
	case "jsonl", "":
		return &jsonlExporter{enc: json.NewEncoder(w)}, nil
	case "json":
		return &jsonArrayExporter{w: w}, nil
	case "csv":
		return newCSVExporter(w), nil
	case "text":
		return &textExporter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

type jsonlExporter struct {
	enc *json.Encoder
}

func (e *jsonlExporter) Write(ev model.LogEvent) error { return e.enc.Encode(ev) }
func (e *jsonlExporter) Close() error                  { return nil }

type jsonArrayExporter struct {
	w     io.Writer
	count int
}

func (e *jsonArrayExporter) Write(ev model.LogEvent) error {
	prefix := ",\n  "
	if e.count == 0 {
		prefix = "[\n  "
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(e.w, prefix+string(data)); err != nil {
		return err
	}
	e.count++
	return nil
}

func (e *jsonArrayExporter) Close() error {
	if e.count == 0 {
		_, err := io.WriteString(e.w, "[]\n")
		return err
	}
	_, err := io.WriteString(e.w, "\n]\n")
	return err
}

var csvHeader = []string{"timestamp", "level", "message", "source", "line_number", "line_count", "pattern_kind", "confidence", "flags"}

type csvExporter struct {
	w      *csv.Writer
	wrote  bool
	header []string
}

func newCSVExporter(w io.Writer) *csvExporter {
	return &csvExporter{w: csv.NewWriter(w), header: csvHeader}
}

func (e *csvExporter) Write(ev model.LogEvent) error {
	if !e.wrote {
		if err := e.w.Write(e.header); err != nil {
			return err
		}
		e.wrote = true
	}
	ts := ""
	if ev.Timestamp != nil {
		ts = ev.Timestamp.Format(time.RFC3339Nano)
	}
	return e.w.Write([]string{
		ts,
		ev.Level,
		ev.Message,
		ev.Source,
		strconv.Itoa(ev.LineNumber),
		strconv.Itoa(ev.LineCount),
		string(ev.Kind),
		strconv.FormatFloat(ev.Confidence, 'f', -1, 64),
		strings.Join(ev.Flags, ";"),
	})
}

func (e *csvExporter) Close() error {
	e.w.Flush()
	return e.w.Error()
}

// textExporter renders a readable single-line-per-event view, with
// continuation lines indented under their head line.
type textExporter struct {
	w io.Writer
}

func (e *textExporter) Write(ev model.LogEvent) error {
	ts := "-"
	if ev.Timestamp != nil {
		ts = ev.Timestamp.Format(time.RFC3339)
	}
	level := ev.Level
	if level == "" {
		level = "-"
	}
	body := strings.ReplaceAll(ev.Message, "\n", "\n    ")
	_, err := fmt.Fprintf(e.w, "%s %-8s %s\n", ts, level, body)
	return err
}

func (e *textExporter) Close() error { return nil }
