package model

import (
	"strings"
	"time"
)

// Event flags record data-derived irregularities absorbed during
// normalization. They never abort the stream.
const (
	FlagRecordMalformed     = "record_malformed"
	FlagTimestampUnresolved = "timestamp_unresolved"
	FlagYearInferred        = "year_inferred"
	FlagZoneDefaulted       = "zone_defaulted"
	FlagFuzzyTimestamp      = "fuzzy_timestamp"
)

// RawRecord is one or more raw lines grouped into a single logical
// entry before normalization. It is transient: built by continuation
// grouping and consumed immediately by the normalizer.
type RawRecord struct {
	LineNumber int // 1-based line number of the first line in the source
	Lines      []string
}

// Text joins the record's lines with the original line separator.
func (r RawRecord) Text() string {
	return strings.Join(r.Lines, "\n")
}

// LogEvent is the canonical normalized output record.
// Raw plus Source/LineNumber/LineCount always allow reconstructing
// which original lines produced the event.
type LogEvent struct {
	Timestamp  *time.Time        `json:"@timestamp,omitempty"`
	Level      string            `json:"level,omitempty"`
	Message    string            `json:"message"`
	Source     string            `json:"source,omitempty"`
	LineNumber int               `json:"line_number"`
	LineCount  int               `json:"line_count"`
	Fields     map[string]string `json:"fields,omitempty"`
	Kind       PatternKind       `json:"pattern_kind"`
	Confidence float64           `json:"confidence"`
	Flags      []string          `json:"flags,omitempty"`
	Raw        string            `json:"raw_log"`
}

// HasFlag reports whether the event carries the given flag.
func (e *LogEvent) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func NewResponse(message string, data interface{}) Response {
	return Response{Message: message, Data: data}
}
