package model

// PatternKind identifies the structural shape inferred for a stream.
type PatternKind string

const (
	PatternDelimited  PatternKind = "delimited"
	PatternFixedToken PatternKind = "fixed-token"
	PatternFreeform   PatternKind = "freeform"
)

// FieldRule describes how a structured line is split into fields.
// For delimited patterns Delimiter is set; for fixed-token patterns
// Columns holds the start offset of each column.
type FieldRule struct {
	Delimiter      string `json:"delimiter,omitempty" yaml:"delimiter,omitempty"`
	Columns        []int  `json:"columns,omitempty" yaml:"columns,omitempty"`
	FieldCount     int    `json:"field_count" yaml:"field_count"`
	TimestampField int    `json:"timestamp_field" yaml:"timestamp_field"` // -1 when no field carries a timestamp
}

// ContinuationRule describes how continuation lines are recognized.
type ContinuationRule struct {
	TimestampAnchored bool `json:"timestamp_anchored" yaml:"timestamp_anchored"`
	IndentContinues   bool `json:"indent_continues" yaml:"indent_continues"`
}

// FormatProfile is the frozen structural description of a log stream.
// It is produced once by the universal detector and never mutated
// afterwards; the normalizer only reads it.
type FormatProfile struct {
	Kind            PatternKind      `json:"pattern_kind" yaml:"pattern_kind"`
	Fields          FieldRule        `json:"fields" yaml:"fields"`
	TimestampFormat string           `json:"timestamp_format,omitempty" yaml:"timestamp_format,omitempty"` // descriptor name, "" when none matched
	Continuation    ContinuationRule `json:"continuation" yaml:"continuation"`
	Confidence      float64          `json:"confidence" yaml:"confidence"`
}

// HasTimestamp reports whether the profile committed to a timestamp format.
func (p *FormatProfile) HasTimestamp() bool {
	return p.TimestampFormat != ""
}
