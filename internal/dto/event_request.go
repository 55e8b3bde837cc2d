package dto

import "time"

type EventSearchRequest struct {
	StartTime time.Time
	EndTime   time.Time
	Query     string
	Levels    []string
	Sources   []string
	Kinds     []string
	Flags     []string
	SortBy    string
	SortOrder string
	Page      int
	Size      int
}

// DetectRequest carries raw lines for ad-hoc format detection.
type DetectRequest struct {
	Lines []string `json:"lines" binding:"required"`
}

// NormalizeRequest carries raw lines to detect and normalize in one
// call. Source labels the resulting events.
type NormalizeRequest struct {
	Source string   `json:"source"`
	Lines  []string `json:"lines" binding:"required"`
}
