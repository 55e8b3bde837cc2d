package dto

import "time"

type MetricSummaryRequest struct {
	StartTime time.Time
	EndTime   time.Time
	Sources   []string
}

type SortSpec struct {
	Field string
	Order string
}

type MetricTimeseriesRequest struct {
	StartTime  time.Time
	EndTime    time.Time
	Sources    []string
	MetricName string // e.g. "event_normalized", "event_degraded"
	Interval   string // e.g. "5 minute", "1 hour"
	GroupBy    string // e.g. "level", "pattern_kind", "source"
	Sort       *SortSpec
	Limit      *int
}

type MetricDistributionRequest struct {
	StartTime  time.Time
	EndTime    time.Time
	Sources    []string
	MetricName string
	Dimension  string
}

type SourceListRequest struct {
	StartTime time.Time
	EndTime   time.Time
}
