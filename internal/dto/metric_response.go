package dto

type MetricSummaryResponse struct {
	TotalEvents         int64 `json:"totalEvents"`
	TotalDegradedEvents int64 `json:"totalDegradedEvents"`
}

type TimeseriesDataPoint struct {
	Timestamp int64 `json:"timestamp"` // epoch milliseconds
	Value     int64 `json:"value"`
}

type TimeseriesSeries struct {
	Name string                `json:"name"`
	Data []TimeseriesDataPoint `json:"data"`
}

type MetricTimeseriesResponse struct {
	Series []TimeseriesSeries `json:"series"`
}

type DistributionDataPoint struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type MetricDistributionResponse struct {
	MetricName   string                  `json:"metricName"`
	Dimension    string                  `json:"dimension"`
	Distribution []DistributionDataPoint `json:"distribution"`
}

type SourceListResponse struct {
	Sources []string `json:"sources"`
}
