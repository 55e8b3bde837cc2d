package model

import "time"

type MetricEvent struct {
	Time       time.Time         `json:"time"`
	MetricName string            `json:"metric_name"`
	Source     string            `json:"source"`
	Tags       map[string]string `json:"tags"`
}
