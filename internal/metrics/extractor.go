package metrics

import (
	"time"

	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/model"
)

// Extractor derives metric events from normalized log events for the
// time-series store.
type Extractor interface {
	ExtractMetricEvents(event *model.LogEvent) []model.MetricEvent
}

type eventMetricExtractor struct{}

func NewEventMetricExtractor() Extractor {
	return &eventMetricExtractor{}
}

func (e *eventMetricExtractor) ExtractMetricEvents(event *model.LogEvent) []model.MetricEvent {
	if event == nil {
		return nil
	}

	// Events without a resolved timestamp are still counted; they are
	// bucketed at ingestion time instead.
	ts := time.Now().UTC()
	if event.Timestamp != nil {
		ts = *event.Timestamp
	}

	events := make([]model.MetricEvent, 0, 2+len(event.Flags))

	level := event.Level
	if level == "" {
		level = "UNKNOWN"
	}
	events = append(events, model.MetricEvent{
		Time:       ts,
		MetricName: "event_normalized",
		Source:     event.Source,
		Tags: map[string]string{
			"level":        level,
			"pattern_kind": string(event.Kind),
		},
	})

	if event.HasFlag(model.FlagRecordMalformed) {
		events = append(events, model.MetricEvent{
			Time:       ts,
			MetricName: "event_degraded",
			Source:     event.Source,
			Tags: map[string]string{
				"level":        level,
				"pattern_kind": string(event.Kind),
			},
		})
	}

	for _, flag := range event.Flags {
		events = append(events, model.MetricEvent{
			Time:       ts,
			MetricName: "event_flagged",
			Source:     event.Source,
			Tags: map[string]string{
				"flag": flag,
			},
		})
	}

	if len(events) > 0 {
		log.Trace().Str("source", event.Source).Int("event_count", len(events)).Msg("Extracted metric events")
	}
	return events
}
