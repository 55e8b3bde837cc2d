package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDetection() DetectionConfig {
	return DetectionConfig{
		SampleSize:      100,
		MinConfidence:   0.6,
		DefaultTimezone: "UTC",
		YearPivot:       50,
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Config{Detection: validDetection()}
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*DetectionConfig)
	}{
		{"zero sample size", func(d *DetectionConfig) { d.SampleSize = 0 }},
		{"negative confidence", func(d *DetectionConfig) { d.MinConfidence = -0.1 }},
		{"confidence above one", func(d *DetectionConfig) { d.MinConfidence = 1.5 }},
		{"pivot above 99", func(d *DetectionConfig) { d.YearPivot = 100 }},
		{"unknown timezone", func(d *DetectionConfig) { d.DefaultTimezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Detection: validDetection()}
			tt.mutate(&cfg.Detection)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateCustomFormats(t *testing.T) {
	tests := []struct {
		name   string
		format CustomFormat
		ok     bool
	}{
		{"iso layout", CustomFormat{Name: "iso", Layout: "2006-01-02T15:04:05"}, true},
		{"bracketed layout", CustomFormat{Name: "app", Layout: "[02/Jan/2006 15:04:05]"}, true},
		{"missing layout", CustomFormat{Name: "bad", Layout: ""}, false},
		{"missing name", CustomFormat{Name: "", Layout: "2006-01-02"}, false},
		// A layout with no time verbs literal-matches anything laid out
		// the same way and parses to the zero year; reject it up front.
		{"no time verbs", CustomFormat{Name: "bad", Layout: "garbage"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Detection: validDetection()}
			cfg.Detection.CustomFormats = []CustomFormat{tt.format}
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
