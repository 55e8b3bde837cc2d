package timestamp

import "regexp"

// Layout sentinels for numeric epoch descriptors.
const (
	layoutUnixSeconds = "UNIX_SECONDS"
	layoutUnixMillis  = "UNIX_MILLIS"
)

// DescriptorFuzzy names the dateparse fallback. It participates in the
// descriptor tally like any other format so a stream of oddball
// timestamps can still commit to it.
const DescriptorFuzzy = "fuzzy"

// Descriptor is one reusable timestamp parse rule: a match pattern
// whose first capture group is the timestamp, plus the Go layout that
// parses it.
type Descriptor struct {
	Name         string
	PatternStr   string
	Pattern      *regexp.Regexp
	Layout       string
	TwoDigitYear bool // century resolved by the configured pivot
	NoYear       bool // year inferred from the clock, flagged on the event
	NoZone       bool // zone taken from the configured default, flagged
}

// builtinDescriptors returns the built-in format library, ordered by
// specificity. The slice and its descriptors are read-only after
// process start and safe to share across pipeline instances.
func builtinDescriptors() []*Descriptor {
	descriptors := []*Descriptor{
		{
			Name:       "iso8601_millis_tz",
			PatternStr: `^\[?(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}[+-]\d{2}:\d{2})`,
			Layout:     "2006-01-02T15:04:05.000-07:00",
		},
		{
			Name:       "iso8601_millis_z",
			PatternStr: `^\[?(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z)`,
			Layout:     "2006-01-02T15:04:05.000Z",
		},
		{
			Name:       "iso8601_tz",
			PatternStr: `^\[?(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[+-]\d{2}:\d{2})`,
			Layout:     "2006-01-02T15:04:05-07:00",
		},
		{
			Name:       "iso8601_z",
			PatternStr: `^\[?(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z)`,
			Layout:     "2006-01-02T15:04:05Z",
		},
		{
			Name:       "iso8601_millis",
			PatternStr: `^\[?(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3})`,
			Layout:     "2006-01-02T15:04:05.000",
			NoZone:     true,
		},
		{
			Name:       "iso8601",
			PatternStr: `^\[?(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`,
			Layout:     "2006-01-02T15:04:05",
			NoZone:     true,
		},
		{
			Name:       "python_logging",
			PatternStr: `^\[?(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3})`,
			Layout:     "2006-01-02 15:04:05,000",
			NoZone:     true,
		},
		{
			Name:       "log4j_millis",
			PatternStr: `^\[?(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3})`,
			Layout:     "2006-01-02 15:04:05.000",
			NoZone:     true,
		},
		{
			Name:       "simple_datetime",
			PatternStr: `^\[?(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})`,
			Layout:     "2006-01-02 15:04:05",
			NoZone:     true,
		},
		{
			Name:       "rfc2822",
			PatternStr: `([A-Z][a-z]{2}, \d{1,2} [A-Z][a-z]{2} \d{4} \d{2}:\d{2}:\d{2} [+-]\d{4})`,
			Layout:     "Mon, 2 Jan 2006 15:04:05 -0700",
		},
		{
			Name:       "apache_clf",
			PatternStr: `(\d{2}/[A-Z][a-z]{2}/\d{4}:\d{2}:\d{2}:\d{2} [+-]\d{4})`,
			Layout:     "02/Jan/2006:15:04:05 -0700",
		},
		{
			Name:       "apache_error",
			PatternStr: `^\[([A-Z][a-z]{2} [A-Z][a-z]{2} \d{2} \d{2}:\d{2}:\d{2} \d{4})\]`,
			Layout:     "Mon Jan 02 15:04:05 2006",
			NoZone:     true,
		},
		{
			Name:       "syslog",
			PatternStr: `^([A-Z][a-z]{2} +\d{1,2} \d{2}:\d{2}:\d{2})`,
			Layout:     "Jan _2 15:04:05",
			NoYear:     true,
			NoZone:     true,
		},
		{
			Name:         "short_date",
			PatternStr:   `^\[?(\d{2}/\d{2}/\d{2} \d{2}:\d{2}:\d{2})`,
			Layout:       "06/01/02 15:04:05",
			TwoDigitYear: true,
			NoZone:       true,
		},
		{
			Name:         "compact_datetime",
			PatternStr:   `^(\d{6} \d{6})\b`,
			Layout:       "060102 150405",
			TwoDigitYear: true,
			NoZone:       true,
		},
		{
			Name:       "us_datetime",
			PatternStr: `^\[?(\d{2}/\d{2}/\d{4} \d{2}:\d{2}:\d{2})`,
			Layout:     "01/02/2006 15:04:05",
			NoZone:     true,
		},
		{
			Name:       "unix_millis",
			PatternStr: `(?:^|[\s\[=])(\d{13})(?:[\s\]]|$)`,
			Layout:     layoutUnixMillis,
		},
		{
			Name:       "unix_seconds",
			PatternStr: `(?:^|[\s\[=])(\d{10})(?:[\s\]]|$)`,
			Layout:     layoutUnixSeconds,
		},
	}

	for _, d := range descriptors {
		d.Pattern = regexp.MustCompile(d.PatternStr)
	}
	return descriptors
}
