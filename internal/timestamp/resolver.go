package timestamp

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"lognorm-backend/config"
)

// Result is a successful resolution: the normalized point in time, the
// descriptor that matched and the inference flags the caller must
// surface on the event.
type Result struct {
	Time          time.Time
	Descriptor    string
	Offset        int // index of the matched timestamp within the input
	Length        int // length of the matched timestamp text
	YearInferred  bool
	ZoneDefaulted bool
	Fuzzy         bool
}

// Resolver attempts an ordered set of timestamp descriptors against
// text fragments. It is a pure function of its inputs: no state is
// mutated by Resolve or Apply, so one resolver may serve concurrent
// streams.
type Resolver struct {
	descriptors []*Descriptor
	byName      map[string]*Descriptor
	loc         *time.Location
	pivot       int
}

// NewResolver builds a resolver from the detection configuration.
// Custom formats are tried before the built-in library. An unknown
// default timezone is a construction-time failure.
func NewResolver(cfg *config.DetectionConfig) (*Resolver, error) {
	loc, err := time.LoadLocation(cfg.DefaultTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid default timezone %q: %w", cfg.DefaultTimezone, err)
	}

	descriptors := make([]*Descriptor, 0, len(cfg.CustomFormats)+20)
	for _, f := range cfg.CustomFormats {
		descriptors = append(descriptors, &Descriptor{
			Name:   f.Name,
			Layout: f.Layout,
			NoZone: !strings.ContainsAny(f.Layout, "Z-+"),
		})
	}
	descriptors = append(descriptors, builtinDescriptors()...)

	byName := make(map[string]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		byName[d.Name] = d
	}

	return &Resolver{
		descriptors: descriptors,
		byName:      byName,
		loc:         loc,
		pivot:       cfg.YearPivot,
	}, nil
}

// Resolve tries every descriptor in order and returns the first
// successful parse, falling back to fuzzy parsing. The second return
// is false when nothing applies.
func (r *Resolver) Resolve(text string) (Result, bool) {
	for _, d := range r.descriptors {
		if res, ok := r.apply(d, text); ok {
			return res, true
		}
	}
	return r.fuzzy(text)
}

// Apply resolves text using a single named descriptor: the call site
// for normalization once a profile has committed to a format.
func (r *Resolver) Apply(name, text string) (Result, bool) {
	if name == DescriptorFuzzy {
		return r.fuzzy(text)
	}
	d, ok := r.byName[name]
	if !ok {
		return Result{}, false
	}
	return r.apply(d, text)
}

func (r *Resolver) apply(d *Descriptor, text string) (Result, bool) {
	raw := text
	offset := 0

	if d.Pattern != nil {
		idx := d.Pattern.FindStringSubmatchIndex(text)
		if idx == nil || len(idx) < 4 {
			return Result{}, false
		}
		raw = text[idx[2]:idx[3]]
		offset = idx[2]
	} else {
		// Custom descriptors only carry a layout; parse the fragment
		// itself, or its layout-sized prefix when the fragment is a
		// whole line.
		raw = strings.TrimSpace(text)
		if len(raw) > len(d.Layout) {
			raw = raw[:len(d.Layout)]
		}
	}

	t, ok := r.parseRaw(d, raw)
	if !ok {
		return Result{}, false
	}

	res := Result{
		Time:          t,
		Descriptor:    d.Name,
		Offset:        offset,
		Length:        len(raw),
		ZoneDefaulted: d.NoZone,
	}

	if d.NoYear {
		now := time.Now().In(r.loc)
		res.Time = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
		res.YearInferred = true
	}
	if d.TwoDigitYear {
		res.Time = r.applyPivot(res.Time)
	}
	return res, true
}

func (r *Resolver) parseRaw(d *Descriptor, raw string) (time.Time, bool) {
	switch d.Layout {
	case layoutUnixSeconds:
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || secs < 0 || secs > 4102444800 { // year 2100
			return time.Time{}, false
		}
		return time.Unix(secs, 0).UTC(), true
	case layoutUnixMillis:
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || millis < 0 || millis/1000 > 4102444800 {
			return time.Time{}, false
		}
		return time.UnixMilli(millis).UTC(), true
	default:
		if d.NoZone {
			t, err := time.ParseInLocation(d.Layout, raw, r.loc)
			if err != nil {
				return time.Time{}, false
			}
			return t, true
		}
		t, err := time.Parse(d.Layout, raw)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
}

// applyPivot resolves the 2-digit-year century deterministically:
// years below the pivot land in the 2000s, the rest in the 1900s.
// Go's own pivot (69) is overridden so the rule stays configurable.
func (r *Resolver) applyPivot(t time.Time) time.Time {
	yy := t.Year() % 100
	century := 2000
	if yy >= r.pivot {
		century = 1900
	}
	return time.Date(century+yy, t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func (r *Resolver) fuzzy(text string) (Result, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}, false
	}
	t, err := dateparse.ParseIn(trimmed, r.loc)
	if err != nil {
		return Result{}, false
	}
	return Result{
		Time:       t,
		Descriptor: DescriptorFuzzy,
		Fuzzy:      true,
	}, true
}

// DefaultLocation returns the configured zone applied to zone-less
// timestamps.
func (r *Resolver) DefaultLocation() *time.Location {
	return r.loc
}
