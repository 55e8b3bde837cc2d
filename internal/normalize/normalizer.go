package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jmespath/go-jmespath"
	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/model"
	"lognorm-backend/internal/pattern"
	"lognorm-backend/internal/timestamp"
)

var (
	levelRe = regexp.MustCompile(`\b(TRACE|DEBUG|INFO|WARN|WARNING|ERROR|FATAL|CRITICAL)\b`)
	ansiRe  = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// canonicalLevels folds the common aliases emitted by different
// runtimes into one severity vocabulary.
var canonicalLevels = map[string]string{
	"TRACE":    "TRACE",
	"DEBUG":    "DEBUG",
	"INFO":     "INFO",
	"WARN":     "WARNING",
	"WARNING":  "WARNING",
	"ERROR":    "ERROR",
	"FATAL":    "CRITICAL",
	"CRITICAL": "CRITICAL",
}

// Normalizer applies a frozen FormatProfile to raw records, producing
// canonical events. It never mutates the profile and never fails on
// malformed data: records that disagree with the profile degrade to
// freeform with lowered confidence and the raw text preserved.
type Normalizer struct {
	profile   *model.FormatProfile
	resolver  *timestamp.Resolver
	jsonPaths map[string]*jmespath.JMESPath
}

func NewNormalizer(profile *model.FormatProfile, resolver *timestamp.Resolver, jsonPaths map[string]string) *Normalizer {
	compiled := make(map[string]*jmespath.JMESPath, len(jsonPaths))
	for name, expr := range jsonPaths {
		jp, err := jmespath.Compile(expr)
		if err != nil {
			log.Warn().Str("path", expr).Err(err).Msg("Ignoring invalid JSON field path")
			continue
		}
		compiled[name] = jp
	}
	return &Normalizer{
		profile:   profile,
		resolver:  resolver,
		jsonPaths: compiled,
	}
}

func (n *Normalizer) Profile() *model.FormatProfile {
	return n.profile
}

// NormalizeRecord turns one raw record into a canonical event.
func (n *Normalizer) NormalizeRecord(source string, rec model.RawRecord) model.LogEvent {
	ev := model.LogEvent{
		Source:     source,
		LineNumber: rec.LineNumber,
		LineCount:  len(rec.Lines),
		Kind:       n.profile.Kind,
		Confidence: n.profile.Confidence,
		Raw:        rec.Text(),
	}

	if n.profile.Kind == model.PatternFreeform && n.tryJSON(&ev, rec) {
		return ev
	}

	switch n.profile.Kind {
	case model.PatternDelimited, model.PatternFixedToken:
		n.normalizeStructured(&ev, rec)
	default:
		n.normalizeFreeform(&ev, rec)
	}

	if ev.Message == "" {
		ev.Message = ev.Raw
	}
	return ev
}

func (n *Normalizer) normalizeStructured(ev *model.LogEvent, rec model.RawRecord) {
	fields, ok := pattern.SplitFields(n.profile.Fields, rec.Lines[0])
	if !ok {
		// Degrade gracefully: the record disagrees with the committed
		// profile, so it is emitted as freeform with lowered
		// confidence and verbatim raw text, never dropped.
		ev.Kind = model.PatternFreeform
		ev.Confidence = n.profile.Confidence / 2
		ev.Flags = append(ev.Flags, model.FlagRecordMalformed)
		ev.Message = ev.Raw
		if n.profile.HasTimestamp() {
			if res, ok := n.resolver.Apply(n.profile.TimestampFormat, rec.Lines[0]); ok {
				n.setTimestamp(ev, res)
			} else {
				ev.Flags = append(ev.Flags, model.FlagTimestampUnresolved)
			}
		}
		return
	}

	cleaned := make([]string, len(fields))
	ev.Fields = make(map[string]string, len(fields))
	for i, f := range fields {
		cleaned[i] = ansiRe.ReplaceAllString(f, "")
		ev.Fields[fmt.Sprintf("field_%d", i)] = cleaned[i]
	}

	// Fixed-width profiles commit a timestamp format without electing a
	// field (the clock may straddle column boundaries), so the
	// descriptor is applied to the whole header line instead.
	tsField := n.profile.Fields.TimestampField
	if n.profile.HasTimestamp() {
		target := rec.Lines[0]
		if tsField >= 0 && tsField < len(fields) {
			target = fields[tsField]
		}
		if res, ok := n.resolver.Apply(n.profile.TimestampFormat, target); ok {
			n.setTimestamp(ev, res)
		} else {
			ev.Flags = append(ev.Flags, model.FlagTimestampUnresolved)
		}
	}

	for _, f := range cleaned {
		if m := levelRe.FindString(strings.ToUpper(f)); m != "" && len(f) <= len(m)+2 {
			ev.Level = canonicalLevels[m]
			break
		}
	}

	// The last field is the likeliest message column; continuation
	// lines (rare for structured streams) are appended verbatim.
	body := cleaned[len(cleaned)-1]
	if len(fields)-1 == tsField {
		body = ev.Raw
	}
	parts := append([]string{body}, rec.Lines[1:]...)
	ev.Message = strings.Join(parts, "\n")
}

func (n *Normalizer) normalizeFreeform(ev *model.LogEvent, rec model.RawRecord) {
	head := rec.Lines[0]

	if !n.profile.HasTimestamp() {
		// Nothing to strip: the message body is the raw lines joined
		// verbatim, so the original text round-trips.
		ev.Message = ev.Raw
		if m := levelRe.FindString(head); m != "" {
			ev.Level = canonicalLevels[m]
		}
		return
	}

	res, ok := n.resolver.Apply(n.profile.TimestampFormat, head)
	if !ok {
		// The profile expected a timestamp and this record has none.
		// Null plus flag; never inferred from a neighbor.
		ev.Flags = append(ev.Flags, model.FlagTimestampUnresolved)
		ev.Message = ev.Raw
		if m := levelRe.FindString(head); m != "" {
			ev.Level = canonicalLevels[m]
		}
		return
	}
	n.setTimestamp(ev, res)

	rest := head
	if res.Offset <= 1 {
		rest = strings.TrimLeft(head[res.Offset+res.Length:], "] \t")
		if m := levelRe.FindStringIndex(rest); m != nil && m[0] == 0 {
			ev.Level = canonicalLevels[rest[m[0]:m[1]]]
			rest = strings.TrimLeft(rest[m[1]:], ": -\t")
		}
	}
	if ev.Level == "" {
		if m := levelRe.FindString(head); m != "" {
			ev.Level = canonicalLevels[m]
		}
	}

	parts := append([]string{rest}, rec.Lines[1:]...)
	ev.Message = strings.Join(parts, "\n")
}

// tryJSON is the fast path for freeform streams that turn out to carry
// one JSON document per record. Field paths are JMESPath expressions
// so nested layouts stay reachable through configuration.
func (n *Normalizer) tryJSON(ev *model.LogEvent, rec model.RawRecord) bool {
	text := strings.TrimSpace(rec.Text())
	if !strings.HasPrefix(text, "{") {
		return false
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return false
	}

	ev.Fields = make(map[string]string)
	for k, v := range data {
		switch v.(type) {
		case string, float64, bool:
			ev.Fields[k] = stringify(v)
		}
	}

	if raw := n.searchJSON("level", data); raw != "" {
		if level, ok := canonicalLevels[strings.ToUpper(raw)]; ok {
			ev.Level = level
		}
	}
	if raw := n.searchJSON("message", data); raw != "" {
		ev.Message = raw
	} else {
		ev.Message = ev.Raw
	}
	if raw := n.searchJSON("timestamp", data); raw != "" {
		if res, ok := n.resolver.Resolve(raw); ok {
			n.setTimestamp(ev, res)
		} else {
			ev.Flags = append(ev.Flags, model.FlagTimestampUnresolved)
		}
	}
	return true
}

func (n *Normalizer) searchJSON(path string, data map[string]interface{}) string {
	jp, ok := n.jsonPaths[path]
	if !ok {
		return ""
	}
	res, err := jp.Search(data)
	if err != nil || res == nil {
		return ""
	}
	return stringify(res)
}

func (n *Normalizer) setTimestamp(ev *model.LogEvent, res timestamp.Result) {
	t := res.Time
	ev.Timestamp = &t
	if res.YearInferred {
		ev.Flags = append(ev.Flags, model.FlagYearInferred)
	}
	if res.ZoneDefaulted {
		ev.Flags = append(ev.Flags, model.FlagZoneDefaulted)
	}
	if res.Fuzzy {
		ev.Flags = append(ev.Flags, model.FlagFuzzyTimestamp)
	}
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
