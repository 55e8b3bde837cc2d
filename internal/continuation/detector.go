package continuation

import (
	"regexp"
	"strings"

	"lognorm-backend/internal/model"
	"lognorm-backend/internal/pattern"
	"lognorm-backend/internal/timestamp"
)

// Stack-trace shapes recognized across Java, Python and Go runtimes.
var (
	traceStartRe = regexp.MustCompile(`^(Traceback \(most recent call last\):|Exception in thread ".+"|panic: )`)
	traceLineRe  = regexp.MustCompile(`^(\s+at |\s+File "|Caused by:|\s+\.\.\. \d+ more)`)
)

// Detector decides whether a line starts a new logical record or
// extends the previous one. The decision for line i depends only on
// the frozen profile and line i-1, so processing stays strictly
// ordered and stateless.
type Detector struct {
	resolver *timestamp.Resolver
}

func NewDetector(resolver *timestamp.Resolver) *Detector {
	return &Detector{resolver: resolver}
}

// IsContinuation applies the heuristics in fixed precedence:
// a timestamp at the expected position always wins and starts a new
// record; indentation under a timestamp-anchored profile continues;
// stack-trace shapes continue; otherwise structured kinds imply one
// record per line and freeform continues only under a timestamp anchor.
func (d *Detector) IsContinuation(profile *model.FormatProfile, prevLine, line string) bool {
	if profile.HasTimestamp() && d.matchesAnchor(profile, line) {
		return false
	}

	if profile.Continuation.IndentContinues && startsWithWhitespace(line) && profile.Continuation.TimestampAnchored {
		return true
	}

	if (traceStartRe.MatchString(prevLine) || traceLineRe.MatchString(prevLine)) && traceLineRe.MatchString(line) {
		return true
	}

	if profile.Kind == model.PatternDelimited || profile.Kind == model.PatternFixedToken {
		return false
	}
	return profile.Continuation.TimestampAnchored
}

// matchesAnchor checks the committed timestamp format at its expected
// position: the designated field for delimited records, the start of
// the line otherwise.
func (d *Detector) matchesAnchor(profile *model.FormatProfile, line string) bool {
	if profile.Kind == model.PatternDelimited && profile.Fields.TimestampField >= 0 {
		fields, ok := pattern.SplitFields(profile.Fields, line)
		if !ok {
			return false
		}
		_, ok = d.resolver.Apply(profile.TimestampFormat, fields[profile.Fields.TimestampField])
		return ok
	}

	res, ok := d.resolver.Apply(profile.TimestampFormat, line)
	if !ok {
		return false
	}
	// Allow a leading bracket, nothing more.
	return res.Offset <= 1
}

func startsWithWhitespace(line string) bool {
	return line != "" && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t"))
}
