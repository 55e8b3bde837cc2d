package pattern

import (
	"strings"

	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/model"
)

// candidate delimiters, tried in order. Tab before pipe so TSV streams
// with pipes inside messages prefer the stricter hypothesis.
var delimiters = []string{"\t", ",", "|", ";"}

// Result is the structural part of a format profile: the pattern kind,
// how to split fields, and how well the hypothesis explained the sample.
type Result struct {
	Kind       model.PatternKind
	Fields     model.FieldRule
	Confidence float64
}

// Detector infers the dominant line-level structure from a bounded
// sample. It holds only configuration and is safe for concurrent use.
type Detector struct {
	minConfidence float64
}

func NewDetector(minConfidence float64) *Detector {
	return &Detector{minConfidence: minConfidence}
}

// Analyze scores each structural hypothesis by the fraction of
// non-blank sampled lines it splits into a stable (modal) field count
// and picks the best one above the acceptance threshold. Ties go to
// the hypothesis with the richer field count, then to delimiters over
// fixed-width. Below threshold the sample resolves to freeform; this
// is a defined fallback, not an error.
func (d *Detector) Analyze(sample []string) Result {
	lines := nonBlank(sample)
	if len(lines) == 0 {
		return Result{
			Kind:       model.PatternFreeform,
			Fields:     model.FieldRule{TimestampField: -1},
			Confidence: 0,
		}
	}

	var best Result
	for _, delim := range delimiters {
		candidate := d.scoreDelimiter(lines, delim)
		if better(candidate, best) {
			best = candidate
		}
	}
	if fixed := d.scoreFixedWidth(lines); better(fixed, best) {
		best = fixed
	}

	if best.Confidence >= d.minConfidence && best.Kind != "" {
		log.Debug().
			Str("kind", string(best.Kind)).
			Int("field_count", best.Fields.FieldCount).
			Float64("confidence", best.Confidence).
			Msg("Structural hypothesis accepted")
		return best
	}

	// Detection inconclusive: no structured hypothesis explains the
	// sample well enough. Freeform confidence is how sure we are that
	// no structure exists.
	return Result{
		Kind:       model.PatternFreeform,
		Fields:     model.FieldRule{TimestampField: -1},
		Confidence: 1 - best.Confidence,
	}
}

// better implements the ranking order: score first, then modal field
// count. Strict comparison keeps earlier hypotheses (delimiters before
// fixed-width) on exact ties.
func better(candidate, best Result) bool {
	if candidate.Kind == "" {
		return false
	}
	if candidate.Confidence != best.Confidence {
		return candidate.Confidence > best.Confidence
	}
	return candidate.Fields.FieldCount > best.Fields.FieldCount
}

func (d *Detector) scoreDelimiter(lines []string, delim string) Result {
	counts := make(map[int]int)
	for _, line := range lines {
		counts[strings.Count(line, delim)+1]++
	}

	modal, support := 0, 0
	for fields, n := range counts {
		if fields < 2 {
			continue
		}
		if n > support || (n == support && fields > modal) {
			modal, support = fields, n
		}
	}
	if modal == 0 {
		return Result{}
	}

	return Result{
		Kind: model.PatternDelimited,
		Fields: model.FieldRule{
			Delimiter:      delim,
			FieldCount:     modal,
			TimestampField: -1,
		},
		Confidence: float64(support) / float64(len(lines)),
	}
}

// scoreFixedWidth infers column starts from whitespace runs aligned
// across every sampled line, the way `ps` or `kubectl` style output
// lines up.
func (d *Detector) scoreFixedWidth(lines []string) Result {
	shortest := len(lines[0])
	for _, line := range lines[1:] {
		if len(line) < shortest {
			shortest = len(line)
		}
	}
	if shortest < 2 {
		return Result{}
	}

	aligned := make([]bool, shortest)
	for p := 0; p < shortest; p++ {
		aligned[p] = true
		for _, line := range lines {
			if line[p] != ' ' {
				aligned[p] = false
				break
			}
		}
	}

	// A column starts after every whitespace gap aligned across the
	// whole sample. Alignment across every line keeps prose from
	// producing spurious boundaries.
	columns := []int{0}
	run := 0
	for p := 0; p < shortest; p++ {
		if aligned[p] {
			run++
			continue
		}
		if run >= 1 {
			columns = append(columns, p)
		}
		run = 0
	}
	// Two columns is too weak a signal: any stream with a fixed-length
	// timestamp prefix aligns on one gap. Demand at least three.
	if len(columns) < 3 {
		return Result{}
	}

	fieldCount := len(columns)
	matching := 0
	for _, line := range lines {
		if countCells(line, columns) == fieldCount {
			matching++
		}
	}

	return Result{
		Kind: model.PatternFixedToken,
		Fields: model.FieldRule{
			Columns:        columns,
			FieldCount:     fieldCount,
			TimestampField: -1,
		},
		Confidence: float64(matching) / float64(len(lines)),
	}
}

// SplitFields applies a committed field rule to one line. The second
// return is false when the line disagrees with the rule (field count
// mismatch), which callers handle by degrading the record.
func SplitFields(rule model.FieldRule, line string) ([]string, bool) {
	if rule.Delimiter != "" {
		fields := strings.Split(line, rule.Delimiter)
		if len(fields) != rule.FieldCount {
			return fields, false
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields, true
	}

	if len(rule.Columns) > 0 {
		cells := splitColumns(line, rule.Columns)
		if countNonEmpty(cells) != rule.FieldCount {
			return cells, false
		}
		return cells, true
	}

	return nil, false
}

func splitColumns(line string, columns []int) []string {
	cells := make([]string, 0, len(columns))
	for i, start := range columns {
		if start >= len(line) {
			cells = append(cells, "")
			continue
		}
		end := len(line)
		if i+1 < len(columns) && columns[i+1] < end {
			end = columns[i+1]
		}
		cells = append(cells, strings.TrimSpace(line[start:end]))
	}
	return cells
}

func countCells(line string, columns []int) int {
	return countNonEmpty(splitColumns(line, columns))
}

func countNonEmpty(cells []string) int {
	n := 0
	for _, c := range cells {
		if c != "" {
			n++
		}
	}
	return n
}

func nonBlank(sample []string) []string {
	lines := make([]string, 0, len(sample))
	for _, line := range sample {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
