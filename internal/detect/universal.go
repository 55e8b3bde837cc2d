package detect

import (
	"strings"

	"github.com/rs/zerolog/log"

	"lognorm-backend/config"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/pattern"
	"lognorm-backend/internal/timestamp"
)

// timestampSupport is the fraction of sampled lines that must agree on
// a descriptor before the profile commits to a timestamp format.
const timestampSupport = 0.5

// UniversalDetector composes the pattern, timestamp and continuation
// heuristics over a bounded sample to produce one FormatProfile per
// stream. Detection runs once; the profile is frozen afterwards and
// records that later disagree with it degrade instead of re-triggering
// detection. That keeps processing linear at the cost of occasional
// per-record misclassification on heterogeneous streams.
type UniversalDetector struct {
	sampleSize int
	patterns   *pattern.Detector
	resolver   *timestamp.Resolver
}

// NewUniversalDetector validates the detection configuration and wires
// the component detectors. Invalid configuration is the only hard
// failure in the pipeline and surfaces here, before any data is read.
func NewUniversalDetector(cfg *config.DetectionConfig, resolver *timestamp.Resolver) (*UniversalDetector, error) {
	probe := config.Config{Detection: *cfg}
	if err := probe.Validate(); err != nil {
		return nil, err
	}
	return &UniversalDetector{
		sampleSize: cfg.SampleSize,
		patterns:   pattern.NewDetector(cfg.MinConfidence),
		resolver:   resolver,
	}, nil
}

func (d *UniversalDetector) SampleSize() int {
	return d.sampleSize
}

// Detect assembles a FormatProfile from a sample of raw lines.
func (d *UniversalDetector) Detect(sample []string) *model.FormatProfile {
	structural := d.patterns.Analyze(sample)

	profile := &model.FormatProfile{
		Kind:       structural.Kind,
		Fields:     structural.Fields,
		Confidence: structural.Confidence,
	}

	descriptor, field, anchored := d.tallyTimestamps(sample, profile)
	profile.TimestampFormat = descriptor
	if profile.Kind == model.PatternDelimited {
		profile.Fields.TimestampField = field
	}
	profile.Continuation = model.ContinuationRule{
		TimestampAnchored: descriptor != "" && anchored,
		IndentContinues:   descriptor != "" && anchored,
	}

	log.Info().
		Str("kind", string(profile.Kind)).
		Str("timestamp_format", profile.TimestampFormat).
		Int("timestamp_field", profile.Fields.TimestampField).
		Bool("anchored", profile.Continuation.TimestampAnchored).
		Float64("confidence", profile.Confidence).
		Msg("Format profile committed")
	return profile
}

// tallyTimestamps resolves every sampled line (or, for delimited
// samples, every field) and elects the descriptor that wins most
// often. The election only commits with majority support so a stray
// number is not mistaken for the stream's clock.
func (d *UniversalDetector) tallyTimestamps(sample []string, profile *model.FormatProfile) (string, int, bool) {
	type vote struct {
		descriptor string
		field      int
	}
	tally := make(map[vote]int)
	anchorVotes := make(map[vote]int)

	nonBlank := 0
	for _, line := range sample {
		if strings.TrimSpace(line) == "" {
			continue
		}
		nonBlank++

		if profile.Kind == model.PatternDelimited {
			fields, ok := pattern.SplitFields(profile.Fields, line)
			if !ok {
				continue
			}
			for i, f := range fields {
				res, ok := d.resolver.Resolve(f)
				if !ok {
					continue
				}
				v := vote{descriptor: res.Descriptor, field: i}
				tally[v]++
				if i == 0 {
					anchorVotes[v]++
				}
				break
			}
			continue
		}

		res, ok := d.resolver.Resolve(line)
		if !ok {
			continue
		}
		v := vote{descriptor: res.Descriptor, field: -1}
		tally[v]++
		if res.Offset <= 1 {
			anchorVotes[v]++
		}
	}

	if nonBlank == 0 {
		return "", -1, false
	}

	var winner vote
	best := 0
	for v, n := range tally {
		if n > best {
			winner, best = v, n
		}
	}
	if float64(best) < timestampSupport*float64(nonBlank) {
		return "", -1, false
	}

	anchored := anchorVotes[winner]*2 > best
	return winner.descriptor, winner.field, anchored
}

// Phase models the detector's lifetime over one stream.
type Phase int

const (
	PhaseSampling Phase = iota
	PhaseCommitted
)

// Sampler is the per-stream state machine: it accumulates lines while
// sampling and freezes a profile on commit. After commit the profile
// is immutable; there is no backtracking to the sampling phase.
type Sampler struct {
	detector *UniversalDetector
	lines    []string
	profile  *model.FormatProfile
}

func (d *UniversalDetector) NewSampler() *Sampler {
	return &Sampler{
		detector: d,
		lines:    make([]string, 0, d.sampleSize),
	}
}

func (s *Sampler) Phase() Phase {
	if s.profile != nil {
		return PhaseCommitted
	}
	return PhaseSampling
}

// Observe buffers one line. Calling Observe after the sample is full
// or committed is a programming error kept harmless: the line is
// ignored rather than re-opening detection.
func (s *Sampler) Observe(line string) {
	if s.profile != nil || s.Full() {
		return
	}
	s.lines = append(s.lines, line)
}

func (s *Sampler) Full() bool {
	return len(s.lines) >= s.detector.sampleSize
}

// Buffered returns the sampled lines so the caller can replay them
// through normalization; the detector holds no further claim on them.
func (s *Sampler) Buffered() []string {
	return s.lines
}

// Commit freezes the profile. Idempotent: later calls return the same
// profile.
func (s *Sampler) Commit() *model.FormatProfile {
	if s.profile == nil {
		s.profile = s.detector.Detect(s.lines)
	}
	return s.profile
}
