package normalize

import (
	"io"

	"lognorm-backend/config"
	"lognorm-backend/internal/continuation"
	"lognorm-backend/internal/detect"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/timestamp"
)

// Pipeline ties detection and normalization together: it samples the
// head of a line source, commits a format profile, and hands back a
// lazy stream of normalized events for the whole input.
type Pipeline struct {
	detector  *detect.UniversalDetector
	resolver  *timestamp.Resolver
	jsonPaths map[string]string
}

func NewPipeline(cfg *config.DetectionConfig) (*Pipeline, error) {
	resolver, err := timestamp.NewResolver(cfg)
	if err != nil {
		return nil, err
	}
	detector, err := detect.NewUniversalDetector(cfg, resolver)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		detector:  detector,
		resolver:  resolver,
		jsonPaths: cfg.JSONPaths,
	}, nil
}

// Detect consumes up to the sample budget from src and returns the
// committed profile without normalizing anything.
func (p *Pipeline) Detect(src LineSource) (*model.FormatProfile, error) {
	sampler, _, err := p.fillSampler(src)
	if err != nil {
		return nil, err
	}
	return sampler.Commit(), nil
}

// Run samples src, commits a profile, and returns a stream that
// replays the sampled lines before continuing with the remainder.
// The profile is frozen at commit; later lines never change it.
func (p *Pipeline) Run(src LineSource, sourceName string) (*Stream, error) {
	sampler, exhausted, err := p.fillSampler(src)
	if err != nil {
		return nil, err
	}
	profile := sampler.Commit()

	normalizer := NewNormalizer(profile, p.resolver, p.jsonPaths)
	cont := continuation.NewDetector(p.resolver)

	replay := LineSource(Lines(sampler.Buffered()))
	if !exhausted {
		replay = &chainSource{head: replay, tail: src}
	}
	return newStream(normalizer, cont, replay, sourceName), nil
}

// RunWithProfile skips detection and normalizes src against an
// already committed profile, for example one cached from an earlier
// run over the same file.
func (p *Pipeline) RunWithProfile(profile *model.FormatProfile, src LineSource, sourceName string) *Stream {
	normalizer := NewNormalizer(profile, p.resolver, p.jsonPaths)
	cont := continuation.NewDetector(p.resolver)
	return newStream(normalizer, cont, src, sourceName)
}

func (p *Pipeline) fillSampler(src LineSource) (*detect.Sampler, bool, error) {
	sampler := p.detector.NewSampler()
	for !sampler.Full() {
		line, err := src.Next()
		if err == io.EOF {
			return sampler, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		sampler.Observe(line)
	}
	return sampler, false, nil
}
