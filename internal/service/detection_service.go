package service

import (
	"errors"

	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/model"
	"lognorm-backend/internal/normalize"
)

// DetectionService exposes ad-hoc detection and normalization over
// caller-supplied lines, backing the HTTP API.
type DetectionService interface {
	Detect(lines []string) (*model.FormatProfile, error)
	Normalize(source string, lines []string) (*model.FormatProfile, []model.LogEvent, error)
}

type detectionService struct {
	pipeline *normalize.Pipeline
}

func NewDetectionService(pipeline *normalize.Pipeline) DetectionService {
	return &detectionService{pipeline: pipeline}
}

func (s *detectionService) Detect(lines []string) (*model.FormatProfile, error) {
	if len(lines) == 0 {
		return nil, errors.New("at least one line is required")
	}
	profile, err := s.pipeline.Detect(normalize.Lines(lines))
	if err != nil {
		return nil, err
	}
	log.Debug().Str("kind", string(profile.Kind)).Float64("confidence", profile.Confidence).Msg("Detected format profile")
	return profile, nil
}

func (s *detectionService) Normalize(source string, lines []string) (*model.FormatProfile, []model.LogEvent, error) {
	if len(lines) == 0 {
		return nil, nil, errors.New("at least one line is required")
	}
	if source == "" {
		source = "inline"
	}

	stream, err := s.pipeline.Run(normalize.Lines(lines), source)
	if err != nil {
		return nil, nil, err
	}
	events, err := stream.Collect()
	if err != nil {
		return nil, nil, err
	}
	return stream.Profile(), events, nil
}
