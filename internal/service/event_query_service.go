package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/dto"
	"lognorm-backend/internal/repository"
)

type EventQueryService interface {
	SearchEvents(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error)
}

type eventQueryService struct {
	eventRepo repository.EventRepository
}

func NewEventQueryService(eventRepo repository.EventRepository) EventQueryService {
	return &eventQueryService{
		eventRepo: eventRepo,
	}
}

func (s *eventQueryService) SearchEvents(ctx context.Context, req dto.EventSearchRequest) (*dto.EventSearchResponse, error) {
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return nil, errors.New("startTime and endTime are required")
	}
	if req.EndTime.Before(req.StartTime) {
		return nil, errors.New("endTime cannot be before startTime")
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.Size <= 0 || req.Size > 1000 {
		req.Size = 500
	}
	if req.SortBy == "" {
		req.SortBy = "@timestamp"
	}
	req.SortOrder = strings.ToLower(req.SortOrder)
	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		req.SortOrder = "desc"
	}

	for i, level := range req.Levels {
		req.Levels[i] = strings.ToUpper(level)
	}
	for i, kind := range req.Kinds {
		req.Kinds[i] = strings.ToLower(kind)
	}

	log.Info().
		Time("start_time", req.StartTime).
		Time("end_time", req.EndTime).
		Str("query", req.Query).
		Strs("levels", req.Levels).
		Strs("sources", req.Sources).
		Strs("kinds", req.Kinds).
		Int("page", req.Page).
		Int("size", req.Size).
		Msg("Searching events")

	return s.eventRepo.Search(ctx, req)
}
