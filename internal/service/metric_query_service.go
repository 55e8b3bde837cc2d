package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/dto"
	"lognorm-backend/internal/repository"
)

type MetricQueryService interface {
	GetSummary(ctx context.Context, req dto.MetricSummaryRequest) (*dto.MetricSummaryResponse, error)
	GetTimeseries(ctx context.Context, req dto.MetricTimeseriesRequest) (*dto.MetricTimeseriesResponse, error)
	GetDistribution(ctx context.Context, req dto.MetricDistributionRequest) (*dto.MetricDistributionResponse, error)
	GetSources(ctx context.Context, req dto.SourceListRequest) (*dto.SourceListResponse, error)
}

var allowedMetrics = map[string]bool{
	"event_normalized": true,
	"event_degraded":   true,
	"event_flagged":    true,
}

type metricQueryService struct {
	metricRepo repository.MetricRepository
}

func NewMetricQueryService(metricRepo repository.MetricRepository) MetricQueryService {
	return &metricQueryService{
		metricRepo: metricRepo,
	}
}

func (s *metricQueryService) GetSummary(ctx context.Context, req dto.MetricSummaryRequest) (*dto.MetricSummaryResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	log.Info().Time("start", req.StartTime).Time("end", req.EndTime).Strs("sources", req.Sources).Msg("Getting summary metrics")
	return s.metricRepo.GetSummaryMetrics(ctx, req)
}

func (s *metricQueryService) GetTimeseries(ctx context.Context, req dto.MetricTimeseriesRequest) (*dto.MetricTimeseriesResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	if !allowedMetrics[req.MetricName] {
		return nil, fmt.Errorf("invalid metricName: %s", req.MetricName)
	}

	allowedIntervals := map[string]bool{
		"1 minute": true, "5 minute": true, "10 minute": true,
		"30 minute": true, "1 hour": true, "1 day": true,
	}
	if !allowedIntervals[req.Interval] {
		return nil, fmt.Errorf("invalid interval: %s", req.Interval)
	}

	allowedGroupBy := map[string]bool{
		"level": true, "pattern_kind": true, "flag": true, "source": true, "total": true, "": true,
	}
	if req.GroupBy == "" {
		req.GroupBy = "total"
	}
	if !allowedGroupBy[req.GroupBy] {
		return nil, fmt.Errorf("invalid groupBy: %s", req.GroupBy)
	}

	log.Info().
		Time("start", req.StartTime).
		Time("end", req.EndTime).
		Strs("sources", req.Sources).
		Str("metric", req.MetricName).
		Str("interval", req.Interval).
		Str("group_by", req.GroupBy).
		Msg("Getting timeseries metrics")

	return s.metricRepo.GetTimeseriesMetrics(ctx, req)
}

func (s *metricQueryService) GetDistribution(ctx context.Context, req dto.MetricDistributionRequest) (*dto.MetricDistributionResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if !allowedMetrics[req.MetricName] {
		return nil, fmt.Errorf("invalid metricName: %s", req.MetricName)
	}
	log.Info().
		Time("start", req.StartTime).
		Time("end", req.EndTime).
		Str("metric", req.MetricName).
		Str("dimension", req.Dimension).
		Msg("Getting distribution metrics")
	return s.metricRepo.GetDistributionMetrics(ctx, req)
}

func (s *metricQueryService) GetSources(ctx context.Context, req dto.SourceListRequest) (*dto.SourceListResponse, error) {
	if err := validateRange(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	log.Info().Time("start", req.StartTime).Time("end", req.EndTime).Msg("Getting distinct sources")
	return s.metricRepo.GetDistinctSources(ctx, req)
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return errors.New("startTime and endTime are required")
	}
	if end.Before(start) {
		return errors.New("endTime cannot be before startTime")
	}
	return nil
}
