package timescaledb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/dto"
	"lognorm-backend/internal/repository"
)

// Dimensions that may be grouped or filtered on. Everything else is
// rejected before it reaches SQL.
var allowedDimensions = map[string]string{
	"level":        "tags->>'level'",
	"pattern_kind": "tags->>'pattern_kind'",
	"flag":         "tags->>'flag'",
	"source":       "source",
}

type timescaleMetricRepository struct {
	pool       *pgxpool.Pool
	eventTable string
}

func NewTimescaleMetricRepository(pool *pgxpool.Pool) (repository.MetricRepository, error) {
	if pool == nil {
		log.Warn().Msg("TimescaleDB pool is nil in NewTimescaleMetricRepository.")
		return nil, errors.New("TimescaleDB connection pool is required for MetricRepository")
	}
	return &timescaleMetricRepository{
		pool:       pool,
		eventTable: metricEventsTableName,
	}, nil
}

func (r *timescaleMetricRepository) GetSummaryMetrics(ctx context.Context, req dto.MetricSummaryRequest) (*dto.MetricSummaryResponse, error) {
	resp := &dto.MetricSummaryResponse{}
	var err error

	whereClauses := []string{"time >= $1", "time < $2"}
	args := []interface{}{req.StartTime, req.EndTime}
	argCounter := 3

	if len(req.Sources) > 0 {
		srcPlaceholders := make([]string, len(req.Sources))
		for i, src := range req.Sources {
			srcPlaceholders[i] = fmt.Sprintf("$%d", argCounter)
			args = append(args, src)
			argCounter++
		}
		whereClauses = append(whereClauses, fmt.Sprintf("source IN (%s)", strings.Join(srcPlaceholders, ",")))
	}
	whereSQL := strings.Join(whereClauses, " AND ")

	eventCountSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE metric_name = 'event_normalized' AND %s", r.eventTable, whereSQL)
	err = r.pool.QueryRow(ctx, eventCountSQL, args...).Scan(&resp.TotalEvents)
	if err != nil {
		log.Error().Err(err).Str("query", eventCountSQL).Msg("Failed to count normalized events")
	}

	degradedCountSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE metric_name = 'event_degraded' AND %s", r.eventTable, whereSQL)
	err = r.pool.QueryRow(ctx, degradedCountSQL, args...).Scan(&resp.TotalDegradedEvents)
	if err != nil {
		log.Error().Err(err).Str("query", degradedCountSQL).Msg("Failed to count degraded events")
	}

	if resp.TotalEvents == 0 && resp.TotalDegradedEvents == 0 && err != nil {
		return nil, fmt.Errorf("failed to get summary metrics: %w", err)
	}

	return resp, nil
}

func (r *timescaleMetricRepository) GetTimeseriesMetrics(ctx context.Context, req dto.MetricTimeseriesRequest) (*dto.MetricTimeseriesResponse, error) {
	groupByTag := req.GroupBy
	groupBySQL, ok := allowedDimensions[req.GroupBy]
	isGroupByTotal := false
	if !ok {
		groupBySQL = "'total'"
		isGroupByTotal = true
	}

	validIntervals := map[string]bool{"1 minute": true, "5 minute": true, "10 minute": true, "30 minute": true, "1 hour": true, "1 day": true}
	if !validIntervals[req.Interval] {
		return nil, fmt.Errorf("invalid interval: %s", req.Interval)
	}

	var queryBuilder strings.Builder
	args := []interface{}{}
	argCounter := 1

	queryBuilder.WriteString(fmt.Sprintf("SELECT time_bucket($%d::interval, time) AS bucket, ", argCounter))
	args = append(args, req.Interval)
	argCounter++

	if isGroupByTotal {
		queryBuilder.WriteString("'total' AS group_key, ")
	} else {
		queryBuilder.WriteString(fmt.Sprintf("%s AS group_key, ", groupBySQL))
	}
	queryBuilder.WriteString(fmt.Sprintf("COUNT(*) AS value FROM %s WHERE metric_name = $%d AND time >= $%d AND time < $%d ", r.eventTable, argCounter, argCounter+1, argCounter+2))
	args = append(args, req.MetricName, req.StartTime, req.EndTime)
	argCounter += 3

	if len(req.Sources) > 0 {
		srcPlaceholders := make([]string, len(req.Sources))
		for i, src := range req.Sources {
			srcPlaceholders[i] = fmt.Sprintf("$%d", argCounter)
			args = append(args, src)
			argCounter++
		}
		queryBuilder.WriteString(fmt.Sprintf("AND source IN (%s) ", strings.Join(srcPlaceholders, ",")))
	}

	queryBuilder.WriteString("GROUP BY bucket")
	if !isGroupByTotal {
		queryBuilder.WriteString(", group_key ")
	}

	orderByClause := "ORDER BY bucket ASC"
	var limitClause string

	if req.Sort != nil {
		sortField := req.Sort.Field
		if sortField == "value" {
			sortField = "value"
		} else if sortField == "time" || sortField == "@timestamp" {
			sortField = "bucket"
		} else if _, isTag := allowedDimensions[sortField]; isTag {
			sortField = "group_key"
		} else {
			log.Warn().Str("sort_field", req.Sort.Field).Msg("Unsupported sort field requested, defaulting to time bucket.")
			sortField = "bucket"
		}

		sortOrder := "ASC"
		if strings.ToLower(req.Sort.Order) == "desc" {
			sortOrder = "DESC"
		}
		orderByClause = fmt.Sprintf("ORDER BY %s %s, bucket ASC", sortField, sortOrder)
	}

	if req.Limit != nil && *req.Limit > 0 {
		limitClause = fmt.Sprintf(" LIMIT $%d", argCounter)
		args = append(args, *req.Limit)
		argCounter++
	}

	queryBuilder.WriteString(" ")
	queryBuilder.WriteString(orderByClause)
	if limitClause != "" {
		queryBuilder.WriteString(" ")
		queryBuilder.WriteString(limitClause)
	}

	querySQL := queryBuilder.String()

	log.Debug().Str("query", querySQL).Interface("args", args).Msg("Executing TimescaleDB timeseries query")

	rows, err := r.pool.Query(ctx, querySQL, args...)
	if err != nil {
		log.Error().Err(err).Str("query", querySQL).Interface("args", args).Msg("Failed to execute timeseries query")
		return nil, fmt.Errorf("timeseries query failed: %w", err)
	}
	defer rows.Close()

	seriesMap := make(map[string][]dto.TimeseriesDataPoint)

	for rows.Next() {
		var bucket time.Time
		var groupKey *string
		var value int64

		if err := rows.Scan(&bucket, &groupKey, &value); err != nil {
			log.Error().Err(err).Msg("Failed to scan timeseries row")
			continue
		}

		var key string
		if isGroupByTotal {
			key = "total"
		} else if groupKey != nil {
			key = *groupKey
		} else {
			key = fmt.Sprintf("%s_NULL", groupByTag)
		}

		seriesMap[key] = append(seriesMap[key], dto.TimeseriesDataPoint{
			Timestamp: bucket.UnixMilli(),
			Value:     value,
		})
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error iterating timeseries rows")
		return nil, fmt.Errorf("failed iterating query results: %w", err)
	}

	response := &dto.MetricTimeseriesResponse{
		Series: make([]dto.TimeseriesSeries, 0, len(seriesMap)),
	}
	for name, data := range seriesMap {
		response.Series = append(response.Series, dto.TimeseriesSeries{
			Name: name,
			Data: data,
		})
	}

	return response, nil
}

func (r *timescaleMetricRepository) GetDistributionMetrics(ctx context.Context, req dto.MetricDistributionRequest) (*dto.MetricDistributionResponse, error) {
	tagColumnSQL, ok := allowedDimensions[req.Dimension]
	if !ok {
		return nil, fmt.Errorf("unsupported dimension for distribution: %s", req.Dimension)
	}

	whereClauses := []string{"metric_name = $1", "time >= $2", "time < $3"}
	args := []interface{}{req.MetricName, req.StartTime, req.EndTime}
	argCounter := 4

	if len(req.Sources) > 0 {
		srcPlaceholders := make([]string, len(req.Sources))
		for i, src := range req.Sources {
			srcPlaceholders[i] = fmt.Sprintf("$%d", argCounter)
			args = append(args, src)
			argCounter++
		}
		whereClauses = append(whereClauses, fmt.Sprintf("source IN (%s)", strings.Join(srcPlaceholders, ",")))
	}

	whereClauses = append(whereClauses, fmt.Sprintf("%s IS NOT NULL", tagColumnSQL))
	whereSQL := strings.Join(whereClauses, " AND ")

	querySQL := fmt.Sprintf(`
        SELECT
            %s AS dimension_key,
            COUNT(*) AS value
        FROM %s
        WHERE %s
        GROUP BY dimension_key
        ORDER BY value DESC
    `, tagColumnSQL, r.eventTable, whereSQL)

	log.Debug().Str("query", querySQL).Interface("args", args).Msg("Executing TimescaleDB distribution query")

	rows, err := r.pool.Query(ctx, querySQL, args...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to execute distribution query")
		return nil, fmt.Errorf("distribution query failed: %w", err)
	}
	defer rows.Close()

	distribution := make([]dto.DistributionDataPoint, 0)
	for rows.Next() {
		var key *string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			log.Error().Err(err).Msg("Failed to scan distribution row")
			continue
		}
		if key != nil {
			distribution = append(distribution, dto.DistributionDataPoint{
				Name:  *key,
				Value: value,
			})
		}
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error iterating distribution rows")
		return nil, fmt.Errorf("failed iterating distribution results: %w", err)
	}

	return &dto.MetricDistributionResponse{
		MetricName:   req.MetricName,
		Dimension:    req.Dimension,
		Distribution: distribution,
	}, nil
}

func (r *timescaleMetricRepository) GetDistinctSources(ctx context.Context, req dto.SourceListRequest) (*dto.SourceListResponse, error) {
	querySQL := fmt.Sprintf("SELECT DISTINCT source FROM %s WHERE time >= $1 AND time < $2 ORDER BY source", r.eventTable)
	args := []interface{}{req.StartTime, req.EndTime}

	rows, err := r.pool.Query(ctx, querySQL, args...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query distinct sources")
		return nil, fmt.Errorf("failed getting sources: %w", err)
	}
	defer rows.Close()

	sources := make([]string, 0)
	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			log.Error().Err(err).Msg("Failed to scan source row")
			continue
		}
		sources = append(sources, src)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Error iterating source rows")
		return nil, fmt.Errorf("failed iterating source results: %w", err)
	}

	return &dto.SourceListResponse{Sources: sources}, nil
}
