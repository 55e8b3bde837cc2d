package controller

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/dto"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/service"
	"lognorm-backend/internal/util"
)

type MetricController struct {
	metricQueryService service.MetricQueryService
}

func NewMetricController(metricQueryService service.MetricQueryService) *MetricController {
	return &MetricController{
		metricQueryService: metricQueryService,
	}
}

func RegisterMetricRoutes(router *gin.Engine, controller *MetricController) {
	v1Metrics := router.Group("/api/v1/metrics")
	{
		v1Metrics.GET("/summary", controller.GetSummaryMetrics)
		v1Metrics.GET("/timeseries", controller.GetTimeseriesMetrics)
		v1Metrics.GET("/distribution", controller.GetDistributionMetrics)
	}
	v1Events := router.Group("/api/v1/events")
	{
		v1Events.GET("/sources", controller.GetSources)
	}
}

// GetSummaryMetrics returns total normalized and degraded event
// counts within a time range, optionally filtered by sources.
func (c *MetricController) GetSummaryMetrics(ctx *gin.Context) {
	startTime, endTime, sources, err := parseBaseQueryParams(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	req := dto.MetricSummaryRequest{
		StartTime: startTime,
		EndTime:   endTime,
		Sources:   sources,
	}

	result, err := c.metricQueryService.GetSummary(ctx.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Error getting summary metrics")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to get summary metrics", nil))
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetTimeseriesMetrics returns bucketed counts for one metric,
// optionally grouped by level, pattern_kind, flag or source.
func (c *MetricController) GetTimeseriesMetrics(ctx *gin.Context) {
	startTime, endTime, sources, err := parseBaseQueryParams(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	metricName := ctx.Query("metricName")
	interval := ctx.Query("interval")
	groupBy := ctx.DefaultQuery("groupBy", "total")

	if metricName == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("metricName is required", nil))
		return
	}
	if interval == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("interval is required", nil))
		return
	}

	req := dto.MetricTimeseriesRequest{
		StartTime:  startTime,
		EndTime:    endTime,
		Sources:    sources,
		MetricName: metricName,
		Interval:   interval,
		GroupBy:    groupBy,
	}

	result, err := c.metricQueryService.GetTimeseries(ctx.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Error getting timeseries metrics")
		if strings.Contains(err.Error(), "invalid") {
			ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		} else {
			ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to get timeseries metrics", nil))
		}
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetDistributionMetrics returns per-dimension counts for one metric,
// e.g. how events split across levels or pattern kinds.
func (c *MetricController) GetDistributionMetrics(ctx *gin.Context) {
	startTime, endTime, sources, err := parseBaseQueryParams(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	metricName := ctx.Query("metricName")
	dimension := ctx.Query("dimension")
	if metricName == "" || dimension == "" {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("metricName and dimension are required", nil))
		return
	}

	req := dto.MetricDistributionRequest{
		StartTime:  startTime,
		EndTime:    endTime,
		Sources:    sources,
		MetricName: metricName,
		Dimension:  dimension,
	}

	result, err := c.metricQueryService.GetDistribution(ctx.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Error getting distribution metrics")
		if strings.Contains(err.Error(), "invalid") || strings.Contains(err.Error(), "unsupported") {
			ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		} else {
			ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to get distribution metrics", nil))
		}
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetSources lists the distinct event sources seen in a time range.
func (c *MetricController) GetSources(ctx *gin.Context) {
	startTime, endTime, _, err := parseBaseQueryParams(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	req := dto.SourceListRequest{
		StartTime: startTime,
		EndTime:   endTime,
	}

	result, err := c.metricQueryService.GetSources(ctx.Request.Context(), req)
	if err != nil {
		log.Error().Err(err).Msg("Error getting sources")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to get sources", nil))
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func parseBaseQueryParams(ctx *gin.Context) (time.Time, time.Time, []string, error) {
	startTimeStr := ctx.Query("startTime")
	endTimeStr := ctx.Query("endTime")
	sourcesStr := ctx.Query("sources")

	if startTimeStr == "" || endTimeStr == "" {
		return time.Time{}, time.Time{}, nil, errors.New("startTime and endTime are required query parameters")
	}

	startTime, errStart := util.ParseTimeFlexible(startTimeStr)
	endTime, errEnd := util.ParseTimeFlexible(endTimeStr)
	if errStart != nil || errEnd != nil {
		return time.Time{}, time.Time{}, nil, errors.New("invalid startTime or endTime format. Use ISO 8601 or epoch milliseconds")
	}
	if endTime.Before(startTime) {
		return time.Time{}, time.Time{}, nil, errors.New("endTime cannot be before startTime")
	}

	var sources []string
	if sourcesStr != "" {
		sources = strings.Split(sourcesStr, ",")
		for i := range sources {
			sources[i] = strings.TrimSpace(sources[i])
		}
	}
	return startTime, endTime, sources, nil
}
