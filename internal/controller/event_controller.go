package controller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/dto"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/service"
	"lognorm-backend/internal/util"
)

type EventController struct {
	eventQueryService service.EventQueryService
}

func NewEventController(eventQueryService service.EventQueryService) *EventController {
	return &EventController{
		eventQueryService: eventQueryService,
	}
}

func RegisterEventRoutes(router *gin.Engine, controller *EventController) {
	v1 := router.Group("/api/v1/events")
	{
		v1.GET("", controller.GetEvents)
	}
}

// GetEvents searches normalized events within a time range, with
// optional full-text query and level/source/kind/flag filters.
// Supports pagination and sorting.
func (c *EventController) GetEvents(ctx *gin.Context) {
	startTimeStr := ctx.Query("startTime")
	endTimeStr := ctx.Query("endTime")
	query := ctx.Query("query")
	sortBy := ctx.DefaultQuery("sortBy", "@timestamp")
	sortOrder := ctx.DefaultQuery("sortOrder", "desc")
	pageStr := ctx.DefaultQuery("page", "1")
	sizeStr := ctx.DefaultQuery("size", "50")

	startTime, errStart := util.ParseTimeFlexible(startTimeStr)
	endTime, errEnd := util.ParseTimeFlexible(endTimeStr)
	if errStart != nil || errEnd != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid startTime or endTime format. Use ISO 8601 or epoch milliseconds.", nil))
		return
	}

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil || size <= 0 || size > 1000 {
		size = 500
	}

	searchReq := dto.EventSearchRequest{
		StartTime: startTime,
		EndTime:   endTime,
		Query:     query,
		Levels:    splitQueryList(ctx.Query("levels")),
		Sources:   splitQueryList(ctx.Query("sources")),
		Kinds:     splitQueryList(ctx.Query("kinds")),
		Flags:     splitQueryList(ctx.Query("flags")),
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Page:      page,
		Size:      size,
	}

	result, err := c.eventQueryService.SearchEvents(ctx.Request.Context(), searchReq)
	if err != nil {
		log.Error().Err(err).Msg("Error searching events")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Failed to search events", nil))
		return
	}

	ctx.JSON(http.StatusOK, result)
}

func splitQueryList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
