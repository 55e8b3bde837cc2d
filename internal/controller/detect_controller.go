package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lognorm-backend/internal/dto"
	"lognorm-backend/internal/model"
	"lognorm-backend/internal/service"
)

type DetectController struct {
	detectionService service.DetectionService
}

func NewDetectController(detectionService service.DetectionService) *DetectController {
	return &DetectController{
		detectionService: detectionService,
	}
}

func RegisterDetectRoutes(router *gin.Engine, controller *DetectController) {
	v1 := router.Group("/api/v1")
	{
		v1.POST("/detect", controller.Detect)
		v1.POST("/normalize", controller.Normalize)
	}
}

// Detect runs format detection over the posted lines and returns the
// committed profile without normalizing anything.
func (c *DetectController) Detect(ctx *gin.Context) {
	var req dto.DetectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("lines is required", nil))
		return
	}

	profile, err := c.detectionService.Detect(req.Lines)
	if err != nil {
		log.Error().Err(err).Msg("Error detecting format")
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	ctx.JSON(http.StatusOK, dto.DetectResponse{Profile: profile})
}

// Normalize detects the posted lines' format and returns the profile
// together with the normalized events.
func (c *DetectController) Normalize(ctx *gin.Context) {
	var req dto.NormalizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, model.NewResponse("lines is required", nil))
		return
	}

	profile, events, err := c.detectionService.Normalize(req.Source, req.Lines)
	if err != nil {
		log.Error().Err(err).Msg("Error normalizing lines")
		ctx.JSON(http.StatusBadRequest, model.NewResponse(err.Error(), nil))
		return
	}

	ctx.JSON(http.StatusOK, dto.NormalizeResponse{Profile: profile, Events: events})
}
