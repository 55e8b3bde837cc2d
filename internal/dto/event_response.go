package dto

import "lognorm-backend/internal/model"

type EventSearchResponse struct {
	Events     []model.LogEvent `json:"events"`
	TotalCount int64            `json:"totalCount"`
	Page       int              `json:"page"`
	Size       int              `json:"size"`
}

type DetectResponse struct {
	Profile *model.FormatProfile `json:"profile"`
}

type NormalizeResponse struct {
	Profile *model.FormatProfile `json:"profile"`
	Events  []model.LogEvent     `json:"events"`
}
