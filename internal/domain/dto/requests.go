package dto

import (
	"github.com/ougirez/placealloc/internal/domain"
)

type CreatePlaceRequest struct {
	Label     string   `json:"label" validate:"max=200"`
	ICB       string   `json:"icb" validate:"required"`
	Practices []string `json:"practices" validate:"dive,required"`
	Districts []string `json:"districts" validate:"dive,required"`
	SelectAll bool     `json:"select_all"`
}

type BackfillRequest struct {
	Path  string `json:"path" validate:"required"`
	Sheet string `json:"sheet"`
}

type SessionResponse struct {
	SessionID string         `json:"session_id"`
	Places    []domain.Place `json:"places"`
}

type PracticeOption struct {
	Code     string `json:"code"`
	Display  string `json:"display"`
	District string `json:"district,omitempty"`
}

type HeadlineMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Delta float64 `json:"delta"`
	Error string  `json:"error,omitempty"`
}

type PlaceSummary struct {
	Label     string           `json:"label"`
	ICB       string           `json:"icb"`
	Practices []string         `json:"practices"`
	Core      HeadlineMetric   `json:"core"`
	SubIndex  []HeadlineMetric `json:"sub_indices"`
	Inequal   HeadlineMetric   `json:"health_inequalities"`
}

type AdminLoginRequest struct {
	Secret string `json:"secret" validate:"required"`
}

type BackfillResponse struct {
	Rows int `json:"rows"`
}
