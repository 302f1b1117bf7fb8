package http

import (
	"time"

	"github.com/IT22056320/ev-booking-backend/internal/pkg/request"
	"github.com/IT22056320/ev-booking-backend/internal/station"
)

// ListStationsRequest defines query parameters for listing stations.
type ListStationsRequest struct {
	request.ListParams
	ConnectorType string `form:"connector_type" binding:"omitempty,oneof=type2 ccs2 chademo"`
	IsAvailable   *bool  `form:"is_available"`
	SortBy        string `form:"sort_by" binding:"omitempty,oneof=name power_kw created_at"`
}

// CreateStationRequest defines the payload for creating a station.
type CreateStationRequest struct {
	Name          string  `json:"name" binding:"required"`
	Location      string  `json:"location"`
	ConnectorType string  `json:"connector_type" binding:"required,oneof=type2 ccs2 chademo"`
	PowerKW       float64 `json:"power_kw" binding:"required,gt=0"`
	IsAvailable   *bool   `json:"is_available"`
}

// UpdateStationRequest defines fields allowed to be updated via PATCH.
type UpdateStationRequest struct {
	Name          *string  `json:"name"`
	Location      *string  `json:"location"`
	ConnectorType *string  `json:"connector_type" binding:"omitempty,oneof=type2 ccs2 chademo"`
	PowerKW       *float64 `json:"power_kw" binding:"omitempty,gt=0"`
	IsAvailable   *bool    `json:"is_available"`
}

// StationResponse is the shape of station data returned by the API.
type StationResponse struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	ConnectorType string    `json:"connector_type"`
	PowerKW       float64   `json:"power_kw"`
	IsAvailable   bool      `json:"is_available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewStationResponse converts a domain station to its API representation.
func NewStationResponse(s *station.Station) StationResponse {
	return StationResponse{
		ID:            s.ID,
		Name:          s.Name,
		Location:      s.Location,
		ConnectorType: s.ConnectorType,
		PowerKW:       s.PowerKW,
		IsAvailable:   s.IsAvailable,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}
