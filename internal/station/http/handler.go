package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/IT22056320/ev-booking-backend/internal/pkg/request"
	"github.com/IT22056320/ev-booking-backend/internal/pkg/response"
	"github.com/IT22056320/ev-booking-backend/internal/station"
)

type StationHandler struct {
	stationService station.Service
}

func NewHandler(stationService station.Service) *StationHandler {
	return &StationHandler{
		stationService: stationService,
	}
}

// Create registers a new charging station.
// Access Control: Operator only.
func (h *StationHandler) Create(c *gin.Context) {
	var body CreateStationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	isAvailable := true
	if body.IsAvailable != nil {
		isAvailable = *body.IsAvailable
	}

	st, err := h.stationService.Create(c.Request.Context(), station.CreateRequest{
		Name:          body.Name,
		Location:      body.Location,
		ConnectorType: body.ConnectorType,
		PowerKW:       body.PowerKW,
		IsAvailable:   isAvailable,
	})
	if err != nil {
		switch {
		case errors.Is(err, station.ErrEmptyName),
			errors.Is(err, station.ErrInvalidConnector),
			errors.Is(err, station.ErrInvalidPower):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create station"})
		}
		return
	}

	c.JSON(http.StatusCreated, NewStationResponse(st))
}

// Get retrieves a single station by ID.
func (h *StationHandler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	st, err := h.stationService.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		switch {
		case errors.Is(err, station.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get station"})
		}
		return
	}

	c.JSON(http.StatusOK, NewStationResponse(st))
}

// List retrieves a paginated list of stations with optional filtering.
func (h *StationHandler) List(c *gin.Context) {
	var req ListStationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	filter := station.Filter{
		ConnectorType: req.ConnectorType,
		IsAvailable:   req.IsAvailable,
		Page:          req.Page,
		PageSize:      req.PageSize,
		SortBy:        req.SortBy,
		SortOrder:     req.SortOrder,
	}

	stations, total, err := h.stationService.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list stations"})
		return
	}

	items := make([]StationResponse, len(stations))
	for i, s := range stations {
		items[i] = NewStationResponse(s)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}

// Update modifies station attributes.
// Access Control: Operator only.
func (h *StationHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	var body UpdateStationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body", "details": err.Error()})
		return
	}

	st, err := h.stationService.Update(c.Request.Context(), uri.ID, station.UpdateRequest{
		Name:          body.Name,
		Location:      body.Location,
		ConnectorType: body.ConnectorType,
		PowerKW:       body.PowerKW,
		IsAvailable:   body.IsAvailable,
	})
	if err != nil {
		switch {
		case errors.Is(err, station.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		case errors.Is(err, station.ErrEmptyName),
			errors.Is(err, station.ErrInvalidConnector),
			errors.Is(err, station.ErrInvalidPower):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update station"})
		}
		return
	}

	c.JSON(http.StatusOK, NewStationResponse(st))
}

// Delete removes a station.
// Access Control: Operator only.
func (h *StationHandler) Delete(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	if err := h.stationService.Delete(c.Request.Context(), req.ID); err != nil {
		switch {
		case errors.Is(err, station.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "station not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete station"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
