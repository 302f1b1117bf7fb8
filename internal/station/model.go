package station

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("station not found")
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrInvalidConnector = errors.New("invalid connector_type")
	ErrInvalidPower     = errors.New("power_kw must be positive")
)

// ValidConnectorTypes enumerates the charger plug standards we accept.
var ValidConnectorTypes = []string{"type2", "ccs2", "chademo"}

// Station represents a single charging point that can hold bookings.
type Station struct {
	ID            string
	Name          string
	Location      string
	ConnectorType string
	PowerKW       float64
	IsAvailable   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Filter defines parameters for listing stations.
type Filter struct {
	ConnectorType string
	IsAvailable   *bool // pointer to distinguish "not set" from false
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
