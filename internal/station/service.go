package station

import (
	"context"
	"strings"
)

type CreateRequest struct {
	Name          string
	Location      string
	ConnectorType string
	PowerKW       float64
	IsAvailable   bool
}

type UpdateRequest struct {
	Name          *string
	Location      *string
	ConnectorType *string
	PowerKW       *float64
	IsAvailable   *bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Station, error)
	GetByID(ctx context.Context, id string) (*Station, error)
	List(ctx context.Context, filter Filter) ([]*Station, int, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Station, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func isValidConnectorType(t string) bool {
	for _, v := range ValidConnectorTypes {
		if t == v {
			return true
		}
	}
	return false
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Station, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrEmptyName
	}
	if !isValidConnectorType(req.ConnectorType) {
		return nil, ErrInvalidConnector
	}
	if req.PowerKW <= 0 {
		return nil, ErrInvalidPower
	}

	st := &Station{
		Name:          strings.TrimSpace(req.Name),
		Location:      req.Location,
		ConnectorType: req.ConnectorType,
		PowerKW:       req.PowerKW,
		IsAvailable:   req.IsAvailable,
	}

	if err := s.repo.Create(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*Station, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Station, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) Update(ctx context.Context, id string, req UpdateRequest) (*Station, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, ErrEmptyName
		}
		st.Name = strings.TrimSpace(*req.Name)
	}
	if req.Location != nil {
		st.Location = *req.Location
	}
	if req.ConnectorType != nil {
		if !isValidConnectorType(*req.ConnectorType) {
			return nil, ErrInvalidConnector
		}
		st.ConnectorType = *req.ConnectorType
	}
	if req.PowerKW != nil {
		if *req.PowerKW <= 0 {
			return nil, ErrInvalidPower
		}
		st.PowerKW = *req.PowerKW
	}
	if req.IsAvailable != nil {
		st.IsAvailable = *req.IsAvailable
	}

	if err := s.repo.Update(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
