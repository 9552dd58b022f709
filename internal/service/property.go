package service

import (
	"context"

	"github.com/Strob0t/rentledger/internal/domain/property"
	"github.com/Strob0t/rentledger/internal/port/database"
)

// PropertyService handles property CRUD.
type PropertyService struct {
	store database.Store
}

// NewPropertyService creates a new PropertyService.
func NewPropertyService(store database.Store) *PropertyService {
	return &PropertyService{store: store}
}

// List returns all properties of the workspace.
func (s *PropertyService) List(ctx context.Context) ([]property.Property, error) {
	return s.store.ListProperties(ctx)
}

// Get returns a property by ID.
func (s *PropertyService) Get(ctx context.Context, id string) (*property.Property, error) {
	return s.store.GetProperty(ctx, id)
}

// Create validates and stores a property.
func (s *PropertyService) Create(ctx context.Context, req property.CreateRequest) (*property.Property, error) {
	p, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	return s.store.CreateProperty(ctx, p)
}

// Update overwrites every editable field of a property.
func (s *PropertyService) Update(ctx context.Context, id string, req property.UpdateRequest) (*property.Property, error) {
	p, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	p.ID = id
	return s.store.UpdateProperty(ctx, p)
}

// Delete removes a property. It fails with domain.ErrConflict while
// tenants still reference it.
func (s *PropertyService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteProperty(ctx, id)
}
