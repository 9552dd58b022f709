// Package property defines rental properties that tenants occupy.
package property

import (
	"strings"
	"time"

	"github.com/Strob0t/rentledger/internal/domain"
)

// Kind classifies a property.
type Kind string

const (
	KindApartment  Kind = "apartment"
	KindHouse      Kind = "house"
	KindCommercial Kind = "commercial"
	KindLand       Kind = "land"
)

// ParseKind validates s. The empty string maps to KindApartment.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "":
		return KindApartment, nil
	case KindApartment, KindHouse, KindCommercial, KindLand:
		return Kind(s), nil
	}
	return "", domain.Validationf("kind must be one of: apartment, house, commercial, land")
}

// Property is a building or plot with one or more rentable units.
type Property struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Address     string    `json:"address,omitempty"`
	City        string    `json:"city,omitempty"`
	Kind        Kind      `json:"kind"`
	Units       int       `json:"units"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRequest holds the fields required to create a property.
type CreateRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address,omitempty" validate:"max=500"`
	City    string `json:"city,omitempty" validate:"max=120"`
	Kind    string `json:"kind,omitempty"`
	Units   int    `json:"units,omitempty" validate:"gte=0,lte=10000"`
	Notes   string `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateRequest replaces every editable field of a property.
type UpdateRequest = CreateRequest

// Normalize validates the request and returns the property it describes.
// Units defaults to 1.
func (r *CreateRequest) Normalize() (*Property, error) {
	r.Name = strings.TrimSpace(r.Name)
	if err := domain.ValidateStruct(r); err != nil {
		return nil, err
	}
	kind, err := ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}
	units := r.Units
	if units == 0 {
		units = 1
	}
	return &Property{
		Name:    r.Name,
		Address: strings.TrimSpace(r.Address),
		City:    strings.TrimSpace(r.City),
		Kind:    kind,
		Units:   units,
		Notes:   r.Notes,
	}, nil
}
