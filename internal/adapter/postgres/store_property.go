package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/property"
)

const propertyColumns = `id, workspace_id, name, address, city, kind, units, notes, created_at, updated_at`

func scanProperty(row scannable) (property.Property, error) {
	var p property.Property
	err := row.Scan(&p.ID, &p.WorkspaceID, &p.Name, &p.Address, &p.City, &p.Kind, &p.Units, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) ListProperties(ctx context.Context) ([]property.Property, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE workspace_id = $1 ORDER BY name, created_at`,
		workspaceFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	props := []property.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		props = append(props, p)
	}
	return props, rows.Err()
}

func (s *Store) GetProperty(ctx context.Context, id string) (*property.Property, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get property %s: %w", id, domain.ErrNotFound)
	}
	p, err := scanProperty(s.pool.QueryRow(ctx,
		`SELECT `+propertyColumns+` FROM properties WHERE id = $1 AND workspace_id = $2`,
		id, workspaceFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get property %s", id)
	}
	return &p, nil
}

func (s *Store) CreateProperty(ctx context.Context, in *property.Property) (*property.Property, error) {
	p, err := scanProperty(s.pool.QueryRow(ctx,
		`INSERT INTO properties (workspace_id, name, address, city, kind, units, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+propertyColumns,
		workspaceFromCtx(ctx), in.Name, in.Address, in.City, in.Kind, in.Units, in.Notes))
	if err != nil {
		return nil, fmt.Errorf("create property: %w", err)
	}
	return &p, nil
}

func (s *Store) UpdateProperty(ctx context.Context, in *property.Property) (*property.Property, error) {
	if !validID(in.ID) {
		return nil, fmt.Errorf("update property %s: %w", in.ID, domain.ErrNotFound)
	}
	p, err := scanProperty(s.pool.QueryRow(ctx,
		`UPDATE properties
		 SET name = $3, address = $4, city = $5, kind = $6, units = $7, notes = $8, updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING `+propertyColumns,
		in.ID, workspaceFromCtx(ctx), in.Name, in.Address, in.City, in.Kind, in.Units, in.Notes))
	if err != nil {
		return nil, notFoundWrap(err, "update property %s", in.ID)
	}
	return &p, nil
}

func (s *Store) DeleteProperty(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("delete property %s: %w", id, domain.ErrNotFound)
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM properties WHERE id = $1 AND workspace_id = $2`, id, workspaceFromCtx(ctx))
	if pgCode(err) == pgForeignKeyViolation {
		return fmt.Errorf("delete property %s: tenants still reference it: %w", id, domain.ErrConflict)
	}
	return execExpectOne(tag, err, "delete property %s", id)
}
