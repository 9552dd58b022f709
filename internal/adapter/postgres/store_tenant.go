package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/tenant"
)

const tenantColumns = `id, workspace_id, property_id, name, email, phone, unit, monthly_rent,
	lease_start, lease_end, lease_status, notes, created_at, updated_at`

func scanTenant(row scannable) (tenant.Tenant, error) {
	var t tenant.Tenant
	var propertyID *string
	err := row.Scan(&t.ID, &t.WorkspaceID, &propertyID, &t.Name, &t.Email, &t.Phone, &t.Unit, &t.MonthlyRent,
		&t.LeaseStart, &t.LeaseEnd, &t.LeaseStatus, &t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	t.PropertyID = derefString(propertyID)
	t.LeaseStart = utcDate(t.LeaseStart)
	if t.LeaseEnd != nil {
		end := utcDate(*t.LeaseEnd)
		t.LeaseEnd = &end
	}
	return t, nil
}

// propertyCheck rejects a property id that does not belong to the workspace.
func (s *Store) propertyCheck(ctx context.Context, propertyID string) error {
	if propertyID == "" {
		return nil
	}
	if !validID(propertyID) {
		return domain.Validationf("property %s does not exist", propertyID)
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM properties WHERE id = $1 AND workspace_id = $2)`,
		propertyID, workspaceFromCtx(ctx)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check property %s: %w", propertyID, err)
	}
	if !exists {
		return domain.Validationf("property %s does not exist", propertyID)
	}
	return nil
}

func (s *Store) ListTenants(ctx context.Context, filter tenant.ListFilter) ([]tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE workspace_id = $1`
	args := []any{workspaceFromCtx(ctx)}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.LeaseStatus != "" {
		query += ` AND lease_status = ` + arg(string(filter.LeaseStatus))
	}
	if filter.PropertyID != "" {
		if !validID(filter.PropertyID) {
			return []tenant.Tenant{}, nil
		}
		query += ` AND property_id = ` + arg(filter.PropertyID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		p := arg("%" + escapeLike(q) + "%")
		query += ` AND (name ILIKE ` + p + ` OR email ILIKE ` + p + ` OR unit ILIKE ` + p + `)`
	}
	query += ` ORDER BY name, created_at`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []tenant.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get tenant %s: %w", id, domain.ErrNotFound)
	}
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1 AND workspace_id = $2`,
		id, workspaceFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %s", id)
	}
	return &t, nil
}

func (s *Store) CreateTenant(ctx context.Context, in *tenant.Tenant) (*tenant.Tenant, error) {
	if err := s.propertyCheck(ctx, in.PropertyID); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`INSERT INTO tenants (workspace_id, property_id, name, email, phone, unit, monthly_rent,
		                      lease_start, lease_end, lease_status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+tenantColumns,
		workspaceFromCtx(ctx), nullIfEmpty(in.PropertyID), in.Name, in.Email, in.Phone, in.Unit, in.MonthlyRent,
		in.LeaseStart, in.LeaseEnd, in.LeaseStatus, in.Notes))
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return &t, nil
}

func (s *Store) UpdateTenant(ctx context.Context, in *tenant.Tenant) (*tenant.Tenant, error) {
	if !validID(in.ID) {
		return nil, fmt.Errorf("update tenant %s: %w", in.ID, domain.ErrNotFound)
	}
	if err := s.propertyCheck(ctx, in.PropertyID); err != nil {
		return nil, fmt.Errorf("update tenant %s: %w", in.ID, err)
	}
	t, err := scanTenant(s.pool.QueryRow(ctx,
		`UPDATE tenants
		 SET property_id = $3, name = $4, email = $5, phone = $6, unit = $7, monthly_rent = $8,
		     lease_start = $9, lease_end = $10, lease_status = $11, notes = $12, updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING `+tenantColumns,
		in.ID, workspaceFromCtx(ctx), nullIfEmpty(in.PropertyID), in.Name, in.Email, in.Phone, in.Unit, in.MonthlyRent,
		in.LeaseStart, in.LeaseEnd, in.LeaseStatus, in.Notes))
	if err != nil {
		return nil, notFoundWrap(err, "update tenant %s", in.ID)
	}
	return &t, nil
}

// DeleteTenant removes the tenant; its payments go with it (ON DELETE CASCADE).
func (s *Store) DeleteTenant(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("delete tenant %s: %w", id, domain.ErrNotFound)
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tenants WHERE id = $1 AND workspace_id = $2`, id, workspaceFromCtx(ctx))
	return execExpectOne(tag, err, "delete tenant %s", id)
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
