package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Strob0t/rentledger/internal/domain"
	"github.com/Strob0t/rentledger/internal/domain/payment"
)

const paymentColumns = `id, workspace_id, tenant_id, amount, payment_date, method, reference, notes, created_at, updated_at`

func scanPayment(row scannable) (payment.Payment, error) {
	var p payment.Payment
	err := row.Scan(&p.ID, &p.WorkspaceID, &p.TenantID, &p.Amount, &p.PaymentDate, &p.Method, &p.Reference, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err == nil {
		p.PaymentDate = utcDate(p.PaymentDate)
	}
	return p, err
}

func (s *Store) queryPayments(ctx context.Context, query string, args ...any) ([]payment.Payment, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []payment.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (s *Store) ListPayments(ctx context.Context, filter payment.ListFilter) ([]payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE workspace_id = $1`
	args := []any{workspaceFromCtx(ctx)}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.TenantID != "" {
		if !validID(filter.TenantID) {
			return []payment.Payment{}, nil
		}
		query += ` AND tenant_id = ` + arg(filter.TenantID)
	}
	if filter.Method != "" {
		query += ` AND method = ` + arg(string(filter.Method))
	}
	if filter.From != nil {
		query += ` AND payment_date >= ` + arg(*filter.From)
	}
	if filter.To != nil {
		query += ` AND payment_date <= ` + arg(*filter.To)
	}
	query += ` ORDER BY payment_date DESC, created_at DESC`

	payments, err := s.queryPayments(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

func (s *Store) ListPaymentsByTenant(ctx context.Context, tenantID string) ([]payment.Payment, error) {
	return s.ListPayments(ctx, payment.ListFilter{TenantID: tenantID})
}

func (s *Store) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get payment %s: %w", id, domain.ErrNotFound)
	}
	p, err := scanPayment(s.pool.QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1 AND workspace_id = $2`,
		id, workspaceFromCtx(ctx)))
	if err != nil {
		return nil, notFoundWrap(err, "get payment %s", id)
	}
	return &p, nil
}

// CreatePayment inserts the payment only if its tenant exists in the
// workspace, in a single statement.
func (s *Store) CreatePayment(ctx context.Context, in *payment.Payment) (*payment.Payment, error) {
	if !validID(in.TenantID) {
		return nil, fmt.Errorf("create payment: %w", domain.Validationf("tenant %s does not exist", in.TenantID))
	}
	p, err := scanPayment(s.pool.QueryRow(ctx,
		`INSERT INTO payments (workspace_id, tenant_id, amount, payment_date, method, reference, notes)
		 SELECT t.workspace_id, t.id, $3, $4, $5, $6, $7
		 FROM tenants t WHERE t.id = $2 AND t.workspace_id = $1
		 RETURNING `+paymentColumns,
		workspaceFromCtx(ctx), in.TenantID, in.Amount, in.PaymentDate, in.Method, in.Reference, in.Notes))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("create payment: %w", domain.Validationf("tenant %s does not exist", in.TenantID))
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, in *payment.Payment) (*payment.Payment, error) {
	if !validID(in.ID) {
		return nil, fmt.Errorf("update payment %s: %w", in.ID, domain.ErrNotFound)
	}
	if !validID(in.TenantID) {
		return nil, fmt.Errorf("update payment %s: %w", in.ID, domain.Validationf("tenant %s does not exist", in.TenantID))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("update payment %s: begin: %w", in.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ws := workspaceFromCtx(ctx)
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenants WHERE id = $1 AND workspace_id = $2 FOR SHARE)`,
		in.TenantID, ws).Scan(&exists); err != nil {
		return nil, fmt.Errorf("update payment %s: check tenant: %w", in.ID, err)
	}
	if !exists {
		return nil, fmt.Errorf("update payment %s: %w", in.ID, domain.Validationf("tenant %s does not exist", in.TenantID))
	}

	p, err := scanPayment(tx.QueryRow(ctx,
		`UPDATE payments
		 SET tenant_id = $3, amount = $4, payment_date = $5, method = $6, reference = $7, notes = $8, updated_at = now()
		 WHERE id = $1 AND workspace_id = $2
		 RETURNING `+paymentColumns,
		in.ID, ws, in.TenantID, in.Amount, in.PaymentDate, in.Method, in.Reference, in.Notes))
	if err != nil {
		return nil, notFoundWrap(err, "update payment %s", in.ID)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("update payment %s: commit: %w", in.ID, err)
	}
	return &p, nil
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("delete payment %s: %w", id, domain.ErrNotFound)
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM payments WHERE id = $1 AND workspace_id = $2`, id, workspaceFromCtx(ctx))
	return execExpectOne(tag, err, "delete payment %s", id)
}
