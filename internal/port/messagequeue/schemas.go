package messagequeue

// PaymentEventPayload is the schema for payments.recorded, payments.updated
// and payments.deleted messages.
type PaymentEventPayload struct {
	WorkspaceID string `json:"workspace_id"`
	PaymentID   string `json:"payment_id"`
	TenantID    string `json:"tenant_id"`
	// PreviousTenantID is set on updates that moved the payment to another tenant.
	PreviousTenantID string `json:"previous_tenant_id,omitempty"`
	Amount           string `json:"amount"`
	PaymentDate      string `json:"payment_date"`
	Method           string `json:"method"`
}

// TenantChangedPayload is the schema for tenants.changed messages.
type TenantChangedPayload struct {
	WorkspaceID string `json:"workspace_id"`
	TenantID    string `json:"tenant_id"`
	Action      string `json:"action"` // created, updated, deleted
}

// LedgerInvalidatedPayload is the schema for ledger.invalidated messages.
type LedgerInvalidatedPayload struct {
	WorkspaceID string `json:"workspace_id"`
	TenantID    string `json:"tenant_id"`
	// Origin identifies the publishing replica so it can skip its own messages.
	Origin string `json:"origin"`
}
