package messagequeue

import (
	"encoding/json"
	"fmt"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var workspace, tenant string
	switch subject {
	case SubjectPaymentRecorded, SubjectPaymentUpdated, SubjectPaymentDeleted:
		var p PaymentEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.PaymentID == "" {
			return fmt.Errorf("schema validation failed for %s: payment_id is required", subject)
		}
		workspace, tenant = p.WorkspaceID, p.TenantID
	case SubjectTenantChanged:
		var p TenantChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		workspace, tenant = p.WorkspaceID, p.TenantID
	case SubjectLedgerInvalidated:
		var p LedgerInvalidatedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		workspace, tenant = p.WorkspaceID, p.TenantID
	default:
		return nil
	}

	if workspace == "" || tenant == "" {
		return fmt.Errorf("schema validation failed for %s: workspace_id and tenant_id are required", subject)
	}
	return nil
}
