package enums

import "fmt"

// AuditAction names the audit log entry written for an accepted order mutation.
type AuditAction string

const (
	AuditActionOrderCreate       AuditAction = "order_create"
	AuditActionOrderAssign       AuditAction = "order_assign"
	AuditActionOrderResultUpload AuditAction = "order_result_upload"
	AuditActionOrderApprove      AuditAction = "order_approve"
	AuditActionOrderReject       AuditAction = "order_reject"
	AuditActionOrderDeliver      AuditAction = "order_deliver"
	AuditActionOrderCancel       AuditAction = "order_cancel"
)

var validAuditActions = []AuditAction{
	AuditActionOrderCreate,
	AuditActionOrderAssign,
	AuditActionOrderResultUpload,
	AuditActionOrderApprove,
	AuditActionOrderReject,
	AuditActionOrderDeliver,
	AuditActionOrderCancel,
}

// String implements fmt.Stringer.
func (a AuditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuditAction.
func (a AuditAction) IsValid() bool {
	for _, candidate := range validAuditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAuditAction converts raw input into an AuditAction.
func ParseAuditAction(value string) (AuditAction, error) {
	for _, candidate := range validAuditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid audit action %q", value)
}
