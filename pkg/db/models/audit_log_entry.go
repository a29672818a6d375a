package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
)

// AuditLogEntry records one accepted order mutation. Rows are insert-only and
// written in the same transaction as the mutation they describe.
type AuditLogEntry struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	EntityType string             `gorm:"column:entity_type;type:text;not null;default:'order'"`
	EntityID   uuid.UUID          `gorm:"column:entity_id;type:uuid;not null"`
	ActorID    uuid.UUID          `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole  enums.ActorRole    `gorm:"column:actor_role;type:text;not null"`
	Action     enums.AuditAction  `gorm:"column:action;type:text;not null"`
	OldStatus  *enums.OrderStatus `gorm:"column:old_status;type:text"`
	NewStatus  enums.OrderStatus  `gorm:"column:new_status;type:text;not null"`
	Metadata   json.RawMessage    `gorm:"column:metadata;type:jsonb"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// TableName maps the model onto the audit_log table.
func (AuditLogEntry) TableName() string {
	return "audit_log"
}
