package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
)

// Repository defines persistence operations for the audit trail tables.
// Both tables are insert-only; there are no update or delete operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error
	CreateModerationAction(ctx context.Context, action *models.ModerationAction) error
	ListEntriesByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditLogEntry, error)
	ListModerationActionsByTarget(ctx context.Context, targetKind string, targetID uuid.UUID) ([]models.ModerationAction, error)
}
