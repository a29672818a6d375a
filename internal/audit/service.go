package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	pkgerrors "github.com/samia-tarot/samia-tarot-backend/pkg/errors"
)

// EntityTypeOrder is the only audited entity type today.
const EntityTypeOrder = "order"

// ModerationRecord captures the moderation row written alongside an
// approve or reject audit entry.
type ModerationRecord struct {
	Decision enums.ModerationDecision
	Reason   *string
}

// Entry describes one accepted order mutation to record.
type Entry struct {
	OrderID    uuid.UUID
	ActorID    uuid.UUID
	ActorRole  enums.ActorRole
	Action     enums.AuditAction
	OldStatus  *enums.OrderStatus
	NewStatus  enums.OrderStatus
	Metadata   map[string]any
	Moderation *ModerationRecord
}

// Service writes the immutable audit trail. Record must run inside the same
// transaction as the order mutation it describes; a failed write rolls the
// whole transaction back.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.AuditLogEntry, error)
	ListModerationForOrder(ctx context.Context, orderID uuid.UUID) ([]models.ModerationAction, error)
}

type service struct {
	repo Repository
}

// NewService builds the audit recorder with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "audit record requires a transaction")
	}
	if entry.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "audit record requires an order id")
	}
	if entry.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "audit record requires an actor id")
	}
	if !entry.Action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInternal, "audit record requires a known action")
	}

	var metadata json.RawMessage
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal audit metadata")
		}
		metadata = raw
	}

	repo := s.repo.WithTx(tx)

	record := models.AuditLogEntry{
		EntityType: EntityTypeOrder,
		EntityID:   entry.OrderID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		OldStatus:  entry.OldStatus,
		NewStatus:  entry.NewStatus,
		Metadata:   metadata,
	}
	if err := repo.CreateAuditEntry(ctx, &record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write audit entry")
	}

	if entry.Moderation == nil {
		return nil
	}

	moderation := models.ModerationAction{
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		TargetKind: EntityTypeOrder,
		TargetID:   entry.OrderID,
		Action:     entry.Moderation.Decision,
		Reason:     entry.Moderation.Reason,
	}
	if err := repo.CreateModerationAction(ctx, &moderation); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write moderation action")
	}
	return nil
}

func (s *service) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.AuditLogEntry, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	entries, err := s.repo.ListEntriesByEntity(ctx, EntityTypeOrder, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit entries")
	}
	return entries, nil
}

func (s *service) ListModerationForOrder(ctx context.Context, orderID uuid.UUID) ([]models.ModerationAction, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	actions, err := s.repo.ListModerationActionsByTarget(ctx, EntityTypeOrder, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list moderation actions")
	}
	return actions, nil
}
