package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
)

// ModerationAction records an approve/reject decision on submitted output.
// Exactly one row exists per approve or reject transition; insert-only.
type ModerationAction struct {
	ID         uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorID    uuid.UUID                `gorm:"column:actor_id;type:uuid;not null"`
	ActorRole  enums.ActorRole          `gorm:"column:actor_role;type:text;not null"`
	TargetKind string                   `gorm:"column:target_kind;type:text;not null;default:'order'"`
	TargetID   uuid.UUID                `gorm:"column:target_id;type:uuid;not null"`
	Action     enums.ModerationDecision `gorm:"column:action;type:text;not null"`
	Reason     *string                  `gorm:"column:reason;type:text"`
	CreatedAt  time.Time                `gorm:"column:created_at;autoCreateTime"`
}
