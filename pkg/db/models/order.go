package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
)

// Order is the central fulfillment entity for a booked reading.
//
// Status, assigned_reader_id, output_media_ref and rejection_reason are owned
// exclusively by the orders transition service; nothing else writes them.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ServiceCode      enums.ServiceCode `gorm:"column:service_code;type:text;not null"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null;default:'new'"`
	ClientID         uuid.UUID         `gorm:"column:client_id;type:uuid;not null"`
	AssignedReaderID *uuid.UUID        `gorm:"column:assigned_reader_id;type:uuid"`
	QuestionText     string            `gorm:"column:question_text;type:text;not null"`
	InputMediaRef    *string           `gorm:"column:input_media_ref;type:text"`
	OutputMediaRef   *string           `gorm:"column:output_media_ref;type:text"`
	IsPriority       bool              `gorm:"column:is_priority;not null;default:false"`
	RejectionReason  *string           `gorm:"column:rejection_reason;type:text"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
