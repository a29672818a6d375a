package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
)

// CreateOrderInput captures the fields a client supplies when booking.
type CreateOrderInput struct {
	ClientID      uuid.UUID
	ServiceCode   enums.ServiceCode
	QuestionText  string
	InputMediaRef *string
	IsPriority    bool
}

// TransitionInput carries one guarded action request against an order.
type TransitionInput struct {
	OrderID uuid.UUID
	Action  enums.OrderAction
	Actor   Actor
	Payload TransitionPayload
}

// ListFilters describe the optional inputs supported by the orders list.
type ListFilters struct {
	Status      *enums.OrderStatus
	ServiceCode *enums.ServiceCode
}

// OrderSummary exposes the fields returned in list responses.
type OrderSummary struct {
	ID               uuid.UUID         `json:"id"`
	ServiceCode      enums.ServiceCode `json:"service_code"`
	Status           enums.OrderStatus `json:"status"`
	ClientID         uuid.UUID         `json:"client_id"`
	AssignedReaderID *uuid.UUID        `json:"assigned_reader_id,omitempty"`
	IsPriority       bool              `json:"is_priority"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
