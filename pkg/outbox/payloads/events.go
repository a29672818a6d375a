package payloads

import (
	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
)

// OrderCreated is emitted when a client books a new order.
type OrderCreated struct {
	OrderID     uuid.UUID         `json:"order_id"`
	ClientID    uuid.UUID         `json:"client_id"`
	ServiceCode enums.ServiceCode `json:"service_code"`
	IsPriority  bool              `json:"is_priority"`
}

// OrderStatusChanged is emitted on every accepted transition so the
// notification subsystem can fan out "order reached state X" messages.
type OrderStatusChanged struct {
	OrderID          uuid.UUID         `json:"order_id"`
	ClientID         uuid.UUID         `json:"client_id"`
	AssignedReaderID *uuid.UUID        `json:"assigned_reader_id,omitempty"`
	Action           enums.OrderAction `json:"action"`
	OldStatus        enums.OrderStatus `json:"old_status"`
	NewStatus        enums.OrderStatus `json:"new_status"`
}
