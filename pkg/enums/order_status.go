package enums

import "fmt"

// OrderStatus tracks the fulfillment lifecycle of a reading order.
type OrderStatus string

const (
	OrderStatusNew              OrderStatus = "new"
	OrderStatusAssigned         OrderStatus = "assigned"
	OrderStatusAwaitingApproval OrderStatus = "awaiting_approval"
	OrderStatusApproved         OrderStatus = "approved"
	OrderStatusRejected         OrderStatus = "rejected"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusNew,
	OrderStatusAssigned,
	OrderStatusAwaitingApproval,
	OrderStatusApproved,
	OrderStatusRejected,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from this status.
func (o OrderStatus) IsTerminal() bool {
	return o == OrderStatusDelivered || o == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
