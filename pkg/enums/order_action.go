package enums

import "fmt"

// OrderAction names a guarded transition request against an order.
type OrderAction string

const (
	OrderActionAssign       OrderAction = "assign"
	OrderActionSubmitOutput OrderAction = "submit_output"
	OrderActionApprove      OrderAction = "approve"
	OrderActionReject       OrderAction = "reject"
	OrderActionDeliver      OrderAction = "deliver"
	OrderActionCancel       OrderAction = "cancel"
)

var validOrderActions = []OrderAction{
	OrderActionAssign,
	OrderActionSubmitOutput,
	OrderActionApprove,
	OrderActionReject,
	OrderActionDeliver,
	OrderActionCancel,
}

// String implements fmt.Stringer.
func (o OrderAction) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderAction.
func (o OrderAction) IsValid() bool {
	for _, candidate := range validOrderActions {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderAction converts raw input into an OrderAction.
func ParseOrderAction(value string) (OrderAction, error) {
	for _, candidate := range validOrderActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order action %q", value)
}
