package orders

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	pkgerrors "github.com/samia-tarot/samia-tarot-backend/pkg/errors"
)

// relationship expresses what the caller must be to the order beyond role
// membership.
type relationship int

const (
	relationshipNone relationship = iota
	// relationshipAssignedReader requires the caller to be the order's
	// assigned reader.
	relationshipAssignedReader
	// relationshipOwningClient requires client-role callers to own the
	// order; staff roles in the same rule pass without it.
	relationshipOwningClient
)

type transitionKey struct {
	From   enums.OrderStatus
	Action enums.OrderAction
}

type transitionRule struct {
	To           enums.OrderStatus
	Roles        []enums.ActorRole
	Relationship relationship
}

// transitionTable is the single authoritative rule set for order lifecycle
// changes. Route handlers and repo visibility filters both derive from it;
// they must never encode their own copy of these rules.
var transitionTable = map[transitionKey]transitionRule{
	{enums.OrderStatusNew, enums.OrderActionAssign}: {
		To:    enums.OrderStatusAssigned,
		Roles: []enums.ActorRole{enums.ActorRoleAdmin, enums.ActorRoleSuperadmin},
	},
	{enums.OrderStatusAssigned, enums.OrderActionSubmitOutput}: {
		To:           enums.OrderStatusAwaitingApproval,
		Roles:        []enums.ActorRole{enums.ActorRoleReader},
		Relationship: relationshipAssignedReader,
	},
	{enums.OrderStatusAwaitingApproval, enums.OrderActionApprove}: {
		To:    enums.OrderStatusApproved,
		Roles: []enums.ActorRole{enums.ActorRoleMonitor, enums.ActorRoleAdmin, enums.ActorRoleSuperadmin},
	},
	{enums.OrderStatusAwaitingApproval, enums.OrderActionReject}: {
		To:    enums.OrderStatusRejected,
		Roles: []enums.ActorRole{enums.ActorRoleMonitor, enums.ActorRoleAdmin, enums.ActorRoleSuperadmin},
	},
	{enums.OrderStatusRejected, enums.OrderActionSubmitOutput}: {
		To:           enums.OrderStatusAwaitingApproval,
		Roles:        []enums.ActorRole{enums.ActorRoleReader},
		Relationship: relationshipAssignedReader,
	},
	{enums.OrderStatusApproved, enums.OrderActionDeliver}: {
		To:    enums.OrderStatusDelivered,
		Roles: []enums.ActorRole{enums.ActorRoleAdmin, enums.ActorRoleSuperadmin},
	},
	{enums.OrderStatusNew, enums.OrderActionCancel}: {
		To:           enums.OrderStatusCancelled,
		Roles:        []enums.ActorRole{enums.ActorRoleClient, enums.ActorRoleAdmin, enums.ActorRoleSuperadmin},
		Relationship: relationshipOwningClient,
	},
	{enums.OrderStatusAssigned, enums.OrderActionCancel}: {
		To:           enums.OrderStatusCancelled,
		Roles:        []enums.ActorRole{enums.ActorRoleClient, enums.ActorRoleAdmin, enums.ActorRoleSuperadmin},
		Relationship: relationshipOwningClient,
	},
}

// Actor identifies the caller evaluated by the guard.
type Actor struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

// TransitionPayload carries the action-specific inputs validated by the
// guard after role and relationship checks pass.
type TransitionPayload struct {
	ReaderID       *uuid.UUID
	OutputMediaRef *string
	Reason         *string
}

// EvaluateTransition decides whether the actor may apply the action to the
// order in its current status. Checks run in a fixed order: transition
// legality, then role, then relationship, then payload requirements. On
// success it returns the target status; the caller applies the mutation.
func EvaluateTransition(order *models.Order, action enums.OrderAction, actor Actor, payload TransitionPayload) (enums.OrderStatus, error) {
	rule, ok := transitionTable[transitionKey{From: order.Status, Action: action}]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("action %s is not legal from status %s", action, order.Status))
	}

	if !roleAllowed(rule.Roles, actor.Role) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("role %s may not %s", actor.Role, action))
	}

	switch rule.Relationship {
	case relationshipAssignedReader:
		if order.AssignedReaderID == nil || *order.AssignedReaderID != actor.ID {
			return "", pkgerrors.New(pkgerrors.CodeForbidden, "caller is not the assigned reader")
		}
	case relationshipOwningClient:
		if actor.Role == enums.ActorRoleClient && order.ClientID != actor.ID {
			return "", pkgerrors.New(pkgerrors.CodeForbidden, "caller does not own this order")
		}
	}

	if err := validatePayload(action, payload); err != nil {
		return "", err
	}

	return rule.To, nil
}

func validatePayload(action enums.OrderAction, payload TransitionPayload) error {
	switch action {
	case enums.OrderActionAssign:
		if payload.ReaderID == nil || *payload.ReaderID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "reader_id is required to assign")
		}
	case enums.OrderActionSubmitOutput:
		if payload.OutputMediaRef == nil || strings.TrimSpace(*payload.OutputMediaRef) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "output_media_ref is required to submit output")
		}
	case enums.OrderActionReject:
		if payload.Reason == nil || strings.TrimSpace(*payload.Reason) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "reason is required to reject")
		}
	}
	return nil
}

func roleAllowed(roles []enums.ActorRole, role enums.ActorRole) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}

// CanSee reports whether the actor may observe the order at all. Orders
// outside the actor's visibility behave as if they do not exist.
func CanSee(order *models.Order, actor Actor) bool {
	if actor.Role.IsStaff() {
		return true
	}
	switch actor.Role {
	case enums.ActorRoleClient:
		return order.ClientID == actor.ID
	case enums.ActorRoleReader:
		return order.AssignedReaderID != nil && *order.AssignedReaderID == actor.ID
	}
	return false
}

// auditActionFor maps a transition action onto its audit trail action name.
func auditActionFor(action enums.OrderAction) enums.AuditAction {
	switch action {
	case enums.OrderActionAssign:
		return enums.AuditActionOrderAssign
	case enums.OrderActionSubmitOutput:
		return enums.AuditActionOrderResultUpload
	case enums.OrderActionApprove:
		return enums.AuditActionOrderApprove
	case enums.OrderActionReject:
		return enums.AuditActionOrderReject
	case enums.OrderActionDeliver:
		return enums.AuditActionOrderDeliver
	case enums.OrderActionCancel:
		return enums.AuditActionOrderCancel
	}
	return ""
}
