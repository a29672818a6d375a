package orders

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	pkgerrors "github.com/samia-tarot/samia-tarot-backend/pkg/errors"
)

func strPtr(v string) *string {
	return &v
}

func orderInStatus(status enums.OrderStatus, clientID uuid.UUID, readerID *uuid.UUID) *models.Order {
	return &models.Order{
		ID:               uuid.New(),
		ServiceCode:      enums.ServiceCodeTarot,
		Status:           status,
		ClientID:         clientID,
		AssignedReaderID: readerID,
		QuestionText:     "what does the week hold",
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func TestEvaluateTransitionHappyPaths(t *testing.T) {
	clientID := uuid.New()
	readerID := uuid.New()

	cases := []struct {
		name    string
		order   *models.Order
		action  enums.OrderAction
		actor   Actor
		payload TransitionPayload
		want    enums.OrderStatus
	}{
		{
			name:    "admin assigns new order",
			order:   orderInStatus(enums.OrderStatusNew, clientID, nil),
			action:  enums.OrderActionAssign,
			actor:   Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin},
			payload: TransitionPayload{ReaderID: &readerID},
			want:    enums.OrderStatusAssigned,
		},
		{
			name:    "assigned reader submits output",
			order:   orderInStatus(enums.OrderStatusAssigned, clientID, &readerID),
			action:  enums.OrderActionSubmitOutput,
			actor:   Actor{ID: readerID, Role: enums.ActorRoleReader},
			payload: TransitionPayload{OutputMediaRef: strPtr("media/result.mp3")},
			want:    enums.OrderStatusAwaitingApproval,
		},
		{
			name:   "monitor approves",
			order:  orderInStatus(enums.OrderStatusAwaitingApproval, clientID, &readerID),
			action: enums.OrderActionApprove,
			actor:  Actor{ID: uuid.New(), Role: enums.ActorRoleMonitor},
			want:   enums.OrderStatusApproved,
		},
		{
			name:    "monitor rejects with reason",
			order:   orderInStatus(enums.OrderStatusAwaitingApproval, clientID, &readerID),
			action:  enums.OrderActionReject,
			actor:   Actor{ID: uuid.New(), Role: enums.ActorRoleMonitor},
			payload: TransitionPayload{Reason: strPtr("audio quality too low")},
			want:    enums.OrderStatusRejected,
		},
		{
			name:    "reader resubmits after rejection",
			order:   orderInStatus(enums.OrderStatusRejected, clientID, &readerID),
			action:  enums.OrderActionSubmitOutput,
			actor:   Actor{ID: readerID, Role: enums.ActorRoleReader},
			payload: TransitionPayload{OutputMediaRef: strPtr("media/result-v2.mp3")},
			want:    enums.OrderStatusAwaitingApproval,
		},
		{
			name:   "superadmin delivers approved order",
			order:  orderInStatus(enums.OrderStatusApproved, clientID, &readerID),
			action: enums.OrderActionDeliver,
			actor:  Actor{ID: uuid.New(), Role: enums.ActorRoleSuperadmin},
			want:   enums.OrderStatusDelivered,
		},
		{
			name:   "owning client cancels new order",
			order:  orderInStatus(enums.OrderStatusNew, clientID, nil),
			action: enums.OrderActionCancel,
			actor:  Actor{ID: clientID, Role: enums.ActorRoleClient},
			want:   enums.OrderStatusCancelled,
		},
		{
			name:   "admin cancels assigned order without ownership",
			order:  orderInStatus(enums.OrderStatusAssigned, clientID, &readerID),
			action: enums.OrderActionCancel,
			actor:  Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin},
			want:   enums.OrderStatusCancelled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateTransition(tc.order, tc.action, tc.actor, tc.payload)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateTransitionIllegalFromStatus(t *testing.T) {
	clientID := uuid.New()
	readerID := uuid.New()

	cases := []struct {
		name   string
		order  *models.Order
		action enums.OrderAction
		actor  Actor
	}{
		{
			name:   "assign on already assigned order",
			order:  orderInStatus(enums.OrderStatusAssigned, clientID, &readerID),
			action: enums.OrderActionAssign,
			actor:  Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin},
		},
		{
			name:   "approve before submission",
			order:  orderInStatus(enums.OrderStatusAssigned, clientID, &readerID),
			action: enums.OrderActionApprove,
			actor:  Actor{ID: uuid.New(), Role: enums.ActorRoleMonitor},
		},
		{
			name:   "cancel after output submitted",
			order:  orderInStatus(enums.OrderStatusAwaitingApproval, clientID, &readerID),
			action: enums.OrderActionCancel,
			actor:  Actor{ID: clientID, Role: enums.ActorRoleClient},
		},
		{
			name:   "deliver a delivered order",
			order:  orderInStatus(enums.OrderStatusDelivered, clientID, &readerID),
			action: enums.OrderActionDeliver,
			actor:  Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin},
		},
		{
			name:   "submit output on cancelled order",
			order:  orderInStatus(enums.OrderStatusCancelled, clientID, &readerID),
			action: enums.OrderActionSubmitOutput,
			actor:  Actor{ID: readerID, Role: enums.ActorRoleReader},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EvaluateTransition(tc.order, tc.action, tc.actor, TransitionPayload{
				ReaderID:       &readerID,
				OutputMediaRef: strPtr("media/result.mp3"),
				Reason:         strPtr("reason"),
			})
			requireCode(t, err, pkgerrors.CodeStateConflict)
		})
	}
}

func TestEvaluateTransitionRoleDenied(t *testing.T) {
	clientID := uuid.New()
	readerID := uuid.New()

	cases := []struct {
		name   string
		order  *models.Order
		action enums.OrderAction
		actor  Actor
	}{
		{
			name:   "monitor cannot assign",
			order:  orderInStatus(enums.OrderStatusNew, clientID, nil),
			action: enums.OrderActionAssign,
			actor:  Actor{ID: uuid.New(), Role: enums.ActorRoleMonitor},
		},
		{
			name:   "reader cannot approve",
			order:  orderInStatus(enums.OrderStatusAwaitingApproval, clientID, &readerID),
			action: enums.OrderActionApprove,
			actor:  Actor{ID: readerID, Role: enums.ActorRoleReader},
		},
		{
			name:   "client cannot deliver",
			order:  orderInStatus(enums.OrderStatusApproved, clientID, &readerID),
			action: enums.OrderActionDeliver,
			actor:  Actor{ID: clientID, Role: enums.ActorRoleClient},
		},
		{
			name:   "monitor cannot deliver",
			order:  orderInStatus(enums.OrderStatusApproved, clientID, &readerID),
			action: enums.OrderActionDeliver,
			actor:  Actor{ID: uuid.New(), Role: enums.ActorRoleMonitor},
		},
		{
			name:   "reader cannot cancel",
			order:  orderInStatus(enums.OrderStatusAssigned, clientID, &readerID),
			action: enums.OrderActionCancel,
			actor:  Actor{ID: readerID, Role: enums.ActorRoleReader},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EvaluateTransition(tc.order, tc.action, tc.actor, TransitionPayload{
				ReaderID:       &readerID,
				OutputMediaRef: strPtr("media/result.mp3"),
				Reason:         strPtr("reason"),
			})
			requireCode(t, err, pkgerrors.CodeForbidden)
		})
	}
}

func TestEvaluateTransitionRelationshipDenied(t *testing.T) {
	clientID := uuid.New()
	readerID := uuid.New()

	t.Run("different reader cannot submit", func(t *testing.T) {
		order := orderInStatus(enums.OrderStatusAssigned, clientID, &readerID)
		actor := Actor{ID: uuid.New(), Role: enums.ActorRoleReader}
		_, err := EvaluateTransition(order, enums.OrderActionSubmitOutput, actor, TransitionPayload{
			OutputMediaRef: strPtr("media/result.mp3"),
		})
		requireCode(t, err, pkgerrors.CodeForbidden)
	})

	t.Run("other client cannot cancel", func(t *testing.T) {
		order := orderInStatus(enums.OrderStatusNew, clientID, nil)
		actor := Actor{ID: uuid.New(), Role: enums.ActorRoleClient}
		_, err := EvaluateTransition(order, enums.OrderActionCancel, actor, TransitionPayload{})
		requireCode(t, err, pkgerrors.CodeForbidden)
	})
}

func TestEvaluateTransitionPayloadValidation(t *testing.T) {
	clientID := uuid.New()
	readerID := uuid.New()

	t.Run("assign without reader id", func(t *testing.T) {
		order := orderInStatus(enums.OrderStatusNew, clientID, nil)
		actor := Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}
		_, err := EvaluateTransition(order, enums.OrderActionAssign, actor, TransitionPayload{})
		requireCode(t, err, pkgerrors.CodeValidation)
	})

	t.Run("submit without output ref", func(t *testing.T) {
		order := orderInStatus(enums.OrderStatusAssigned, clientID, &readerID)
		actor := Actor{ID: readerID, Role: enums.ActorRoleReader}
		_, err := EvaluateTransition(order, enums.OrderActionSubmitOutput, actor, TransitionPayload{
			OutputMediaRef: strPtr("   "),
		})
		requireCode(t, err, pkgerrors.CodeValidation)
	})

	t.Run("reject without reason", func(t *testing.T) {
		order := orderInStatus(enums.OrderStatusAwaitingApproval, clientID, &readerID)
		actor := Actor{ID: uuid.New(), Role: enums.ActorRoleMonitor}
		_, err := EvaluateTransition(order, enums.OrderActionReject, actor, TransitionPayload{})
		requireCode(t, err, pkgerrors.CodeValidation)
	})
}

func TestLegalityCheckedBeforeRole(t *testing.T) {
	// A client poking a delivered order must learn the transition is stale,
	// not that their role is short.
	order := orderInStatus(enums.OrderStatusDelivered, uuid.New(), nil)
	actor := Actor{ID: uuid.New(), Role: enums.ActorRoleClient}
	_, err := EvaluateTransition(order, enums.OrderActionApprove, actor, TransitionPayload{})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCanSee(t *testing.T) {
	clientID := uuid.New()
	readerID := uuid.New()
	order := orderInStatus(enums.OrderStatusAssigned, clientID, &readerID)

	assert.True(t, CanSee(order, Actor{ID: clientID, Role: enums.ActorRoleClient}))
	assert.True(t, CanSee(order, Actor{ID: readerID, Role: enums.ActorRoleReader}))
	assert.True(t, CanSee(order, Actor{ID: uuid.New(), Role: enums.ActorRoleMonitor}))
	assert.True(t, CanSee(order, Actor{ID: uuid.New(), Role: enums.ActorRoleAdmin}))
	assert.True(t, CanSee(order, Actor{ID: uuid.New(), Role: enums.ActorRoleSuperadmin}))
	assert.False(t, CanSee(order, Actor{ID: uuid.New(), Role: enums.ActorRoleClient}))
	assert.False(t, CanSee(order, Actor{ID: uuid.New(), Role: enums.ActorRoleReader}))
}
