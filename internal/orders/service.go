package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/samia-tarot/samia-tarot-backend/internal/audit"
	"github.com/samia-tarot/samia-tarot-backend/pkg/db"
	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	pkgerrors "github.com/samia-tarot/samia-tarot-backend/pkg/errors"
	"github.com/samia-tarot/samia-tarot-backend/pkg/metrics"
	"github.com/samia-tarot/samia-tarot-backend/pkg/outbox"
	"github.com/samia-tarot/samia-tarot-backend/pkg/outbox/payloads"
	"github.com/samia-tarot/samia-tarot-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

// Service owns every mutation of the orders table. All status changes flow
// through Transition; nothing else writes status, assigned_reader_id,
// output_media_ref or rejection_reason.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*OrderList, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	recorder auditRecorder
	metrics  *metrics.TransitionMetrics
}

// NewService builds an orders service with the required dependencies.
// Metrics may be nil; the other dependencies are mandatory.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, recorder auditRecorder, transitionMetrics *metrics.TransitionMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		recorder: recorder,
		metrics:  transitionMetrics,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.ServiceCode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown service code")
	}
	if strings.TrimSpace(input.QuestionText) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "question text required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order := &models.Order{
			ServiceCode:   input.ServiceCode,
			Status:        enums.OrderStatusNew,
			ClientID:      input.ClientID,
			QuestionText:  input.QuestionText,
			InputMediaRef: input.InputMediaRef,
			IsPriority:    input.IsPriority,
		}
		order, err := repo.CreateOrder(ctx, order)
		if err != nil {
			if db.IsUniqueViolation(err, "orders_pkey") {
				return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "order id already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		entry := audit.Entry{
			OrderID:   order.ID,
			ActorID:   input.ClientID,
			ActorRole: enums.ActorRoleClient,
			Action:    enums.AuditActionOrderCreate,
			NewStatus: enums.OrderStatusNew,
			Metadata: map[string]any{
				"service_code": order.ServiceCode,
				"is_priority":  order.IsPriority,
			},
		}
		if err := s.recorder.Record(ctx, tx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.ClientID, Role: enums.ActorRoleClient},
			Data: payloads.OrderCreated{
				OrderID:     order.ID,
				ClientID:    order.ClientID,
				ServiceCode: order.ServiceCode,
				IsPriority:  order.IsPriority,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order action")
	}

	start := time.Now()
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		oldStatus := order.Status
		toStatus, err := EvaluateTransition(order, input.Action, input.Actor, input.Payload)
		if err != nil {
			return err
		}

		updates := mutationsFor(input.Action, input.Payload, toStatus)
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		entry := audit.Entry{
			OrderID:    order.ID,
			ActorID:    input.Actor.ID,
			ActorRole:  input.Actor.Role,
			Action:     auditActionFor(input.Action),
			OldStatus:  &oldStatus,
			NewStatus:  toStatus,
			Metadata:   auditMetadataFor(input.Action, input.Payload),
			Moderation: moderationFor(input.Action, input.Payload),
		}
		if err := s.recorder.Record(ctx, tx, entry); err != nil {
			return err
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: input.Actor.ID, Role: input.Actor.Role},
			Data: payloads.OrderStatusChanged{
				OrderID:          order.ID,
				ClientID:         order.ClientID,
				AssignedReaderID: assignedReaderAfter(order, input.Action, input.Payload),
				Action:           input.Action,
				OldStatus:        oldStatus,
				NewStatus:        toStatus,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return err
		}

		applyToModel(order, updates)
		updated = order
		return nil
	})

	s.observeTransition(input.Action, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	// Invisible orders are indistinguishable from missing ones.
	if !CanSee(order, actor) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*OrderList, error) {
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	list, err := s.repo.ListVisibleOrders(ctx, actor, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) observeTransition(action enums.OrderAction, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(action.String(), elapsed)
	if err == nil {
		s.metrics.IncAccepted(action.String())
		return
	}
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.metrics.IncDenied(action.String(), code)
}

// mutationsFor computes the column updates an accepted transition applies.
func mutationsFor(action enums.OrderAction, payload TransitionPayload, toStatus enums.OrderStatus) map[string]any {
	updates := map[string]any{"status": toStatus}
	switch action {
	case enums.OrderActionAssign:
		updates["assigned_reader_id"] = *payload.ReaderID
	case enums.OrderActionSubmitOutput:
		updates["output_media_ref"] = *payload.OutputMediaRef
	case enums.OrderActionReject:
		updates["rejection_reason"] = *payload.Reason
	}
	return updates
}

func applyToModel(order *models.Order, updates map[string]any) {
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		order.Status = status
	}
	if readerID, ok := updates["assigned_reader_id"].(uuid.UUID); ok {
		order.AssignedReaderID = &readerID
	}
	if ref, ok := updates["output_media_ref"].(string); ok {
		order.OutputMediaRef = &ref
	}
	if reason, ok := updates["rejection_reason"].(string); ok {
		order.RejectionReason = &reason
	}
}

func auditMetadataFor(action enums.OrderAction, payload TransitionPayload) map[string]any {
	switch action {
	case enums.OrderActionAssign:
		return map[string]any{"reader_id": payload.ReaderID}
	case enums.OrderActionSubmitOutput:
		return map[string]any{"output_media_ref": payload.OutputMediaRef}
	case enums.OrderActionReject:
		return map[string]any{"reason": payload.Reason}
	}
	return nil
}

func moderationFor(action enums.OrderAction, payload TransitionPayload) *audit.ModerationRecord {
	switch action {
	case enums.OrderActionApprove:
		return &audit.ModerationRecord{Decision: enums.ModerationDecisionApprove, Reason: payload.Reason}
	case enums.OrderActionReject:
		return &audit.ModerationRecord{Decision: enums.ModerationDecisionReject, Reason: payload.Reason}
	}
	return nil
}

func assignedReaderAfter(order *models.Order, action enums.OrderAction, payload TransitionPayload) *uuid.UUID {
	if action == enums.OrderActionAssign {
		return payload.ReaderID
	}
	return order.AssignedReaderID
}
