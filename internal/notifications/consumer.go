package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	"github.com/samia-tarot/samia-tarot-backend/pkg/logger"
	"github.com/samia-tarot/samia-tarot-backend/pkg/outbox"
	"github.com/samia-tarot/samia-tarot-backend/pkg/outbox/idempotency"
	"github.com/samia-tarot/samia-tarot-backend/pkg/outbox/payloads"
)

const orderNotificationConsumer = "order-notifications"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches order events and turns status transitions into in-app
// notifications for the affected client and reader.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds an order notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != string(enums.EventOrderStatusChanged) {
		c.logg.Info(logCtx, "skipping non-transition event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderNotificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.OrderStatusChanged
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"order_id":   payload.OrderID.String(),
		"new_status": payload.NewStatus,
	})

	if err := c.handlePayload(ctx, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, orderNotificationConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handlePayload(ctx context.Context, payload payloads.OrderStatusChanged, logCtx context.Context) error {
	switch payload.NewStatus {
	case enums.OrderStatusAssigned:
		return c.notifyReader(ctx, payload, "New order assigned",
			fmt.Sprintf("Order %s has been assigned to you.", payload.OrderID), logCtx)
	case enums.OrderStatusRejected:
		return c.notifyReader(ctx, payload, "Output needs rework",
			fmt.Sprintf("The submitted output for order %s was rejected. Please revise and resubmit.", payload.OrderID), logCtx)
	case enums.OrderStatusDelivered:
		return c.notifyClient(ctx, payload, "Your reading is ready",
			fmt.Sprintf("Order %s has been delivered. Open the app to view your reading.", payload.OrderID), logCtx)
	case enums.OrderStatusCancelled:
		return c.notifyClient(ctx, payload, "Order cancelled",
			fmt.Sprintf("Order %s has been cancelled.", payload.OrderID), logCtx)
	default:
		c.logg.Info(logCtx, "status not handled")
		return nil
	}
}

func (c *Consumer) notifyClient(ctx context.Context, payload payloads.OrderStatusChanged, title, message string, logCtx context.Context) error {
	if payload.ClientID == uuid.Nil {
		return fmt.Errorf("client id missing")
	}
	orderID := payload.OrderID
	notification := &models.Notification{
		UserID:  payload.ClientID,
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   title,
		Message: message,
		OrderID: &orderID,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "client notified of order change")
	return nil
}

func (c *Consumer) notifyReader(ctx context.Context, payload payloads.OrderStatusChanged, title, message string, logCtx context.Context) error {
	if payload.AssignedReaderID == nil || *payload.AssignedReaderID == uuid.Nil {
		return fmt.Errorf("assigned reader id missing")
	}
	orderID := payload.OrderID
	notification := &models.Notification{
		UserID:  *payload.AssignedReaderID,
		Type:    enums.NotificationTypeOrderUpdate,
		Title:   title,
		Message: message,
		OrderID: &orderID,
	}
	if err := c.repo.Create(ctx, notification); err != nil {
		return err
	}
	c.logg.Info(logCtx, "reader notified of order change")
	return nil
}
