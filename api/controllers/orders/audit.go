package orders

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/api/responses"
	"github.com/samia-tarot/samia-tarot-backend/internal/audit"
	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	pkgerrors "github.com/samia-tarot/samia-tarot-backend/pkg/errors"
	"github.com/samia-tarot/samia-tarot-backend/pkg/logger"
)

type auditEntryResponse struct {
	ID        uuid.UUID          `json:"id"`
	ActorID   uuid.UUID          `json:"actor_id"`
	ActorRole enums.ActorRole    `json:"actor_role"`
	Action    enums.AuditAction  `json:"action"`
	OldStatus *enums.OrderStatus `json:"old_status,omitempty"`
	NewStatus enums.OrderStatus  `json:"new_status"`
	Metadata  json.RawMessage    `json:"metadata,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

type moderationActionResponse struct {
	ID        uuid.UUID                `json:"id"`
	ActorID   uuid.UUID                `json:"actor_id"`
	ActorRole enums.ActorRole          `json:"actor_role"`
	Decision  enums.ModerationDecision `json:"decision"`
	Reason    *string                  `json:"reason,omitempty"`
	CreatedAt time.Time                `json:"created_at"`
}

type auditTrailResponse struct {
	OrderID    uuid.UUID                  `json:"order_id"`
	Entries    []auditEntryResponse       `json:"entries"`
	Moderation []moderationActionResponse `json:"moderation"`
}

// AuditTrail returns the full recorded history for one order, oldest first.
func AuditTrail(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		moderation, err := svc.ListModerationForOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, auditTrailResponse{
			OrderID:    orderID,
			Entries:    toAuditEntries(entries),
			Moderation: toModerationActions(moderation),
		})
	}
}

func toAuditEntries(rows []models.AuditLogEntry) []auditEntryResponse {
	out := make([]auditEntryResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, auditEntryResponse{
			ID:        row.ID,
			ActorID:   row.ActorID,
			ActorRole: row.ActorRole,
			Action:    row.Action,
			OldStatus: row.OldStatus,
			NewStatus: row.NewStatus,
			Metadata:  row.Metadata,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}

func toModerationActions(rows []models.ModerationAction) []moderationActionResponse {
	out := make([]moderationActionResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, moderationActionResponse{
			ID:        row.ID,
			ActorID:   row.ActorID,
			ActorRole: row.ActorRole,
			Decision:  row.Action,
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
		})
	}
	return out
}
