package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/api/middleware"
	"github.com/samia-tarot/samia-tarot-backend/api/responses"
	"github.com/samia-tarot/samia-tarot-backend/api/validators"
	internalorders "github.com/samia-tarot/samia-tarot-backend/internal/orders"
	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	pkgerrors "github.com/samia-tarot/samia-tarot-backend/pkg/errors"
	"github.com/samia-tarot/samia-tarot-backend/pkg/logger"
	"github.com/samia-tarot/samia-tarot-backend/pkg/pagination"
)

type createOrderRequest struct {
	ServiceCode   string  `json:"service_code" validate:"required,oneof=tarot coffee astro healing direct_call"`
	QuestionText  string  `json:"question_text" validate:"required"`
	InputMediaRef *string `json:"input_media_ref,omitempty"`
	IsPriority    bool    `json:"is_priority"`
}

type assignRequest struct {
	ReaderID string `json:"reader_id" validate:"required,uuid"`
}

type submitOutputRequest struct {
	OutputMediaRef string `json:"output_media_ref" validate:"required"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type orderResponse struct {
	ID               uuid.UUID         `json:"id"`
	ServiceCode      enums.ServiceCode `json:"service_code"`
	Status           enums.OrderStatus `json:"status"`
	ClientID         uuid.UUID         `json:"client_id"`
	AssignedReaderID *uuid.UUID        `json:"assigned_reader_id,omitempty"`
	QuestionText     string            `json:"question_text"`
	InputMediaRef    *string           `json:"input_media_ref,omitempty"`
	OutputMediaRef   *string           `json:"output_media_ref,omitempty"`
	IsPriority       bool              `json:"is_priority"`
	RejectionReason  *string           `json:"rejection_reason,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Create books a new reading for the authenticated client.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.ActorRoleClient {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only clients can book orders"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), internalorders.CreateOrderInput{
			ClientID:      actor.ID,
			ServiceCode:   enums.ServiceCode(payload.ServiceCode),
			QuestionText:  payload.QuestionText,
			InputMediaRef: payload.InputMediaRef,
			IsPriority:    payload.IsPriority,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toOrderResponse(order))
	}
}

// List returns the orders visible to the caller, priority rows first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		filters, err := buildListFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), actor, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order when the caller is allowed to see it.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

// Assign hands the order to a reader.
func Assign(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, enums.OrderActionAssign, func(r *http.Request) (internalorders.TransitionPayload, error) {
		var payload assignRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return internalorders.TransitionPayload{}, err
		}
		readerID, err := uuid.Parse(payload.ReaderID)
		if err != nil {
			return internalorders.TransitionPayload{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid reader id")
		}
		return internalorders.TransitionPayload{ReaderID: &readerID}, nil
	})
}

// SubmitOutput attaches the reader's recorded result and sends it to review.
func SubmitOutput(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, enums.OrderActionSubmitOutput, func(r *http.Request) (internalorders.TransitionPayload, error) {
		var payload submitOutputRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return internalorders.TransitionPayload{}, err
		}
		return internalorders.TransitionPayload{OutputMediaRef: &payload.OutputMediaRef}, nil
	})
}

// Approve accepts the submitted output.
func Approve(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, enums.OrderActionApprove, func(r *http.Request) (internalorders.TransitionPayload, error) {
		return internalorders.TransitionPayload{}, nil
	})
}

// Reject sends the submitted output back to the reader with a reason.
func Reject(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, enums.OrderActionReject, func(r *http.Request) (internalorders.TransitionPayload, error) {
		var payload rejectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			return internalorders.TransitionPayload{}, err
		}
		return internalorders.TransitionPayload{Reason: &payload.Reason}, nil
	})
}

// Deliver releases an approved order to the client.
func Deliver(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, enums.OrderActionDeliver, func(r *http.Request) (internalorders.TransitionPayload, error) {
		return internalorders.TransitionPayload{}, nil
	})
}

// Cancel withdraws an order before fulfilment completes.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(svc, logg, enums.OrderActionCancel, func(r *http.Request) (internalorders.TransitionPayload, error) {
		return internalorders.TransitionPayload{}, nil
	})
}

type payloadParser func(r *http.Request) (internalorders.TransitionPayload, error)

func transition(svc internalorders.Service, logg *logger.Logger, action enums.OrderAction, parse payloadParser) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := parse(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			Action:  action,
			Actor:   actor,
			Payload: payload,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderResponse(order))
	}
}

func actorFromContext(r *http.Request) (internalorders.Actor, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	actorID, err := uuid.Parse(userID)
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	role := enums.ActorRole(middleware.RoleFromContext(r.Context()))
	if !role.IsValid() {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "role context missing")
	}
	return internalorders.Actor{ID: actorID, Role: role}, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func buildListFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.OrderStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filters.Status = &status
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("service_code")); raw != "" {
		code := enums.ServiceCode(raw)
		if !code.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid service code filter")
		}
		filters.ServiceCode = &code
	}

	return filters, nil
}

func toOrderResponse(order *models.Order) orderResponse {
	return orderResponse{
		ID:               order.ID,
		ServiceCode:      order.ServiceCode,
		Status:           order.Status,
		ClientID:         order.ClientID,
		AssignedReaderID: order.AssignedReaderID,
		QuestionText:     order.QuestionText,
		InputMediaRef:    order.InputMediaRef,
		OutputMediaRef:   order.OutputMediaRef,
		IsPriority:       order.IsPriority,
		RejectionReason:  order.RejectionReason,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}
