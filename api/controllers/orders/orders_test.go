package orders

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/samia-tarot/samia-tarot-backend/api/middleware"
	internalorders "github.com/samia-tarot/samia-tarot-backend/internal/orders"
	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	pkgerrors "github.com/samia-tarot/samia-tarot-backend/pkg/errors"
	"github.com/samia-tarot/samia-tarot-backend/pkg/logger"
	"github.com/samia-tarot/samia-tarot-backend/pkg/pagination"
)

type testOrdersService struct {
	createFn     func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	transitionFn func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error)
	getFn        func(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID) (*models.Order, error)
	listFn       func(ctx context.Context, actor internalorders.Actor, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error)
}

func (s *testOrdersService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *testOrdersService) Transition(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
	if s.transitionFn != nil {
		return s.transitionFn(ctx, input)
	}
	return &models.Order{}, nil
}

func (s *testOrdersService) Get(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID) (*models.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, actor, orderID)
	}
	return &models.Order{}, nil
}

func (s *testOrdersService) List(ctx context.Context, actor internalorders.Actor, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	if s.listFn != nil {
		return s.listFn(ctx, actor, params, filters)
	}
	return &internalorders.OrderList{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func authedRequest(method, target, body string, userID uuid.UUID, role enums.ActorRole) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return req.WithContext(ctx)
}

func withOrderParam(req *http.Request, orderID string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderID", orderID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateOrderSuccess(t *testing.T) {
	clientID := uuid.New()
	var got internalorders.CreateOrderInput
	svc := &testOrdersService{
		createFn: func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
			got = input
			return &models.Order{
				ID:          uuid.New(),
				ServiceCode: input.ServiceCode,
				Status:      enums.OrderStatusNew,
				ClientID:    input.ClientID,
			}, nil
		},
	}

	body := `{"service_code":"tarot","question_text":"What does the year hold?","is_priority":true}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, clientID, enums.ActorRoleClient)
	resp := httptest.NewRecorder()
	Create(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.ClientID != clientID {
		t.Fatalf("unexpected client %s", got.ClientID)
	}
	if got.ServiceCode != enums.ServiceCodeTarot {
		t.Fatalf("unexpected service code %s", got.ServiceCode)
	}
	if !got.IsPriority {
		t.Fatal("expected priority flag")
	}
}

func TestCreateOrderRejectsNonClient(t *testing.T) {
	body := `{"service_code":"tarot","question_text":"Reading please"}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, uuid.New(), enums.ActorRoleReader)
	resp := httptest.NewRecorder()
	Create(&testOrdersService{}, testLogger())(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestCreateOrderRejectsUnknownServiceCode(t *testing.T) {
	body := `{"service_code":"palmistry","question_text":"Reading please"}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, uuid.New(), enums.ActorRoleClient)
	resp := httptest.NewRecorder()
	Create(&testOrdersService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Create(&testOrdersService{}, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAssignPassesReaderID(t *testing.T) {
	adminID := uuid.New()
	readerID := uuid.New()
	orderID := uuid.New()
	var got internalorders.TransitionInput
	svc := &testOrdersService{
		transitionFn: func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
			got = input
			return &models.Order{ID: input.OrderID, Status: enums.OrderStatusAssigned}, nil
		},
	}

	body := `{"reader_id":"` + readerID.String() + `"}`
	req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/assign", body, adminID, enums.ActorRoleAdmin)
	req = withOrderParam(req, orderID.String())
	resp := httptest.NewRecorder()
	Assign(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got.Action != enums.OrderActionAssign {
		t.Fatalf("unexpected action %s", got.Action)
	}
	if got.OrderID != orderID {
		t.Fatalf("unexpected order %s", got.OrderID)
	}
	if got.Payload.ReaderID == nil || *got.Payload.ReaderID != readerID {
		t.Fatalf("unexpected reader payload %v", got.Payload.ReaderID)
	}
	if got.Actor.ID != adminID || got.Actor.Role != enums.ActorRoleAdmin {
		t.Fatalf("unexpected actor %+v", got.Actor)
	}
}

func TestAssignRejectsMalformedReaderID(t *testing.T) {
	orderID := uuid.New()
	req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/assign", `{"reader_id":"nope"}`, uuid.New(), enums.ActorRoleAdmin)
	req = withOrderParam(req, orderID.String())
	resp := httptest.NewRecorder()
	Assign(&testOrdersService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	orderID := uuid.New()
	req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/reject", `{}`, uuid.New(), enums.ActorRoleMonitor)
	req = withOrderParam(req, orderID.String())
	resp := httptest.NewRecorder()
	Reject(&testOrdersService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestTransitionSurfacesServiceError(t *testing.T) {
	orderID := uuid.New()
	svc := &testOrdersService{
		transitionFn: func(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed")
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/orders/"+orderID.String()+"/approve", "", uuid.New(), enums.ActorRoleMonitor)
	req = withOrderParam(req, orderID.String())
	resp := httptest.NewRecorder()
	Approve(svc, testLogger())(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestDetailInvalidOrderID(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/orders/nope", "", uuid.New(), enums.ActorRoleClient)
	req = withOrderParam(req, "nope")
	resp := httptest.NewRecorder()
	Detail(&testOrdersService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListPassesFilters(t *testing.T) {
	userID := uuid.New()
	var gotParams pagination.Params
	var gotFilters internalorders.ListFilters
	svc := &testOrdersService{
		listFn: func(ctx context.Context, actor internalorders.Actor, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
			gotParams = params
			gotFilters = filters
			return &internalorders.OrderList{}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/orders?limit=5&status=assigned&service_code=tarot", "", userID, enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	List(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotParams.Limit != 5 {
		t.Fatalf("expected limit 5 got %d", gotParams.Limit)
	}
	if gotFilters.Status == nil || *gotFilters.Status != enums.OrderStatusAssigned {
		t.Fatalf("unexpected status filter %v", gotFilters.Status)
	}
	if gotFilters.ServiceCode == nil || *gotFilters.ServiceCode != enums.ServiceCodeTarot {
		t.Fatalf("unexpected service filter %v", gotFilters.ServiceCode)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/orders?status=lost", "", uuid.New(), enums.ActorRoleAdmin)
	resp := httptest.NewRecorder()
	List(&testOrdersService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailSerializesOrder(t *testing.T) {
	orderID := uuid.New()
	clientID := uuid.New()
	svc := &testOrdersService{
		getFn: func(ctx context.Context, actor internalorders.Actor, id uuid.UUID) (*models.Order, error) {
			return &models.Order{
				ID:          id,
				ServiceCode: enums.ServiceCodeCoffee,
				Status:      enums.OrderStatusDelivered,
				ClientID:    clientID,
			}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/orders/"+orderID.String(), "", clientID, enums.ActorRoleClient)
	req = withOrderParam(req, orderID.String())
	resp := httptest.NewRecorder()
	Detail(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data orderResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.ID != orderID {
		t.Fatalf("unexpected id %s", envelope.Data.ID)
	}
	if envelope.Data.Status != enums.OrderStatusDelivered {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
}
