package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/samia-tarot/samia-tarot-backend/internal/audit"
	"github.com/samia-tarot/samia-tarot-backend/internal/notifications"
	internalorders "github.com/samia-tarot/samia-tarot-backend/internal/orders"
	pkgAuth "github.com/samia-tarot/samia-tarot-backend/pkg/auth"
	"github.com/samia-tarot/samia-tarot-backend/pkg/config"
	"github.com/samia-tarot/samia-tarot-backend/pkg/db/models"
	"github.com/samia-tarot/samia-tarot-backend/pkg/enums"
	"github.com/samia-tarot/samia-tarot-backend/pkg/logger"
	"github.com/samia-tarot/samia-tarot-backend/pkg/pagination"
)

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubOrdersService) Transition(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
	return &models.Order{}, nil
}

func (stubOrdersService) Get(ctx context.Context, actor internalorders.Actor, orderID uuid.UUID) (*models.Order, error) {
	return &models.Order{ID: orderID, ClientID: actor.ID}, nil
}

func (stubOrdersService) List(ctx context.Context, actor internalorders.Actor, params pagination.Params, filters internalorders.ListFilters) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{}, nil
}

type stubAuditService struct{}

func (stubAuditService) Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error {
	return nil
}

func (stubAuditService) ListForOrder(ctx context.Context, orderID uuid.UUID) ([]models.AuditLogEntry, error) {
	return nil, nil
}

func (stubAuditService) ListModerationForOrder(ctx context.Context, orderID uuid.UUID) ([]models.ModerationAction, error) {
	return nil, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func testRouterParams(cfg *config.Config) RouterParams {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return RouterParams{
		Config:               cfg,
		Logger:               logg,
		OrdersService:        stubOrdersService{},
		AuditService:         stubAuditService{},
		NotificationsService: stubNotificationsService{},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	return NewRouter(testRouterParams(cfg))
}

type memoryIdempotencyStore struct {
	data map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: make(map[string]string)}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	m.data[key] = str
	return true, nil
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("test:%s:%s", scope, id)
}

type windowStore struct {
	counts map[string]int64
}

func (w *windowStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if w.counts == nil {
		w.counts = make(map[string]int64)
	}
	w.counts[scope]++
	return w.counts[scope] <= limit, w.counts[scope], nil
}

type countingOrdersService struct {
	stubOrdersService
	transitions int
}

func (s *countingOrdersService) Transition(ctx context.Context, input internalorders.TransitionInput) (*models.Order, error) {
	s.transitions++
	return &models.Order{ID: input.OrderID, Status: enums.OrderStatusApproved}, nil
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleClient))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestOrdersListRequiresAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	anon := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, anon)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleReader))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAuditTrailRequiresStaffRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	orderID := uuid.NewString()

	client := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID+"/audit", nil)
	client.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleClient))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, client)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for client got %d", resp.Code)
	}

	monitor := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+orderID+"/audit", nil)
	monitor.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleMonitor))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, monitor)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for monitor got %d", resp.Code)
	}
}

func TestOrderTransitionRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	params := testRouterParams(cfg)
	params.IdempotencyStore = newMemoryIdempotencyStore()
	router := NewRouter(params)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/approve", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleMonitor))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}
}

func TestOrderTransitionReplaysThroughRouter(t *testing.T) {
	cfg := testConfig()
	svc := &countingOrdersService{}
	params := testRouterParams(cfg)
	params.IdempotencyStore = newMemoryIdempotencyStore()
	params.OrdersService = svc
	router := NewRouter(params)

	token := buildToken(t, cfg, enums.ActorRoleMonitor)
	target := "/api/v1/orders/" + uuid.NewString() + "/approve"
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "retry-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", first.Code, first.Body.String())
	}

	replay := send()
	if replay.Code != http.StatusOK {
		t.Fatalf("expected replayed 200 got %d", replay.Code)
	}
	if replay.Body.String() != first.Body.String() {
		t.Fatalf("replay body differs: %s vs %s", replay.Body.String(), first.Body.String())
	}
	if svc.transitions != 1 {
		t.Fatalf("service executed %d transitions, expected 1", svc.transitions)
	}
}

func TestOrderTransitionRateLimitThroughRouter(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{TransitionsPerWindow: 1, Window: time.Minute}
	svc := &countingOrdersService{}
	params := testRouterParams(cfg)
	params.RateLimitStore = &windowStore{}
	params.OrdersService = svc
	router := NewRouter(params)

	token := buildToken(t, cfg, enums.ActorRoleAdmin)
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+uuid.NewString()+"/deliver", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	if resp := send(); resp.Code != http.StatusOK {
		t.Fatalf("expected first transition allowed, got %d", resp.Code)
	}
	if resp := send(); resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second transition throttled, got %d", resp.Code)
	}
	if svc.transitions != 1 {
		t.Fatalf("service executed %d transitions, expected 1", svc.transitions)
	}
}

func TestNotificationsRequireAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	anon := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, anon)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleClient))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
