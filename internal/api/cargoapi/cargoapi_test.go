package cargoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/margiana/cargotrack/internal/models"
	"github.com/margiana/cargotrack/internal/services/orders"
)

type fakeSvc struct {
	syncIn     models.OrderSyncInput
	syncType   string
	syncOut    orders.SyncResult
	syncErr    error
	order      *models.Order
	list       []*models.Order
	byStatus   models.OrderStatus
	searched   string
	eventsList []*models.UpcomingEvent
}

func (f *fakeSvc) SyncOrder(ctx context.Context, in models.OrderSyncInput, syncType string) (orders.SyncResult, error) {
	f.syncIn = in
	f.syncType = syncType
	return f.syncOut, f.syncErr
}
func (f *fakeSvc) GetOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	return f.order, nil
}
func (f *fakeSvc) ListOrders(ctx context.Context, limit int) ([]*models.Order, error) {
	return f.list, nil
}
func (f *fakeSvc) OrdersByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error) {
	f.byStatus = status
	if !status.Valid() {
		return nil, errors.Wrapf(orders.ErrValidation, "unknown status %q", status)
	}
	return f.list, nil
}
func (f *fakeSvc) ActiveOrders(ctx context.Context) ([]*models.Order, error)    { return f.list, nil }
func (f *fakeSvc) CompletedOrders(ctx context.Context, days int) ([]*models.Order, error) {
	return nil, nil
}
func (f *fakeSvc) SearchOrders(ctx context.Context, query string) ([]*models.Order, error) {
	f.searched = query
	return f.list, nil
}
func (f *fakeSvc) OrdersWithoutPhoto(ctx context.Context) ([]*models.Order, error) {
	return f.list, nil
}
func (f *fakeSvc) OrdersWithoutDocs(ctx context.Context) ([]*models.Order, error) {
	return f.list, nil
}
func (f *fakeSvc) Containers(ctx context.Context, orderID uint64) ([]*models.Container, error) {
	return nil, nil
}
func (f *fakeSvc) Tasks(ctx context.Context, orderID uint64) ([]*models.Task, error) {
	return nil, nil
}
func (f *fakeSvc) EventsToday(ctx context.Context) ([]*models.Order, error) { return f.list, nil }
func (f *fakeSvc) UpcomingEventsWithin(ctx context.Context, within time.Duration) ([]*models.UpcomingEvent, error) {
	return f.eventsList, nil
}
func (f *fakeSvc) Statistics(ctx context.Context, days int) (*models.Statistics, error) {
	return &models.Statistics{PeriodDays: days}, nil
}

const testKey = "secret-key"

func newTestServer(svc *fakeSvc) *httptest.Server {
	return httptest.NewServer(NewRouter(New(svc, nil), RouterOpts{APIKey: testKey}))
}

func do(t *testing.T, method, url, key, body string) *http.Response {
	t.Helper()
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	} else {
		rd = strings.NewReader("")
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("api-key", key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestAuth(t *testing.T) {
	srv := newTestServer(&fakeSvc{})
	defer srv.Close()

	// без ключа — 403
	resp := do(t, http.MethodGet, srv.URL+"/api/orders", "", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// неверный ключ — 403
	resp = do(t, http.MethodGet, srv.URL+"/api/orders", "wrong", "")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// health без ключа доступен
	resp = do(t, http.MethodGet, srv.URL+"/api/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestSyncOrder(t *testing.T) {
	svc := &fakeSvc{syncOut: orders.SyncResult{OrderID: 7, Created: true}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/api/sync/order?sync_type=auto", testKey,
		`{"order_number":"ORD-1","client_name":"Acme","status":"In Transit CHN-IR"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var env SyncEnvelope
	decode(t, resp, &env)
	require.Equal(t, "success", env.Status)
	require.Equal(t, "created", env.Result)
	require.Equal(t, uint64(7), env.OrderID)
	require.Equal(t, "ORD-1", env.OrderNumber)

	require.Equal(t, "auto", svc.syncType)
	require.Equal(t, "Acme", *svc.syncIn.ClientName)
}

func TestSyncOrder_updated(t *testing.T) {
	svc := &fakeSvc{syncOut: orders.SyncResult{OrderID: 7, Created: false}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/api/sync/order", testKey, `{"order_number":"ORD-1"}`)
	var env SyncEnvelope
	decode(t, resp, &env)
	require.Equal(t, "updated", env.Result)
}

func TestSyncOrder_badPayload(t *testing.T) {
	srv := newTestServer(&fakeSvc{})
	defer srv.Close()

	// order_number короче трёх символов
	resp := do(t, http.MethodPost, srv.URL+"/api/sync/order", testKey, `{"order_number":"A1"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// битый json
	resp = do(t, http.MethodPost, srv.URL+"/api/sync/order", testKey, `{"order_number"`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSyncOrder_serviceValidation(t *testing.T) {
	svc := &fakeSvc{syncErr: errors.Wrap(orders.ErrValidation, "invalid order_number")}
	srv := newTestServer(svc)
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/api/sync/order", testKey, `{"order_number":"12345"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestSyncOrder_storageFailure(t *testing.T) {
	svc := &fakeSvc{syncErr: errors.Wrap(errors.New("connection refused"), "upsert order")}
	srv := newTestServer(svc)
	defer srv.Close()

	resp := do(t, http.MethodPost, srv.URL+"/api/sync/order", testKey, `{"order_number":"ORD-1"}`)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	resp.Body.Close()
}

func TestListOrders_params(t *testing.T) {
	svc := &fakeSvc{list: []*models.Order{{OrderNumber: "ORD-1"}}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/api/orders?search=acme", testKey, "")
	var out struct {
		Orders []models.Order `json:"orders"`
		Count  int            `json:"count"`
	}
	decode(t, resp, &out)
	require.Equal(t, 1, out.Count)
	require.Equal(t, "acme", svc.searched)

	resp = do(t, http.MethodGet, srv.URL+"/api/orders?status=New", testKey, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	require.Equal(t, models.StatusNew, svc.byStatus)

	resp = do(t, http.MethodGet, srv.URL+"/api/orders?status=Teleported", testKey, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestGetOrder_notFound(t *testing.T) {
	srv := newTestServer(&fakeSvc{order: nil})
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/api/orders/ORD-404", testKey, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestGetOrder_withContainers(t *testing.T) {
	svc := &fakeSvc{order: &models.Order{ID: 1, OrderNumber: "ORD-1"}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/api/orders/ORD-1", testKey, "")
	var out map[string]json.RawMessage
	decode(t, resp, &out)
	require.Contains(t, out, "order")
	require.Contains(t, out, "containers")
	require.Contains(t, out, "tasks")
}

func TestStatistics(t *testing.T) {
	srv := newTestServer(&fakeSvc{})
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/api/statistics?days=7", testKey, "")
	var stats models.Statistics
	decode(t, resp, &stats)
	require.Equal(t, 7, stats.PeriodDays)
}

func TestOrderReport_pdf(t *testing.T) {
	svc := &fakeSvc{order: &models.Order{ID: 1, OrderNumber: "ORD-1", ClientName: "Acme"}}
	srv := newTestServer(svc)
	defer srv.Close()

	resp := do(t, http.MethodGet, srv.URL+"/api/reports/order/ORD-1", testKey, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	require.Contains(t, resp.Header.Get("Content-Disposition"), "order_ORD-1.pdf")
}
