// Package cargoapi — HTTP-вход для десктопного приложения: приём
// синхронизации заказов и чтение состояния.
package cargoapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/margiana/cargotrack/internal/models"
	"github.com/margiana/cargotrack/internal/report"
	"github.com/margiana/cargotrack/internal/services/orders"
)

type OrdersService interface {
	SyncOrder(ctx context.Context, in models.OrderSyncInput, syncType string) (orders.SyncResult, error)
	GetOrder(ctx context.Context, orderNumber string) (*models.Order, error)
	ListOrders(ctx context.Context, limit int) ([]*models.Order, error)
	OrdersByStatus(ctx context.Context, status models.OrderStatus) ([]*models.Order, error)
	ActiveOrders(ctx context.Context) ([]*models.Order, error)
	CompletedOrders(ctx context.Context, days int) ([]*models.Order, error)
	SearchOrders(ctx context.Context, query string) ([]*models.Order, error)
	OrdersWithoutPhoto(ctx context.Context) ([]*models.Order, error)
	OrdersWithoutDocs(ctx context.Context) ([]*models.Order, error)
	Containers(ctx context.Context, orderID uint64) ([]*models.Container, error)
	Tasks(ctx context.Context, orderID uint64) ([]*models.Task, error)
	EventsToday(ctx context.Context) ([]*models.Order, error)
	UpcomingEventsWithin(ctx context.Context, within time.Duration) ([]*models.UpcomingEvent, error)
	Statistics(ctx context.Context, days int) (*models.Statistics, error)
}

type API struct {
	svc      OrdersService
	validate *validator.Validate
	log      *slog.Logger
}

func New(svc OrdersService, log *slog.Logger) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{
		svc:      svc,
		validate: validator.New(),
		log:      log,
	}
}

// SyncOrder принимает частичное обновление заказа.
func (a *API) SyncOrder(w http.ResponseWriter, r *http.Request) {
	var in models.OrderSyncInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if err := a.validate.Struct(in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	syncType := r.URL.Query().Get("sync_type")
	if syncType == "" {
		syncType = "manual"
	}

	res, err := a.svc.SyncOrder(r.Context(), in, syncType)
	if err != nil {
		// Отказ по входным данным — вина клиента, без записи в лог.
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.log.Error("sync order", "order_number", in.OrderNumber, "err", err)
		writeError(w, http.StatusInternalServerError, "sync failed")
		return
	}

	result := "updated"
	if res.Created {
		result = "created"
	}
	writeJSON(w, http.StatusOK, SyncEnvelope{
		Status:      "success",
		Result:      result,
		OrderID:     res.OrderID,
		OrderNumber: in.OrderNumber,
	})
}

// ListOrders: ?status=, ?search=, ?limit=.
func (a *API) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	var (
		list []*models.Order
		err  error
	)
	switch {
	case q.Get("search") != "":
		list, err = a.svc.SearchOrders(ctx, q.Get("search"))
	case q.Get("status") != "":
		list, err = a.svc.OrdersByStatus(ctx, models.OrderStatus(q.Get("status")))
	default:
		list, err = a.svc.ListOrders(ctx, intParam(q.Get("limit"), 100))
	}
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.log.Error("list orders", "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list, "count": len(list)})
}

// GetOrder отдаёт заказ вместе с контейнерами и задачами.
func (a *API) GetOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "orderNumber")
	ctx := r.Context()

	o, err := a.svc.GetOrder(ctx, number)
	if err != nil {
		a.log.Error("get order", "order_number", number, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("order %s not found", number))
		return
	}

	containers, err := a.svc.Containers(ctx, o.ID)
	if err != nil {
		a.log.Error("list containers", "order_id", o.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	tasks, err := a.svc.Tasks(ctx, o.ID)
	if err != nil {
		a.log.Error("list tasks", "order_id", o.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order":      o,
		"containers": containers,
		"tasks":      tasks,
	})
}

func (a *API) WithoutPhotos(w http.ResponseWriter, r *http.Request) {
	a.orderListResponse(w, r, a.svc.OrdersWithoutPhoto)
}

func (a *API) WithoutDocs(w http.ResponseWriter, r *http.Request) {
	a.orderListResponse(w, r, a.svc.OrdersWithoutDocs)
}

func (a *API) EventsToday(w http.ResponseWriter, r *http.Request) {
	a.orderListResponse(w, r, a.svc.EventsToday)
}

func (a *API) orderListResponse(w http.ResponseWriter, r *http.Request, fn func(context.Context) ([]*models.Order, error)) {
	list, err := fn(r.Context())
	if err != nil {
		a.log.Error("list orders", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list, "count": len(list)})
}

// UpcomingEvents: ?hours=48.
func (a *API) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	hours := intParam(r.URL.Query().Get("hours"), 48)
	events, err := a.svc.UpcomingEventsWithin(r.Context(), time.Duration(hours)*time.Hour)
	if err != nil {
		a.log.Error("upcoming events", "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// Statistics: ?days=30.
func (a *API) Statistics(w http.ResponseWriter, r *http.Request) {
	days := intParam(r.URL.Query().Get("days"), 30)
	stats, err := a.svc.Statistics(r.Context(), days)
	if err != nil {
		a.log.Error("statistics", "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// OrderReport отдаёт PDF по заказу.
func (a *API) OrderReport(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "orderNumber")
	ctx := r.Context()

	o, err := a.svc.GetOrder(ctx, number)
	if err != nil {
		a.log.Error("get order for report", "order_number", number, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("order %s not found", number))
		return
	}

	containers, err := a.svc.Containers(ctx, o.ID)
	if err != nil {
		a.log.Error("list containers", "order_id", o.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	tasks, err := a.svc.Tasks(ctx, o.ID)
	if err != nil {
		a.log.Error("list tasks", "order_id", o.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	pdf, err := report.OrderPDF(o, containers, tasks)
	if err != nil {
		a.log.Error("render order pdf", "order_number", number, "err", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	servePDF(w, fmt.Sprintf("order_%s.pdf", o.OrderNumber), pdf)
}

// SummaryReport отдаёт сводный PDF: ?days=30.
func (a *API) SummaryReport(w http.ResponseWriter, r *http.Request) {
	days := intParam(r.URL.Query().Get("days"), 30)
	ctx := r.Context()

	stats, err := a.svc.Statistics(ctx, days)
	if err != nil {
		a.log.Error("statistics for report", "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	active, err := a.svc.ActiveOrders(ctx)
	if err != nil {
		a.log.Error("active orders for report", "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	completed, err := a.svc.CompletedOrders(ctx, days)
	if err != nil {
		a.log.Error("completed orders for report", "err", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	pdf, err := report.SummaryPDF(stats, active, completed)
	if err != nil {
		a.log.Error("render summary pdf", "err", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	servePDF(w, fmt.Sprintf("summary_%dd.pdf", days), pdf)
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func servePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// isValidationError отличает отказ по входным данным от сбоя хранилища.
func isValidationError(err error) bool {
	return errors.Is(err, orders.ErrValidation)
}
