// internal/service/booking/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"tixhub/internal/inventory"
	"tixhub/internal/pkg/logger"
	"tixhub/internal/service/booking/application"
	"tixhub/internal/service/booking/domain"
	"tixhub/internal/service/consistency"
)

const serviceName = "booking-service"

// BookingHandler 封装了 booking 服务的 HTTP 处理器
type BookingHandler struct {
	service *application.BookingApplicationService
	checker *consistency.Checker
}

// NewBookingHandler 创建一个新的 HTTP 处理器实例
func NewBookingHandler(service *application.BookingApplicationService, checker *consistency.Checker) *BookingHandler {
	return &BookingHandler{service: service, checker: checker}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *BookingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/bookings", h.bookTicketsHandler)
	mux.HandleFunc("/bookings/cancel", h.cancelBookingHandler)
	mux.HandleFunc("/availability", h.availabilityHandler)
	mux.HandleFunc("/inventory/init", h.initInventoryHandler)
	mux.HandleFunc("/inventory/check", h.checkConsistencyHandler)
	mux.HandleFunc("/inventory/sync", h.syncInventoryHandler)
}

func (h *BookingHandler) bookTicketsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "api.BookTickets")
	defer span.End()

	var req application.BookTicketsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	span.SetAttributes(
		attribute.String("event.id", req.EventID),
		attribute.String("ticket_type.id", req.TicketTypeID),
		attribute.Int("quantity", req.Quantity),
	)

	resp, err := h.service.BookTickets(ctx, &req)
	if err != nil {
		span.RecordError(err)
		writeBookingError(w, err)
		return
	}

	status := http.StatusOK
	if !resp.Success {
		// 业务性失败：409 表示库存不足，404 表示计数器缺失。
		status = http.StatusConflict
		if resp.ErrorCode == inventory.CodeNotFound {
			status = http.StatusNotFound
		}
	}
	writeJSON(w, status, resp)
}

func (h *BookingHandler) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "api.CancelBooking")
	defer span.End()

	var req struct {
		BookingID string `json:"booking_id"`
		UserID    string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookingID == "" || req.UserID == "" {
		http.Error(w, "booking_id and user_id are required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.CancelBooking(ctx, req.BookingID, req.UserID)
	if err != nil {
		span.RecordError(err)
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) availabilityHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "api.Availability")
	defer span.End()

	eventID := r.URL.Query().Get("event_id")
	ticketTypeID := r.URL.Query().Get("ticket_type_id")
	if eventID == "" || ticketTypeID == "" {
		http.Error(w, "event_id and ticket_type_id are required", http.StatusBadRequest)
		return
	}

	resp, err := h.service.Availability(ctx, eventID, ticketTypeID)
	if err != nil {
		span.RecordError(err)
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) initInventoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "api.InitInventory")
	defer span.End()

	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}

	if err := h.service.InitializeEventInventory(ctx, eventID); err != nil {
		span.RecordError(err)
		writeBookingError(w, err)
		return
	}
	logger.Ctx(ctx).Info().Str("event", eventID).Msg("Event inventory initialized")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "event_id": eventID})
}

func (h *BookingHandler) checkConsistencyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "api.CheckConsistency")
	defer span.End()

	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}

	report, err := h.checker.Compare(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *BookingHandler) syncInventoryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, span := otel.Tracer(serviceName).Start(r.Context(), "api.SyncInventory")
	defer span.End()

	eventID := r.URL.Query().Get("event_id")
	if eventID == "" {
		http.Error(w, "event_id is required", http.StatusBadRequest)
		return
	}

	synced, err := h.checker.Reconcile(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "event_id": eventID, "synced": synced})
}

// writeBookingError 把领域错误映射到 HTTP 状态码。
func writeBookingError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrTicketTypeNotFound),
		errors.Is(err, domain.ErrBookingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrPolicyRejected):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrLockAcquisition):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrConcurrentUpdate):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]interface{}{"success": false, "message": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
