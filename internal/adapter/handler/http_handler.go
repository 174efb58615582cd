package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oakmart/storefront/internal/core/domain"
	"github.com/oakmart/storefront/internal/core/service"
)

// CheckoutService is the slice of the checkout core the HTTP surface needs.
type CheckoutService interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (*domain.Order, []domain.OrderItem, error)
	Order(ctx context.Context, userID, orderNumber string) (*domain.Order, []domain.OrderItem, error)
	CancelOrder(ctx context.Context, userID, orderNumber string) (*domain.Order, error)
}

type InventoryService interface {
	AdjustStock(ctx context.Context, productID string, delta int, reason domain.StockChangeReason, actorID string) (int, error)
}

type HTTPHandler struct {
	checkout  CheckoutService
	inventory InventoryService
}

func NewHTTPHandler(checkout CheckoutService, inventory InventoryService) *HTTPHandler {
	return &HTTPHandler{checkout: checkout, inventory: inventory}
}

// Routes mounts all storefront endpoints on a chi router.
func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Post("/api/checkout", h.Checkout)
	r.Get("/api/orders/{orderNumber}", h.GetOrder)
	r.Post("/api/orders/{orderNumber}/cancel", h.CancelOrder)
	r.Post("/api/products/{productID}/stock", h.AdjustStock)
	return r
}

type CheckoutHTTPRequest struct {
	RequestID         string `json:"request_id"`
	UserID            string `json:"user_id"`
	ShippingAddressID string `json:"shipping_address_id"`
	PaymentMethod     string `json:"payment_method"`
	CouponID          string `json:"coupon_id,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

type OrderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalPrice  string `json:"total_price"`
}

type OrderResponse struct {
	ID                string              `json:"id"`
	OrderNumber       string              `json:"order_number"`
	Status            string              `json:"status"`
	PaymentStatus     string              `json:"payment_status"`
	SubTotal          string              `json:"subtotal"`
	ShippingCost      string              `json:"shipping_cost"`
	Tax               string              `json:"tax"`
	Discount          string              `json:"discount"`
	Total             string              `json:"total"`
	Items             []OrderItemResponse `json:"items"`
	ShippingAddressID string              `json:"shipping_address_id"`
	CreatedAt         time.Time           `json:"created_at"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.ShippingAddressID == "" || req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	order, items, err := h.checkout.Checkout(r.Context(), service.CheckoutRequest{
		RequestID:         req.RequestID,
		UserID:            req.UserID,
		ShippingAddressID: req.ShippingAddressID,
		PaymentMethod:     req.PaymentMethod,
		CouponID:          req.CouponID,
		Notes:             req.Notes,
	})
	if err != nil {
		status, message := checkoutErrorStatus(err)
		writeError(w, status, message)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order, items))
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	order, items, err := h.checkout.Order(r.Context(), userID, chi.URLParam(r, "orderNumber"))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

type CancelHTTPRequest struct {
	UserID string `json:"user_id"`
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	order, err := h.checkout.CancelOrder(r.Context(), req.UserID, chi.URLParam(r, "orderNumber"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrCancelNotAllowed):
			writeError(w, http.StatusConflict, "order can no longer be cancelled")
		default:
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, nil))
}

type AdjustStockHTTPRequest struct {
	Delta   int    `json:"delta"`
	Reason  string `json:"reason"`
	ActorID string `json:"actor_id"`
}

func (h *HTTPHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 || req.ActorID == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	reason := domain.StockChangeReason(req.Reason)
	switch reason {
	case domain.StockReasonRestock, domain.StockReasonAdjustment, domain.StockReasonReturn:
	default:
		writeError(w, http.StatusBadRequest, "invalid reason")
		return
	}

	stock, err := h.inventory.AdjustStock(r.Context(), chi.URLParam(r, "productID"), req.Delta, reason, req.ActorID)
	if err != nil {
		if errors.Is(err, service.ErrProductUnavailable) {
			writeError(w, http.StatusConflict, "insufficient stock")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stock": stock})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// checkoutErrorStatus maps the checkout error taxonomy to HTTP. Unknown
// errors stay generic so storage internals never leak to clients.
func checkoutErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, service.ErrEmptyCart):
		return http.StatusBadRequest, "cart is empty"
	case errors.Is(err, service.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid shipping address"
	case errors.Is(err, service.ErrProductUnavailable):
		// Covers lost stock races too; the caller's remedy is the same.
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func toOrderResponse(order *domain.Order, items []domain.OrderItem) OrderResponse {
	resp := OrderResponse{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		Status:            string(order.Status),
		PaymentStatus:     string(order.PaymentStatus),
		SubTotal:          order.SubTotal.StringFixed(2),
		ShippingCost:      order.ShippingCost.StringFixed(2),
		Tax:               order.Tax.StringFixed(2),
		Discount:          order.Discount.StringFixed(2),
		Total:             order.Total.StringFixed(2),
		Items:             make([]OrderItemResponse, 0, len(items)),
		ShippingAddressID: order.ShippingAddressID,
		CreatedAt:         order.CreatedAt,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			SKU:         it.SKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			TotalPrice:  it.TotalPrice.StringFixed(2),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, Message: message})
}
