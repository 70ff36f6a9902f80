package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pasarlink/storefront/internal/database"
	"github.com/pasarlink/storefront/internal/enum"
	"github.com/pasarlink/storefront/internal/middleware"
	"github.com/pasarlink/storefront/internal/service"
	"github.com/pasarlink/storefront/internal/ws"
)

// CheckoutServicer defines the service methods needed by the checkout
// endpoint. Satisfied by *service.CheckoutService.
type CheckoutServicer interface {
	Checkout(ctx context.Context, buyerID uuid.UUID) (*service.CheckoutResult, error)
}

// OrderStore defines the database methods needed by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error)
	ListItemsBySeller(ctx context.Context, sellerID uuid.UUID) ([]database.ListItemsBySellerRow, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
}

// ItemLocker guards order items against concurrent status mutations: at most
// one in-flight update per item id. Satisfied by *redisx.ItemLocker.
type ItemLocker interface {
	AcquireItemLock(ctx context.Context, itemID uuid.UUID) (bool, error)
	ReleaseItemLock(ctx context.Context, itemID uuid.UUID) error
}

// Broadcaster pushes order events to connected storefront tabs.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event ws.Event)
}

// OrderHandler handles checkout, order reads, and the item status workflow.
type OrderHandler struct {
	svc    CheckoutServicer
	store  OrderStore
	locker ItemLocker
	hub    Broadcaster
}

func NewOrderHandler(svc CheckoutServicer, store OrderStore, locker ItemLocker, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, locker: locker, hub: hub}
}

// RegisterRoutes registers order endpoints. Expected to be mounted inside the
// authenticated group.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/checkout", h.Checkout)
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Get)
	r.Get("/sales", h.Sales)
	r.Patch("/order-items/{id}", h.UpdateItemStatus)
}

// --- Request / Response types ---

type updateItemStatusRequest struct {
	Status string `json:"status"`
}

type orderItemResponse struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Qty         int32     `json:"qty"`
	UnitPrice   string    `json:"unit_price"`
	Status      string    `json:"status"`
}

type orderResponse struct {
	ID          uuid.UUID           `json:"id"`
	TotalAmount string              `json:"total_amount"`
	CreatedAt   time.Time           `json:"created_at"`
	Items       []orderItemResponse `json:"items"`
}

type saleItemResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	BuyerShop   string    `json:"buyer_shop"`
	Qty         int32     `json:"qty"`
	UnitPrice   string    `json:"unit_price"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toOrderItemResponse(row database.ListOrderItemsByOrderRow) orderItemResponse {
	return orderItemResponse{
		ID:          row.ID,
		ProductID:   row.ProductID,
		ProductName: row.ProductName,
		Qty:         row.Quantity,
		UnitPrice:   service.NumericToDecimal(row.UnitPrice).StringFixed(2),
		Status:      row.Status,
	}
}

func toSaleItemResponse(row database.ListItemsBySellerRow) saleItemResponse {
	return saleItemResponse{
		ID:          row.ID,
		OrderID:     row.OrderID,
		ProductID:   row.ProductID,
		ProductName: row.ProductName,
		BuyerShop:   row.BuyerShop,
		Qty:         row.Quantity,
		UnitPrice:   service.NumericToDecimal(row.UnitPrice).StringFixed(2),
		Status:      row.Status,
		CreatedAt:   row.CreatedAt,
	}
}

// --- Status transition rules ---

// isValidItemStatus checks if the given status is a valid order item status.
func isValidItemStatus(s string) bool {
	switch s {
	case enum.ItemStatusPending, enum.ItemStatusAccepted, enum.ItemStatusRejected,
		enum.ItemStatusShipped, enum.ItemStatusDelivered:
		return true
	}
	return false
}

// allowedTransitions defines valid status transitions.
// Key is current status, value is the set of statuses it can transition to.
// DELIVERED and REJECTED have no entry: they are terminal.
var allowedTransitions = map[string][]string{
	enum.ItemStatusPending:  {enum.ItemStatusAccepted, enum.ItemStatusRejected},
	enum.ItemStatusAccepted: {enum.ItemStatusShipped, enum.ItemStatusRejected},
	enum.ItemStatusShipped:  {enum.ItemStatusDelivered},
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}

// --- Handlers ---

// Checkout turns the signed-in shop's cart into an order.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	result, err := h.svc.Checkout(r.Context(), claims.UserID)
	if err != nil {
		var shortErr *service.ShortfallError
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty"})
		case errors.As(err, &shortErr):
			writeJSON(w, http.StatusConflict, cartValidationResponse{
				Valid:  false,
				Errors: toValidationErrors(shortErr.Shortfalls),
			})
		default:
			log.Printf("ERROR: checkout: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	// Notify each seller once, with how many of the order's items are theirs.
	sellerItems := make(map[uuid.UUID]int)
	for _, item := range result.Items {
		sellerItems[item.SellerID]++
	}
	for sellerID, count := range sellerItems {
		h.hub.BroadcastToUser(sellerID, ws.OrderPlacedEvent(result.Order.ID, claims.ShopName, count))
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), result.Order.ID)
	if err != nil {
		log.Printf("ERROR: list items of new order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(result.Order, items))
}

func toOrderResponse(order database.Order, items []database.ListOrderItemsByOrderRow) orderResponse {
	resp := orderResponse{
		ID:          order.ID,
		TotalAmount: service.NumericToDecimal(order.TotalAmount).StringFixed(2),
		CreatedAt:   order.CreatedAt,
		Items:       make([]orderItemResponse, len(items)),
	}
	for i, item := range items {
		resp.Items[i] = toOrderItemResponse(item)
	}
	return resp
}

// List returns the orders the signed-in shop has placed, with nested items.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.store.ListOrdersByBuyer(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp = append(resp, toOrderResponse(order, items))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order. Visible to its buyer and to any seller with an item
// on it.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), order.ID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	allowed := order.BuyerID == claims.UserID
	for _, item := range items {
		if item.SellerID == claims.UserID {
			allowed = true
			break
		}
	}
	if !allowed {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// Sales returns the incoming order items for products the signed-in shop
// sells: the workbench the Accept/Reject/Ship/Deliver buttons act on.
func (h *OrderHandler) Sales(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	items, err := h.store.ListItemsBySeller(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]saleItemResponse, len(items))
	for i, item := range items {
		resp[i] = toSaleItemResponse(item)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateItemStatus handles PATCH /order-items/{id}. Only the seller of the
// item's product may move it, only along the lifecycle graph, and only one
// mutation per item may be in flight at a time.
func (h *OrderHandler) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order item ID"})
		return
	}

	var req updateItemStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}
	if !isValidItemStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	// One in-flight mutation per item id. The well-behaved storefront
	// disables the buttons while a request is outstanding; this lock covers
	// everyone else.
	acquired, err := h.locker.AcquireItemLock(r.Context(), itemID)
	if err != nil {
		log.Printf("ERROR: acquire item lock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if !acquired {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "another update for this item is in progress"})
		return
	}
	defer func() {
		if err := h.locker.ReleaseItemLock(context.WithoutCancel(r.Context()), itemID); err != nil {
			log.Printf("ERROR: release item lock: %v", err)
		}
	}()

	current, err := h.store.GetOrderItem(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order item not found"})
			return
		}
		log.Printf("ERROR: get order item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if current.SellerID != claims.UserID {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only the seller can update this item"})
		return
	}

	if err := validateStatusTransition(current.Status, req.Status); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateOrderItemStatus(r.Context(), database.UpdateOrderItemStatusParams{
		ID:         itemID,
		SellerID:   claims.UserID,
		Status:     req.Status,
		PrevStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status changed between our read and write
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order item changed, please retry"})
			return
		}
		log.Printf("ERROR: update order item status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Tell the buyer's open tabs about the move.
	order, err := h.store.GetOrder(r.Context(), updated.OrderID)
	if err != nil {
		log.Printf("ERROR: get order for item event: %v", err)
	} else {
		h.hub.BroadcastToUser(order.BuyerID, ws.OrderItemUpdatedEvent(updated.ID, updated.OrderID, updated.Status))
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     updated.ID.String(),
		"status": updated.Status,
	})
}
