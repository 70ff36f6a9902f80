package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pasarlink/storefront/internal/database"
	"github.com/pasarlink/storefront/internal/enum"
	"github.com/pasarlink/storefront/internal/handler"
	"github.com/pasarlink/storefront/internal/service"
	"github.com/pasarlink/storefront/internal/ws"
)

// --- Mock store ---

type mockOrderStore struct {
	orders map[uuid.UUID]database.Order
	items  map[uuid.UUID]database.OrderItem
	names  map[uuid.UUID]string // product ID -> name
	shops  map[uuid.UUID]string // buyer ID -> shop name

	updateFn func(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		orders: make(map[uuid.UUID]database.Order),
		items:  make(map[uuid.UUID]database.OrderItem),
		names:  make(map[uuid.UUID]string),
		shops:  make(map[uuid.UUID]string),
	}
}

func (m *mockOrderStore) ListOrdersByBuyer(_ context.Context, buyerID uuid.UUID) ([]database.Order, error) {
	var result []database.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			result = append(result, o)
		}
	}
	return result, nil
}

func (m *mockOrderStore) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) ListOrderItemsByOrder(_ context.Context, orderID uuid.UUID) ([]database.ListOrderItemsByOrderRow, error) {
	var result []database.ListOrderItemsByOrderRow
	for _, item := range m.items {
		if item.OrderID == orderID {
			result = append(result, database.ListOrderItemsByOrderRow{
				OrderItem:   item,
				ProductName: m.names[item.ProductID],
			})
		}
	}
	return result, nil
}

func (m *mockOrderStore) ListItemsBySeller(_ context.Context, sellerID uuid.UUID) ([]database.ListItemsBySellerRow, error) {
	var result []database.ListItemsBySellerRow
	for _, item := range m.items {
		if item.SellerID == sellerID {
			order := m.orders[item.OrderID]
			result = append(result, database.ListItemsBySellerRow{
				OrderItem:   item,
				ProductName: m.names[item.ProductID],
				BuyerShop:   m.shops[order.BuyerID],
			})
		}
	}
	return result, nil
}

func (m *mockOrderStore) GetOrderItem(_ context.Context, id uuid.UUID) (database.OrderItem, error) {
	item, ok := m.items[id]
	if !ok {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *mockOrderStore) UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, arg)
	}
	item, ok := m.items[arg.ID]
	if !ok || item.SellerID != arg.SellerID || item.Status != arg.PrevStatus {
		return database.OrderItem{}, pgx.ErrNoRows
	}
	item.Status = arg.Status
	m.items[item.ID] = item
	return item, nil
}

// --- Checkout service mock ---

type mockCheckoutSvc struct {
	checkoutFn func(ctx context.Context, buyerID uuid.UUID) (*service.CheckoutResult, error)
}

func (m *mockCheckoutSvc) Checkout(ctx context.Context, buyerID uuid.UUID) (*service.CheckoutResult, error) {
	return m.checkoutFn(ctx, buyerID)
}

// --- Locker and hub mocks ---

type fakeLocker struct {
	held     map[uuid.UUID]bool
	acquires int
	releases int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[uuid.UUID]bool)}
}

func (l *fakeLocker) AcquireItemLock(_ context.Context, itemID uuid.UUID) (bool, error) {
	if l.held[itemID] {
		return false, nil
	}
	l.held[itemID] = true
	l.acquires++
	return true, nil
}

func (l *fakeLocker) ReleaseItemLock(_ context.Context, itemID uuid.UUID) error {
	delete(l.held, itemID)
	l.releases++
	return nil
}

type broadcastRecord struct {
	userID uuid.UUID
	event  ws.Event
}

type fakeHub struct {
	sent []broadcastRecord
}

func (h *fakeHub) BroadcastToUser(userID uuid.UUID, event ws.Event) {
	h.sent = append(h.sent, broadcastRecord{userID: userID, event: event})
}

// --- Helpers ---

type orderDeps struct {
	store  *mockOrderStore
	svc    *mockCheckoutSvc
	locker *fakeLocker
	hub    *fakeHub
}

func newOrderDeps() *orderDeps {
	return &orderDeps{
		store:  newMockOrderStore(),
		svc:    &mockCheckoutSvc{},
		locker: newFakeLocker(),
		hub:    &fakeHub{},
	}
}

func setupOrderRouter(userID uuid.UUID, shopName string, deps *orderDeps) *chi.Mux {
	h := handler.NewOrderHandler(deps.svc, deps.store, deps.locker, deps.hub)
	return authedRouter(sellerClaims(userID, shopName), h.RegisterRoutes)
}

func (m *mockOrderStore) seedOrder(buyerID uuid.UUID, total string, t *testing.T) database.Order {
	t.Helper()
	o := database.Order{
		ID:          uuid.New(),
		BuyerID:     buyerID,
		TotalAmount: mustNumeric(t, total),
	}
	m.orders[o.ID] = o
	return o
}

func (m *mockOrderStore) seedItem(t *testing.T, orderID, sellerID uuid.UUID, name, price, status string, qty int32) database.OrderItem {
	t.Helper()
	item := database.OrderItem{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: uuid.New(),
		SellerID:  sellerID,
		Quantity:  qty,
		UnitPrice: mustNumeric(t, price),
		Status:    status,
	}
	m.items[item.ID] = item
	m.names[item.ProductID] = name
	return item
}

// --- List tests ---

func TestListOrders_NestedItems(t *testing.T) {
	deps := newOrderDeps()
	buyerID := uuid.New()
	order := deps.store.seedOrder(buyerID, "103000", t)
	deps.store.seedItem(t, order.ID, uuid.New(), "Beras 5kg", "68000", enum.ItemStatusPending, 1)
	deps.store.seedItem(t, order.ID, uuid.New(), "Minyak 1L", "17500", enum.ItemStatusAccepted, 2)

	router := setupOrderRouter(buyerID, "Warung Umi", deps)
	rr := doRequest(t, router, "GET", "/orders", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeListResponse(t, rr)
	if len(resp) != 1 {
		t.Fatalf("expected 1 order, got %d", len(resp))
	}
	if resp[0]["total_amount"] != "103000.00" {
		t.Errorf("total_amount: got %v, want 103000.00", resp[0]["total_amount"])
	}

	items, ok := resp[0]["items"].([]interface{})
	if !ok || len(items) != 2 {
		t.Fatalf("expected 2 nested items, got %v", resp[0]["items"])
	}
	first := items[0].(map[string]interface{})
	for _, field := range []string{"id", "product_id", "product_name", "qty", "unit_price", "status"} {
		if _, exists := first[field]; !exists {
			t.Errorf("item missing field %q", field)
		}
	}
}

func TestListOrders_OnlyOwn(t *testing.T) {
	deps := newOrderDeps()
	buyerID := uuid.New()
	deps.store.seedOrder(buyerID, "10000", t)
	deps.store.seedOrder(uuid.New(), "99999", t)

	router := setupOrderRouter(buyerID, "Warung Umi", deps)
	rr := doRequest(t, router, "GET", "/orders", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	resp := decodeListResponse(t, rr)
	if len(resp) != 1 {
		t.Errorf("expected 1 order, got %d", len(resp))
	}
}

// --- Get tests ---

func TestGetOrder_AsBuyer(t *testing.T) {
	deps := newOrderDeps()
	buyerID := uuid.New()
	order := deps.store.seedOrder(buyerID, "68000", t)
	deps.store.seedItem(t, order.ID, uuid.New(), "Beras 5kg", "68000", enum.ItemStatusPending, 1)

	router := setupOrderRouter(buyerID, "Warung Umi", deps)
	rr := doRequest(t, router, "GET", "/orders/"+order.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestGetOrder_AsSeller(t *testing.T) {
	deps := newOrderDeps()
	sellerID := uuid.New()
	order := deps.store.seedOrder(uuid.New(), "68000", t)
	deps.store.seedItem(t, order.ID, sellerID, "Beras 5kg", "68000", enum.ItemStatusPending, 1)

	router := setupOrderRouter(sellerID, "Grosir Jaya", deps)
	rr := doRequest(t, router, "GET", "/orders/"+order.ID.String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestGetOrder_Stranger(t *testing.T) {
	deps := newOrderDeps()
	order := deps.store.seedOrder(uuid.New(), "68000", t)
	deps.store.seedItem(t, order.ID, uuid.New(), "Beras 5kg", "68000", enum.ItemStatusPending, 1)

	router := setupOrderRouter(uuid.New(), "Unrelated Shop", deps)
	rr := doRequest(t, router, "GET", "/orders/"+order.ID.String(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	deps := newOrderDeps()
	router := setupOrderRouter(uuid.New(), "Warung Umi", deps)

	rr := doRequest(t, router, "GET", "/orders/"+uuid.NewString(), nil)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Sales tests ---

func TestSales_ReturnsSellerItems(t *testing.T) {
	deps := newOrderDeps()
	sellerID := uuid.New()
	buyerID := uuid.New()
	deps.store.shops[buyerID] = "Warung Umi"

	order := deps.store.seedOrder(buyerID, "68000", t)
	deps.store.seedItem(t, order.ID, sellerID, "Beras 5kg", "68000", enum.ItemStatusPending, 1)
	deps.store.seedItem(t, order.ID, uuid.New(), "Minyak 1L", "17500", enum.ItemStatusPending, 2)

	router := setupOrderRouter(sellerID, "Grosir Jaya", deps)
	rr := doRequest(t, router, "GET", "/sales", nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeListResponse(t, rr)
	if len(resp) != 1 {
		t.Fatalf("expected 1 sale item, got %d", len(resp))
	}
	if resp[0]["product_name"] != "Beras 5kg" {
		t.Errorf("product_name: got %v, want Beras 5kg", resp[0]["product_name"])
	}
	if resp[0]["buyer_shop"] != "Warung Umi" {
		t.Errorf("buyer_shop: got %v, want Warung Umi", resp[0]["buyer_shop"])
	}
	if resp[0]["status"] != "PENDING" {
		t.Errorf("status: got %v, want PENDING", resp[0]["status"])
	}
}

// --- Checkout tests ---

func TestCheckout_Success(t *testing.T) {
	deps := newOrderDeps()
	buyerID := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()

	order := deps.store.seedOrder(buyerID, "103000", t)
	itemA1 := deps.store.seedItem(t, order.ID, sellerA, "Beras 5kg", "68000", enum.ItemStatusPending, 1)
	itemA2 := deps.store.seedItem(t, order.ID, sellerA, "Gula 1kg", "14000", enum.ItemStatusPending, 1)
	itemB := deps.store.seedItem(t, order.ID, sellerB, "Minyak 1L", "17500", enum.ItemStatusPending, 1)

	deps.svc.checkoutFn = func(ctx context.Context, gotBuyer uuid.UUID) (*service.CheckoutResult, error) {
		if gotBuyer != buyerID {
			t.Errorf("checkout buyer: got %v, want %v", gotBuyer, buyerID)
		}
		return &service.CheckoutResult{
			Order: order,
			Items: []database.OrderItem{itemA1, itemA2, itemB},
		}, nil
	}

	router := setupOrderRouter(buyerID, "Warung Umi", deps)
	rr := doRequest(t, router, "POST", "/checkout", nil)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	items, ok := resp["items"].([]interface{})
	if !ok || len(items) != 3 {
		t.Fatalf("expected 3 items in response, got %v", resp["items"])
	}

	// One event per distinct seller, with their item count.
	if len(deps.hub.sent) != 2 {
		t.Fatalf("expected 2 broadcasts, got %d", len(deps.hub.sent))
	}
	counts := make(map[uuid.UUID]bool)
	for _, rec := range deps.hub.sent {
		if rec.event.Type != enum.EventOrderPlaced {
			t.Errorf("event type: got %v, want %v", rec.event.Type, enum.EventOrderPlaced)
		}
		counts[rec.userID] = true
	}
	if !counts[sellerA] || !counts[sellerB] {
		t.Errorf("expected broadcasts to both sellers, got %v", counts)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	deps := newOrderDeps()
	deps.svc.checkoutFn = func(ctx context.Context, buyerID uuid.UUID) (*service.CheckoutResult, error) {
		return nil, service.ErrEmptyCart
	}

	router := setupOrderRouter(uuid.New(), "Warung Umi", deps)
	rr := doRequest(t, router, "POST", "/checkout", nil)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if len(deps.hub.sent) != 0 {
		t.Errorf("expected no broadcasts, got %d", len(deps.hub.sent))
	}
}

func TestCheckout_Shortfall(t *testing.T) {
	deps := newOrderDeps()
	deps.svc.checkoutFn = func(ctx context.Context, buyerID uuid.UUID) (*service.CheckoutResult, error) {
		return nil, &service.ShortfallError{Shortfalls: []service.Shortfall{
			{ProductName: "Beras 5kg", Available: 3, Requested: 5},
		}}
	}

	router := setupOrderRouter(uuid.New(), "Warung Umi", deps)
	rr := doRequest(t, router, "POST", "/checkout", nil)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["valid"] != false {
		t.Errorf("valid: got %v, want false", resp["valid"])
	}
	errs, ok := resp["errors"].([]interface{})
	if !ok || len(errs) != 1 {
		t.Fatalf("expected 1 validation error, got %v", resp["errors"])
	}
	e := errs[0].(map[string]interface{})
	if e["product_name"] != "Beras 5kg" {
		t.Errorf("product_name: got %v, want Beras 5kg", e["product_name"])
	}
	if e["available"] != float64(3) || e["requested"] != float64(5) {
		t.Errorf("shortfall numbers: got available=%v requested=%v", e["available"], e["requested"])
	}
}

// --- UpdateItemStatus tests ---

func TestUpdateItemStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to string
		wantCode int
	}{
		{enum.ItemStatusPending, enum.ItemStatusAccepted, http.StatusOK},
		{enum.ItemStatusPending, enum.ItemStatusRejected, http.StatusOK},
		{enum.ItemStatusAccepted, enum.ItemStatusShipped, http.StatusOK},
		{enum.ItemStatusAccepted, enum.ItemStatusRejected, http.StatusOK},
		{enum.ItemStatusShipped, enum.ItemStatusDelivered, http.StatusOK},

		{enum.ItemStatusPending, enum.ItemStatusShipped, http.StatusConflict},
		{enum.ItemStatusPending, enum.ItemStatusDelivered, http.StatusConflict},
		{enum.ItemStatusAccepted, enum.ItemStatusDelivered, http.StatusConflict},
		{enum.ItemStatusAccepted, enum.ItemStatusPending, http.StatusConflict},
		{enum.ItemStatusShipped, enum.ItemStatusRejected, http.StatusConflict},
		{enum.ItemStatusShipped, enum.ItemStatusAccepted, http.StatusConflict},
		{enum.ItemStatusDelivered, enum.ItemStatusShipped, http.StatusConflict},
		{enum.ItemStatusDelivered, enum.ItemStatusRejected, http.StatusConflict},
		{enum.ItemStatusRejected, enum.ItemStatusAccepted, http.StatusConflict},
		{enum.ItemStatusRejected, enum.ItemStatusPending, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.from+"_to_"+tc.to, func(t *testing.T) {
			deps := newOrderDeps()
			sellerID := uuid.New()
			order := deps.store.seedOrder(uuid.New(), "68000", t)
			item := deps.store.seedItem(t, order.ID, sellerID, "Beras 5kg", "68000", tc.from, 1)

			router := setupOrderRouter(sellerID, "Grosir Jaya", deps)
			rr := doRequest(t, router, "PATCH", "/order-items/"+item.ID.String(), map[string]string{
				"status": tc.to,
			})

			if rr.Code != tc.wantCode {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tc.wantCode, rr.Body.String())
			}

			got := deps.store.items[item.ID].Status
			if tc.wantCode == http.StatusOK && got != tc.to {
				t.Errorf("stored status: got %v, want %v", got, tc.to)
			}
			if tc.wantCode == http.StatusConflict && got != tc.from {
				t.Errorf("stored status: got %v, want %v (unchanged)", got, tc.from)
			}
		})
	}
}

func TestUpdateItemStatus_InvalidStatus(t *testing.T) {
	deps := newOrderDeps()
	sellerID := uuid.New()
	order := deps.store.seedOrder(uuid.New(), "68000", t)
	item := deps.store.seedItem(t, order.ID, sellerID, "Beras 5kg", "68000", enum.ItemStatusPending, 1)

	router := setupOrderRouter(sellerID, "Grosir Jaya", deps)
	rr := doRequest(t, router, "PATCH", "/order-items/"+item.ID.String(), map[string]string{
		"status": "CANCELLED",
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestUpdateItemStatus_NotSeller(t *testing.T) {
	deps := newOrderDeps()
	order := deps.store.seedOrder(uuid.New(), "68000", t)
	item := deps.store.seedItem(t, order.ID, uuid.New(), "Beras 5kg", "68000", enum.ItemStatusPending, 1)

	router := setupOrderRouter(uuid.New(), "Not The Seller", deps)
	rr := doRequest(t, router, "PATCH", "/order-items/"+item.ID.String(), map[string]string{
		"status": enum.ItemStatusAccepted,
	})

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestUpdateItemStatus_NotFound(t *testing.T) {
	deps := newOrderDeps()
	router := setupOrderRouter(uuid.New(), "Grosir Jaya", deps)

	rr := doRequest(t, router, "PATCH", "/order-items/"+uuid.NewString(), map[string]string{
		"status": enum.ItemStatusAccepted,
	})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUpdateItemStatus_LockBusy(t *testing.T) {
	deps := newOrderDeps()
	sellerID := uuid.New()
	order := deps.store.seedOrder(uuid.New(), "68000", t)
	item := deps.store.seedItem(t, order.ID, sellerID, "Beras 5kg", "68000", enum.ItemStatusPending, 1)

	// Someone else already holds the item lock.
	deps.locker.held[item.ID] = true

	router := setupOrderRouter(sellerID, "Grosir Jaya", deps)
	rr := doRequest(t, router, "PATCH", "/order-items/"+item.ID.String(), map[string]string{
		"status": enum.ItemStatusAccepted,
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
	if deps.store.items[item.ID].Status != enum.ItemStatusPending {
		t.Error("expected item to stay PENDING while locked")
	}
	if deps.locker.releases != 0 {
		t.Error("a refused acquire must not release the other holder's lock")
	}
}

func TestUpdateItemStatus_ReleasesLock(t *testing.T) {
	deps := newOrderDeps()
	sellerID := uuid.New()
	order := deps.store.seedOrder(uuid.New(), "68000", t)
	item := deps.store.seedItem(t, order.ID, sellerID, "Beras 5kg", "68000", enum.ItemStatusPending, 1)

	router := setupOrderRouter(sellerID, "Grosir Jaya", deps)
	rr := doRequest(t, router, "PATCH", "/order-items/"+item.ID.String(), map[string]string{
		"status": enum.ItemStatusAccepted,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if len(deps.locker.held) != 0 {
		t.Error("expected lock to be released after the update")
	}
	if deps.locker.acquires != 1 || deps.locker.releases != 1 {
		t.Errorf("lock calls: got %d acquires, %d releases; want 1 and 1", deps.locker.acquires, deps.locker.releases)
	}
}

func TestUpdateItemStatus_ConcurrentChange(t *testing.T) {
	deps := newOrderDeps()
	sellerID := uuid.New()
	order := deps.store.seedOrder(uuid.New(), "68000", t)
	item := deps.store.seedItem(t, order.ID, sellerID, "Beras 5kg", "68000", enum.ItemStatusPending, 1)

	// The compare-and-set misses: the row moved between read and write.
	deps.store.updateFn = func(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error) {
		return database.OrderItem{}, pgx.ErrNoRows
	}

	router := setupOrderRouter(sellerID, "Grosir Jaya", deps)
	rr := doRequest(t, router, "PATCH", "/order-items/"+item.ID.String(), map[string]string{
		"status": enum.ItemStatusAccepted,
	})

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
	if len(deps.locker.held) != 0 {
		t.Error("expected lock to be released after the refused update")
	}
}

func TestUpdateItemStatus_NotifiesBuyer(t *testing.T) {
	deps := newOrderDeps()
	sellerID := uuid.New()
	buyerID := uuid.New()
	order := deps.store.seedOrder(buyerID, "68000", t)
	item := deps.store.seedItem(t, order.ID, sellerID, "Beras 5kg", "68000", enum.ItemStatusPending, 1)

	router := setupOrderRouter(sellerID, "Grosir Jaya", deps)
	rr := doRequest(t, router, "PATCH", "/order-items/"+item.ID.String(), map[string]string{
		"status": enum.ItemStatusAccepted,
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if len(deps.hub.sent) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(deps.hub.sent))
	}
	rec := deps.hub.sent[0]
	if rec.userID != buyerID {
		t.Errorf("broadcast target: got %v, want buyer %v", rec.userID, buyerID)
	}
	if rec.event.Type != enum.EventOrderItemUpdated {
		t.Errorf("event type: got %v, want %v", rec.event.Type, enum.EventOrderItemUpdated)
	}
}
