package storefront

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/pasarlink/storefront/internal/enum"
	"github.com/shopspring/decimal"
)

func boardWithItem(api *fakeAPI, toasts *toastRecorder, t *testing.T, itemID uuid.UUID, status string) *OrderBoard {
	t.Helper()
	orders := []Order{{
		ID:          uuid.New(),
		TotalAmount: decimal.NewFromInt(68000),
		Items: []OrderItem{{
			ID:          itemID,
			ProductID:   uuid.New(),
			ProductName: "Beras 5kg",
			Qty:         1,
			UnitPrice:   decimal.NewFromInt(68000),
			Status:      status,
		}},
	}}
	if api.fetchOrdersFn == nil {
		api.fetchOrdersFn = func(context.Context) ([]Order, error) { return orders, nil }
	}
	b := NewOrderBoard(api, toasts)
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return b
}

// --- AllowedActions tests ---

func TestAllowedActions(t *testing.T) {
	cases := []struct {
		status string
		want   []string
	}{
		{enum.ItemStatusPending, []string{enum.ItemStatusAccepted, enum.ItemStatusRejected}},
		{enum.ItemStatusAccepted, []string{enum.ItemStatusShipped, enum.ItemStatusRejected}},
		{enum.ItemStatusShipped, []string{enum.ItemStatusDelivered}},
		{enum.ItemStatusDelivered, nil},
		{enum.ItemStatusRejected, nil},
	}
	for _, tc := range cases {
		if got := AllowedActions(tc.status); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("AllowedActions(%s): got %v, want %v", tc.status, got, tc.want)
		}
	}
}

// --- Transition tests ---

func TestTransition_ReloadsAfterSuccess(t *testing.T) {
	itemID := uuid.New()
	fetchCalls := 0
	api := &fakeAPI{
		updateFn: func(_ context.Context, gotID uuid.UUID, status string) error {
			if gotID != itemID {
				t.Errorf("item id: got %v, want %v", gotID, itemID)
			}
			if status != enum.ItemStatusAccepted {
				t.Errorf("status: got %v, want ACCEPTED", status)
			}
			return nil
		},
	}
	reloaded := []Order{{ID: uuid.New(), TotalAmount: decimal.NewFromInt(68000), Items: []OrderItem{{
		ID: itemID, Status: enum.ItemStatusAccepted,
	}}}}
	api.fetchOrdersFn = func(context.Context) ([]Order, error) {
		fetchCalls++
		if fetchCalls == 1 {
			return []Order{{ID: uuid.New(), Items: []OrderItem{{ID: itemID, Status: enum.ItemStatusPending}}}}, nil
		}
		return reloaded, nil
	}

	b := NewOrderBoard(api, &toastRecorder{})
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := b.Transition(context.Background(), itemID, enum.ItemStatusAccepted); err != nil {
		t.Fatalf("transition: %v", err)
	}

	// No local prediction: the board shows whatever the reload returned.
	if fetchCalls != 2 {
		t.Errorf("fetch calls: got %d, want 2 (initial load + reload)", fetchCalls)
	}
	orders := b.Orders()
	if len(orders) != 1 || orders[0].Items[0].Status != enum.ItemStatusAccepted {
		t.Errorf("expected reloaded ACCEPTED item, got %+v", orders)
	}
}

func TestTransition_WorkbenchReloadsSales(t *testing.T) {
	itemID := uuid.New()
	salesCalls := 0
	api := &fakeAPI{
		updateFn: func(context.Context, uuid.UUID, string) error { return nil },
		// FetchOrders stays unset: the order list was never shown, so the
		// reload must not touch it.
		fetchSalesFn: func(context.Context) ([]SaleItem, error) {
			salesCalls++
			status := enum.ItemStatusPending
			if salesCalls > 1 {
				status = enum.ItemStatusAccepted
			}
			return []SaleItem{{
				OrderItem: OrderItem{ID: itemID, ProductName: "Beras 5kg", Qty: 2, Status: status},
				BuyerShop: "Warung Umi",
			}}, nil
		},
	}
	b := NewOrderBoard(api, &toastRecorder{})
	if err := b.LoadSales(context.Background()); err != nil {
		t.Fatalf("load sales: %v", err)
	}

	if err := b.Transition(context.Background(), itemID, enum.ItemStatusAccepted); err != nil {
		t.Fatalf("transition: %v", err)
	}

	if salesCalls != 2 {
		t.Errorf("sales fetches: got %d, want 2 (initial load + reload)", salesCalls)
	}
	sales := b.Sales()
	if len(sales) != 1 || sales[0].Status != enum.ItemStatusAccepted {
		t.Errorf("expected reloaded ACCEPTED item, got %+v", sales)
	}
}

func TestTransition_TerminalStateRefusedLocally(t *testing.T) {
	for _, terminal := range []string{enum.ItemStatusDelivered, enum.ItemStatusRejected} {
		t.Run(terminal, func(t *testing.T) {
			itemID := uuid.New()
			api := &fakeAPI{} // UpdateItemStatus unset: any call panics
			toasts := &toastRecorder{}
			b := boardWithItem(api, toasts, t, itemID, terminal)

			if err := b.Transition(context.Background(), itemID, enum.ItemStatusAccepted); err == nil {
				t.Fatal("expected error")
			}
			if api.updateCalls != 0 {
				t.Errorf("expected no network call, got %d", api.updateCalls)
			}
			if len(toasts.messages) != 1 {
				t.Errorf("expected 1 toast, got %v", toasts.messages)
			}
		})
	}
}

func TestTransition_InvalidEdgeRefusedLocally(t *testing.T) {
	itemID := uuid.New()
	api := &fakeAPI{}
	toasts := &toastRecorder{}
	b := boardWithItem(api, toasts, t, itemID, enum.ItemStatusPending)

	if err := b.Transition(context.Background(), itemID, enum.ItemStatusDelivered); err == nil {
		t.Fatal("expected error")
	}
	if api.updateCalls != 0 {
		t.Errorf("expected no network call, got %d", api.updateCalls)
	}
}

func TestTransition_FailureLeavesStateAndToasts(t *testing.T) {
	itemID := uuid.New()
	fetchCalls := 0
	api := &fakeAPI{
		updateFn: func(context.Context, uuid.UUID, string) error {
			return &APIError{Status: 409, Message: "order item changed, please retry"}
		},
	}
	api.fetchOrdersFn = func(context.Context) ([]Order, error) {
		fetchCalls++
		return []Order{{ID: uuid.New(), Items: []OrderItem{{ID: itemID, Status: enum.ItemStatusPending}}}}, nil
	}
	toasts := &toastRecorder{}
	b := NewOrderBoard(api, toasts)
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := b.Transition(context.Background(), itemID, enum.ItemStatusAccepted); err == nil {
		t.Fatal("expected error")
	}

	// Nothing was predicted locally, so nothing needs rolling back; the
	// board keeps the loaded state and does not reload.
	if fetchCalls != 1 {
		t.Errorf("fetch calls: got %d, want 1", fetchCalls)
	}
	if got := b.Orders()[0].Items[0].Status; got != enum.ItemStatusPending {
		t.Errorf("status: got %v, want PENDING", got)
	}
	if toasts.last() != "order item changed, please retry" {
		t.Errorf("toast: got %q", toasts.last())
	}
}

func TestTransition_SingleInFlightPerItem(t *testing.T) {
	itemID := uuid.New()
	started := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		updateFn: func(context.Context, uuid.UUID, string) error {
			close(started)
			<-release
			return nil
		},
	}
	b := boardWithItem(api, &toastRecorder{}, t, itemID, enum.ItemStatusPending)

	done := make(chan error, 1)
	go func() {
		done <- b.Transition(context.Background(), itemID, enum.ItemStatusAccepted)
	}()

	<-started
	if !b.InFlight(itemID) {
		t.Error("expected item to be marked in flight")
	}
	if err := b.Transition(context.Background(), itemID, enum.ItemStatusRejected); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for overlapping transition, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first transition: %v", err)
	}
	if b.InFlight(itemID) {
		t.Error("expected in-flight flag cleared")
	}
	if api.updateCalls != 1 {
		t.Errorf("expected 1 network call, got %d", api.updateCalls)
	}
}

func TestTransition_UnknownItem(t *testing.T) {
	api := &fakeAPI{}
	b := boardWithItem(api, &toastRecorder{}, t, uuid.New(), enum.ItemStatusPending)

	if err := b.Transition(context.Background(), uuid.New(), enum.ItemStatusAccepted); err == nil {
		t.Fatal("expected error for item not on the board")
	}
	if api.updateCalls != 0 {
		t.Errorf("expected no network call, got %d", api.updateCalls)
	}
}

// --- Detail load tests ---

func TestLoadOrder_ReleasesContextWhenDone(t *testing.T) {
	id := uuid.New()
	var loadCtx context.Context
	api := &fakeAPI{
		fetchOrderFn: func(ctx context.Context, id uuid.UUID) (Order, error) {
			loadCtx = ctx
			return Order{ID: id}, nil
		},
	}
	b := NewOrderBoard(api, &toastRecorder{})

	if _, err := b.LoadOrder(context.Background(), id); err != nil {
		t.Fatalf("load order: %v", err)
	}

	// The load's context must not linger once the fetch settled.
	if !errors.Is(loadCtx.Err(), context.Canceled) {
		t.Errorf("load context: got %v, want context.Canceled", loadCtx.Err())
	}
}

func TestLoadOrder_AbortOnNavigate(t *testing.T) {
	slowID := uuid.New()
	fastID := uuid.New()
	slowStarted := make(chan struct{})

	api := &fakeAPI{
		fetchOrderFn: func(ctx context.Context, id uuid.UUID) (Order, error) {
			if id == slowID {
				close(slowStarted)
				<-ctx.Done() // superseded by the next navigation
				return Order{}, ctx.Err()
			}
			return Order{ID: id}, nil
		},
	}
	b := NewOrderBoard(api, &toastRecorder{})

	slowResult := make(chan error, 1)
	go func() {
		_, err := b.LoadOrder(context.Background(), slowID)
		slowResult <- err
	}()

	<-slowStarted
	order, err := b.LoadOrder(context.Background(), fastID)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if order.ID != fastID {
		t.Errorf("order: got %v, want %v", order.ID, fastID)
	}

	if err := <-slowResult; !errors.Is(err, context.Canceled) {
		t.Errorf("superseded load: got %v, want context.Canceled", err)
	}
}
