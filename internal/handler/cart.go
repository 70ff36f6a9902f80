package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pasarlink/storefront/internal/database"
	"github.com/pasarlink/storefront/internal/middleware"
	"github.com/pasarlink/storefront/internal/service"
)

// CartStore defines the database methods needed by cart handlers.
// Satisfied by *database.Queries (and its WithTx variant).
type CartStore interface {
	ListCartLines(ctx context.Context, userID uuid.UUID) ([]database.ListCartLinesRow, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	ApplyCartDelta(ctx context.Context, arg database.ApplyCartDeltaParams) (int32, error)
	DeleteCartLine(ctx context.Context, arg database.DeleteCartLineParams) (uuid.UUID, error)
}

// NewCartStore creates a CartStore from a DBTX (pool or tx).
type NewCartStore func(db database.DBTX) CartStore

// CartHandler handles the wholesale cart endpoints. Mutations are expressed
// as signed quantity deltas; the response always carries the authoritative
// absolute quantity, which the storefront trusts over its optimistic guess.
type CartHandler struct {
	store    CartStore
	pool     service.TxBeginner
	newStore NewCartStore
}

func NewCartHandler(store CartStore, pool service.TxBeginner, newStore NewCartStore) *CartHandler {
	return &CartHandler{store: store, pool: pool, newStore: newStore}
}

// RegisterRoutes registers cart endpoints. Expected to be mounted inside the
// authenticated group.
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Post("/", h.Mutate)
	r.Delete("/{product_id}", h.Delete)
	r.Get("/validate", h.Validate)
}

// --- Request / Response types ---

type cartMutationRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"` // signed delta, never an absolute value
}

type cartMutationResponse struct {
	Quantity int32 `json:"quantity"`
}

type cartProductResponse struct {
	Name     string  `json:"name"`
	Price    string  `json:"price"`
	Image    *string `json:"image"`
	StockQty int32   `json:"stock_qty"`
}

type cartLineResponse struct {
	ProductID uuid.UUID           `json:"product_id"`
	Quantity  int32               `json:"quantity"`
	Product   cartProductResponse `json:"product"`
}

type cartValidationError struct {
	ProductName string `json:"product_name"`
	Available   int32  `json:"available"`
	Requested   int32  `json:"requested"`
}

type cartValidationResponse struct {
	Valid  bool                  `json:"valid"`
	Errors []cartValidationError `json:"errors,omitempty"`
}

func toCartLineResponse(row database.ListCartLinesRow) cartLineResponse {
	resp := cartLineResponse{
		ProductID: row.ProductID,
		Quantity:  row.Quantity,
		Product: cartProductResponse{
			Name:     row.Name,
			Price:    service.NumericToDecimal(row.Price).StringFixed(2),
			StockQty: row.StockQty,
		},
	}
	if row.ImageUrl.Valid {
		resp.Product.Image = &row.ImageUrl.String
	}
	return resp
}

// --- Handlers ---

// Get returns the full cart. The storefront re-fetches this on every page
// load; the client holds no durable cart state.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	lines, err := h.store.ListCartLines(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]cartLineResponse, len(lines))
	for i, line := range lines {
		resp[i] = toCartLineResponse(line)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Mutate applies a signed quantity delta to one cart line and returns the
// resulting absolute quantity. A result at or below zero removes the line and
// reports quantity 0. A positive delta that would exceed available stock is
// refused with 409 and leaves the line untouched.
func (h *CartHandler) Mutate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req cartMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Quantity == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity delta must be non-zero"})
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product_id"})
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin cart tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context()) //nolint:errcheck

	store := h.newStore(tx)

	product, err := store.GetProduct(r.Context(), productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product for cart: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if product.OwnerID == claims.UserID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot add your own product to the cart"})
		return
	}

	newQty, err := store.ApplyCartDelta(r.Context(), database.ApplyCartDeltaParams{
		UserID:    claims.UserID,
		ProductID: productID,
		Delta:     req.Quantity,
	})
	if err != nil {
		log.Printf("ERROR: apply cart delta: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	// Growing the line past available stock is refused; the deferred
	// rollback discards the delta.
	if req.Quantity > 0 && newQty > product.StockQty {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": fmt.Sprintf("only %d available", product.StockQty),
		})
		return
	}

	if newQty <= 0 {
		if _, err := store.DeleteCartLine(r.Context(), database.DeleteCartLineParams{
			UserID:    claims.UserID,
			ProductID: productID,
		}); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("ERROR: delete drained cart line: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		newQty = 0
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit cart tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, cartMutationResponse{Quantity: newQty})
}

// Delete removes a cart line outright.
func (h *CartHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	productID, err := uuid.Parse(chi.URLParam(r, "product_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.DeleteCartLine(r.Context(), database.DeleteCartLineParams{
		UserID:    claims.UserID,
		ProductID: productID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart line not found"})
			return
		}
		log.Printf("ERROR: delete cart line: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Validate checks the cart against current stock without mutating anything.
// The storefront calls this before allowing navigation to checkout.
func (h *CartHandler) Validate(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	lines, err := h.store.ListCartLines(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list cart for validation: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	shortfalls := service.ValidateLines(lines)
	if len(shortfalls) == 0 {
		writeJSON(w, http.StatusOK, cartValidationResponse{Valid: true})
		return
	}

	writeJSON(w, http.StatusOK, cartValidationResponse{
		Valid:  false,
		Errors: toValidationErrors(shortfalls),
	})
}

func toValidationErrors(shortfalls []service.Shortfall) []cartValidationError {
	out := make([]cartValidationError, len(shortfalls))
	for i, s := range shortfalls {
		out[i] = cartValidationError{
			ProductName: s.ProductName,
			Available:   s.Available,
			Requested:   s.Requested,
		}
	}
	return out
}
