package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/toolcrib/toolcrib/internal/imaging"
	"github.com/toolcrib/toolcrib/internal/ledger"
	"github.com/toolcrib/toolcrib/internal/model"
	"github.com/toolcrib/toolcrib/internal/store"
)

// ItemsHandler handles equipment catalog endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

type createItemRequest struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	CategoryID    *int64 `json:"category_id"`
	TotalQuantity int    `json:"total_quantity"`
	MinStockLevel int    `json:"min_stock_level"`
}

type updateItemRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	CategoryID    *int64 `json:"category_id"`
	MinStockLevel int    `json:"min_stock_level"`
}

type setCapacityRequest struct {
	TotalQuantity int `json:"total_quantity"`
}

// List handles GET /api/items. Supports ?status= filtering; every row is
// annotated with its current holder.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != model.ItemStatusAvailable && status != model.ItemStatusOutOfStock {
		jsonError(w, http.StatusBadRequest, "invalid status filter")
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, status)
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}

	if err := ledger.AttachHolders(r.Context(), h.DB, items); err != nil {
		slog.Error("failed to resolve holders", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.TotalQuantity < 0 || req.MinStockLevel < 0 {
		jsonError(w, http.StatusBadRequest, "quantities must not be negative")
		return
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = store.NewItemCode()
	}

	if existing, err := store.GetItemByCode(r.Context(), h.DB, code); err != nil {
		slog.Error("failed to check item code", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	} else if existing != nil {
		jsonError(w, http.StatusConflict, "item code already exists")
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, code, req.Name, req.Description,
		req.CategoryID, req.TotalQuantity, req.MinStockLevel)
	if err != nil {
		slog.Error("failed to create item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item created", "user", claims.Username, "item", item.Code, "quantity", item.TotalQuantity)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}

	items := []model.Item{*item}
	if err := ledger.AttachHolders(r.Context(), h.DB, items); err != nil {
		slog.Error("failed to resolve holder", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	jsonResponse(w, http.StatusOK, items[0])
}

// Update handles PUT /api/items/{id}. Capacity is changed separately.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.MinStockLevel < 0 {
		jsonError(w, http.StatusBadRequest, "min stock level must not be negative")
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, item.ID, req.Name, req.Description,
		req.CategoryID, req.MinStockLevel); err != nil {
		slog.Error("failed to update item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// SetCapacity handles PUT /api/items/{id}/capacity. Availability is
// re-derived from open checkouts against the new total.
func (h *ItemsHandler) SetCapacity(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}

	var req setCapacityRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TotalQuantity < 0 {
		jsonError(w, http.StatusBadRequest, "total quantity must not be negative")
		return
	}

	if err := store.SetItemCapacity(r.Context(), h.DB, item.ID, req.TotalQuantity); err != nil {
		slog.Error("failed to set item capacity", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to set item capacity")
		return
	}

	updated, err := store.GetItem(r.Context(), h.DB, item.ID)
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to set item capacity")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item capacity changed", "user", claims.Username, "item", updated.Code,
		"total", updated.TotalQuantity, "available", updated.AvailableQuantity)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/items/{id}. Items with open checkouts cannot
// be deleted.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, item.ID); err != nil {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item deleted", "user", claims.Username, "item", item.Code)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadImage handles PUT /api/items/{id}/image.
func (h *ItemsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}

	result, err := imaging.Process(http.MaxBytesReader(w, r.Body, 10<<20))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, item.ID, result.Data, result.MIME); err != nil {
		slog.Error("failed to store item image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image.
func (h *ItemsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}

	data, mime, err := store.GetItemImage(r.Context(), h.DB, item.ID)
	if err != nil {
		slog.Error("failed to get item image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "item has no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetHistory handles GET /api/items/{id}/history: the item's full ledger,
// newest first.
func (h *ItemsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	item, ok := h.itemFromPath(w, r)
	if !ok {
		return
	}

	txns, err := ledger.ListTransactions(r.Context(), h.DB, ledger.Filter{ItemID: item.ID})
	if err != nil {
		slog.Error("failed to list item history", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list history")
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txns)
}

// itemFromPath parses {id}, loads the item, and writes the error response
// itself when the item cannot be served.
func (h *ItemsHandler) itemFromPath(w http.ResponseWriter, r *http.Request) (*model.Item, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return nil, false
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return nil, false
	}
	return item, true
}
