package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/toolcrib/toolcrib/internal/ledger"
	"github.com/toolcrib/toolcrib/internal/model"
)

// TransactionsHandler handles the checkout/check-in ledger endpoints.
type TransactionsHandler struct {
	DB *sql.DB
}

type createTransactionRequest struct {
	ItemID   int64  `json:"item_id"`
	PersonID int64  `json:"person_id"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

type transactionResponse struct {
	Transaction *model.Transaction `json:"transaction"`
	Item        *model.Item        `json:"item"`
}

// Create handles POST /api/transactions: records a checkout or check-in and
// returns the new ledger entry together with the item's updated state.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Always authenticated; the route sits behind AuthMiddleware.
	claims := GetClaims(r.Context())

	txn, item, err := ledger.Record(r.Context(), h.DB, ledger.Request{
		ItemID:     req.ItemID,
		PersonID:   req.PersonID,
		RecordedBy: &claims.UserID,
		Type:       req.Type,
		Quantity:   req.Quantity,
		Notes:      req.Notes,
	})
	if err != nil {
		h.writeRecordError(w, err)
		return
	}

	slog.Info("transaction recorded", "user", claims.Username, "type", txn.Type,
		"item", txn.ItemCode, "person", txn.PersonName, "quantity", txn.Quantity)
	jsonResponse(w, http.StatusCreated, transactionResponse{Transaction: txn, Item: item})
}

// writeRecordError maps ledger rule violations to client errors. An
// insufficient-stock rejection reports how many units are available so the
// client can offer a corrected quantity.
func (h *TransactionsHandler) writeRecordError(w http.ResponseWriter, err error) {
	var stock *ledger.InsufficientStockError
	switch {
	case errors.As(err, &stock):
		jsonResponse(w, http.StatusConflict, map[string]any{
			"error":     stock.Error(),
			"available": stock.Available,
		})
	case errors.Is(err, ledger.ErrInvalidCheckIn):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrItemNotFound), errors.Is(err, ledger.ErrPersonNotFound):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("failed to record transaction", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to record transaction")
	}
}

// List handles GET /api/transactions. Supports ?item_id=, ?person_id=,
// ?open=true, and ?limit= filters.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	var f ledger.Filter
	q := r.URL.Query()

	if v := q.Get("item_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid item_id filter")
			return
		}
		f.ItemID = id
	}
	if v := q.Get("person_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			jsonError(w, http.StatusBadRequest, "invalid person_id filter")
			return
		}
		f.PersonID = id
	}
	f.OpenOnly = q.Get("open") == "true"
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = limit
	}

	txns, err := ledger.ListTransactions(r.Context(), h.DB, f)
	if err != nil {
		slog.Error("failed to list transactions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txns)
}

// Overdue handles GET /api/transactions/overdue: sweeps and returns all open
// checkouts past their due date.
func (h *TransactionsHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	txns, err := ledger.ListOverdue(r.Context(), h.DB, time.Now().UTC())
	if err != nil {
		slog.Error("failed to list overdue transactions", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list overdue transactions")
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txns)
}
