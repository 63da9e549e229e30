package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/toolcrib/toolcrib/internal/ledger"
	"github.com/toolcrib/toolcrib/internal/model"
	"github.com/toolcrib/toolcrib/internal/store"
)

// PersonsHandler handles the person directory endpoints.
type PersonsHandler struct {
	DB *sql.DB
}

type personRequest struct {
	Name       string `json:"name"`
	Division   string `json:"division"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
}

// List handles GET /api/persons. Supports ?division= filtering.
func (h *PersonsHandler) List(w http.ResponseWriter, r *http.Request) {
	persons, err := store.ListPersons(r.Context(), h.DB, r.URL.Query().Get("division"))
	if err != nil {
		slog.Error("failed to list persons", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list persons")
		return
	}
	if persons == nil {
		persons = []model.Person{}
	}
	jsonResponse(w, http.StatusOK, persons)
}

// Create handles POST /api/persons.
func (h *PersonsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	person, err := store.CreatePerson(r.Context(), h.DB, req.Name, req.Division,
		req.Department, req.Email, req.Phone)
	if err != nil {
		slog.Error("failed to create person", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create person")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("person created", "user", claims.Username, "person", person.Name)
	jsonResponse(w, http.StatusCreated, person)
}

// Get handles GET /api/persons/{id}.
func (h *PersonsHandler) Get(w http.ResponseWriter, r *http.Request) {
	person, ok := h.personFromPath(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, person)
}

// Update handles PUT /api/persons/{id}.
func (h *PersonsHandler) Update(w http.ResponseWriter, r *http.Request) {
	person, ok := h.personFromPath(w, r)
	if !ok {
		return
	}

	var req personRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdatePerson(r.Context(), h.DB, person.ID, req.Name, req.Division,
		req.Department, req.Email, req.Phone); err != nil {
		slog.Error("failed to update person", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update person")
		return
	}

	updated, err := store.GetPerson(r.Context(), h.DB, person.ID)
	if err != nil || updated == nil {
		jsonError(w, http.StatusInternalServerError, "failed to update person")
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/persons/{id}. Persons still holding equipment
// cannot be deleted.
func (h *PersonsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	person, ok := h.personFromPath(w, r)
	if !ok {
		return
	}

	if err := store.DeletePerson(r.Context(), h.DB, person.ID); err != nil {
		jsonError(w, http.StatusConflict, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("person deleted", "user", claims.Username, "person", person.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "person deleted"})
}

// GetCheckouts handles GET /api/persons/{id}/checkouts: equipment currently
// out with this person.
func (h *PersonsHandler) GetCheckouts(w http.ResponseWriter, r *http.Request) {
	person, ok := h.personFromPath(w, r)
	if !ok {
		return
	}

	txns, err := ledger.ListTransactions(r.Context(), h.DB,
		ledger.Filter{PersonID: person.ID, OpenOnly: true})
	if err != nil {
		slog.Error("failed to list checkouts", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list checkouts")
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txns)
}

func (h *PersonsHandler) personFromPath(w http.ResponseWriter, r *http.Request) (*model.Person, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid person id")
		return nil, false
	}

	person, err := store.GetPerson(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get person", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get person")
		return nil, false
	}
	if person == nil || !person.Active() {
		jsonError(w, http.StatusNotFound, "person not found")
		return nil, false
	}
	return person, true
}
