package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"warehouse_bot/internal/items"
	"warehouse_bot/internal/notifications"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 16

type CheckRequest struct {
	InventoryID string `json:"inventory_id"`
}

type CheckResponse struct {
	Status      string `json:"status"`
	InventoryID string `json:"inventory_id"`
}

type UpdateInventoryNumberRequest struct {
	InventoryID     string `json:"inventory_id"`
	InventoryNumber string `json:"inventory_number"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListItems returns every item row; ?checked=true keeps only rows
// whose label is marked.
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListAll(r.Context())
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if r.URL.Query().Get("checked") == "true" {
		rows = checkedRows(rows)
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleListChecked(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.ListAll(r.Context())
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkedRows(rows))
}

func checkedRows(rows []items.Row) []items.Row {
	checked := make([]items.Row, 0, len(rows))
	for _, row := range rows {
		if row.Checkbox.Checked() {
			checked = append(checked, row)
		}
	}
	return checked
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	inventoryID := chi.URLParam(r, "inventory_id")
	// chi routes on RawPath when it is set, leaving the segment escaped.
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(inventoryID); err == nil {
			inventoryID = unescaped
		}
	}

	row, found, err := s.store.FindByInventoryID(r.Context(), inventoryID)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "inventory_id not found")
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleCheck(value bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.InventoryID) == "" {
			writeError(w, http.StatusUnprocessableEntity, "inventory_id is required")
			return
		}

		row, found, err := s.store.CheckByInventoryID(r.Context(), req.InventoryID, value)
		if err != nil {
			s.respondStoreError(w, r, err)
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "inventory_id not found")
			return
		}

		if s.notifier != nil {
			s.notifier.NotifyLabel(r.Context(), notifications.ItemInfo{
				InventoryID: req.InventoryID,
				Name:        row.Name(),
				Location:    row.Location(),
				Row:         row.RowIndex,
				Checked:     value,
				Source:      "api",
			})
		}

		writeJSON(w, http.StatusOK, CheckResponse{Status: "ok", InventoryID: req.InventoryID})
	}
}

func (s *Server) handleUpdateInventoryNumber(w http.ResponseWriter, r *http.Request) {
	var req UpdateInventoryNumberRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.InventoryID) == "" {
		writeError(w, http.StatusUnprocessableEntity, "inventory_id is required")
		return
	}

	_, found, err := s.store.UpdateSecondaryByInventoryID(r.Context(), req.InventoryID, req.InventoryNumber)
	if err != nil {
		s.respondStoreError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "inventory_id not found")
		return
	}

	writeJSON(w, http.StatusOK, CheckResponse{Status: "ok", InventoryID: req.InventoryID})
}

// respondStoreError logs the cause and returns a generic 500.
func (s *Server) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	event := log.Error()
	if !errors.Is(err, items.ErrBackendUnavailable) {
		event = event.Str("kind", "unexpected")
	}
	event.
		Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("Item store request failed")

	writeError(w, http.StatusInternalServerError, "internal server error")
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is empty")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
		}
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}
