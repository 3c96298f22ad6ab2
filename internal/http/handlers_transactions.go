package http

import (
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
	"finanzas/internal/services"
)

type (
	bulkReplaceRequest struct {
		ProfileID string `json:"profileId"`
		Field     string `json:"field"`
		OldValue  string `json:"oldValue"`
		NewValue  string `json:"newValue"`
		Year      int    `json:"year"`
	}

	deleteIDsRequest struct {
		IDs []int64 `json:"ids"`
	}
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseTransactionFilter(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	txs, err := s.ledger.Transactions(r.Context(), filter)
	if err != nil {
		writeError(w, r, "list_transactions", err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// handleIngestTransactions stores reviewed rows as a single upload batch.
func (s *Server) handleIngestTransactions(w http.ResponseWriter, r *http.Request) {
	var req services.IngestRequest
	if resp := DecodeJSONOrFail(w, r, &req); resp != nil {
		resp.Write(w)
		return
	}
	req.ProfileID = sanitizeInput(req.ProfileID)
	req.Source = sanitizeInput(req.Source)
	req.Filename = sanitizeInput(req.Filename)

	result, err := s.ledger.Ingest(r.Context(), req)
	if err != nil {
		writeError(w, r, "ingest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"batchId": result.BatchID,
		"count":   result.Count,
	})
}

func (s *Server) handlePatchTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		writeError(w, r, "patch_transaction", err)
		return
	}
	var patch services.TransactionPatch
	if resp := DecodeJSONOrFail(w, r, &patch); resp != nil {
		resp.Write(w)
		return
	}
	patch.Description = sanitizePtr(patch.Description)
	patch.Category = sanitizePtr(patch.Category)
	patch.BudgetLine = sanitizePtr(patch.BudgetLine)
	patch.Notes = sanitizePtr(patch.Notes)

	tx, err := s.ledger.PatchTransaction(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, "patch_transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		writeError(w, r, "delete_transaction", err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, "delete_transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleDeleteBatch undoes an upload: DELETE /api/transactions?batchId=...
func (s *Server) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	batchID := sanitizeInput(r.URL.Query().Get("batchId"))
	if batchID == "" {
		BadRequestError("batchId is required").Write(w)
		return
	}
	n, err := s.ledger.DeleteBatch(r.Context(), batchID)
	if err != nil {
		writeError(w, r, "delete_batch", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}

func (s *Server) handleDistinctValues(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	profileID := sanitizeInput(query.Get("profileId"))
	if profileID == "" {
		writeError(w, r, "distinct_values", core.ErrEmptyProfile)
		return
	}
	values, err := s.ledger.DistinctValues(r.Context(), profileID, query.Get("field"))
	if err != nil {
		writeError(w, r, "distinct_values", err)
		return
	}
	if values == nil {
		values = []ledger.ValueCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"values": values})
}

func (s *Server) handleBulkReplace(w http.ResponseWriter, r *http.Request) {
	var req bulkReplaceRequest
	if resp := DecodeJSONOrFail(w, r, &req); resp != nil {
		resp.Write(w)
		return
	}
	req.ProfileID = sanitizeInput(req.ProfileID)
	if req.ProfileID == "" {
		writeError(w, r, "bulk_replace", core.ErrEmptyProfile)
		return
	}

	n, err := s.ledger.BulkReplace(r.Context(), ledger.BulkReplace{
		ProfileID: req.ProfileID,
		Field:     ledger.Field(req.Field),
		From:      req.OldValue,
		To:        sanitizeInput(req.NewValue),
		Year:      req.Year,
	})
	if err != nil {
		writeError(w, r, "bulk_replace", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": n})
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	profileID := sanitizeInput(query.Get("profileId"))
	if profileID == "" {
		writeError(w, r, "duplicates", core.ErrEmptyProfile)
		return
	}
	year, err := ParseOptionalYear(query)
	if err != nil {
		writeError(w, r, "duplicates", err)
		return
	}

	report, err := s.ledger.Duplicates(r.Context(), profileID, year)
	if err != nil {
		writeError(w, r, "duplicates", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDeleteDuplicates(w http.ResponseWriter, r *http.Request) {
	var req deleteIDsRequest
	if resp := DecodeJSONOrFail(w, r, &req); resp != nil {
		resp.Write(w)
		return
	}
	if len(req.IDs) == 0 {
		BadRequestError("ids must not be empty").Write(w)
		return
	}

	n, err := s.ledger.DeleteTransactions(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, "delete_duplicates", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": n})
}
