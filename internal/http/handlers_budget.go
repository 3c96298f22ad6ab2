package http

import (
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/services"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	profileID := sanitizeInput(query.Get("profileId"))
	if profileID == "" {
		writeError(w, r, "list_budgets", core.ErrEmptyProfile)
		return
	}
	year, err := ParseOptionalYear(query)
	if err != nil {
		writeError(w, r, "list_budgets", err)
		return
	}

	lines, err := s.ledger.BudgetLines(r.Context(), profileID, year)
	if err != nil {
		writeError(w, r, "list_budgets", err)
		return
	}
	if lines == nil {
		lines = []core.BudgetLine{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"budgets": lines})
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var bl core.BudgetLine
	if resp := DecodeJSONOrFail(w, r, &bl); resp != nil {
		resp.Write(w)
		return
	}
	bl.ID = 0
	bl.ProfileID = sanitizeInput(bl.ProfileID)
	bl.Name = sanitizeInput(bl.Name)
	if bl.Year == 0 {
		bl.Year = s.now().Year()
	}

	created, err := s.ledger.CreateBudgetLine(r.Context(), bl)
	if err != nil {
		writeError(w, r, "create_budget", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"budget": created})
}

func (s *Server) handlePatchBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		writeError(w, r, "patch_budget", err)
		return
	}
	var patch services.BudgetLinePatch
	if resp := DecodeJSONOrFail(w, r, &patch); resp != nil {
		resp.Write(w)
		return
	}
	patch.Name = sanitizePtr(patch.Name)

	updated, err := s.ledger.PatchBudgetLine(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, "patch_budget", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"budget": updated})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r)
	if err != nil {
		writeError(w, r, "delete_budget", err)
		return
	}
	if err := s.ledger.DeleteBudgetLine(r.Context(), id); err != nil {
		writeError(w, r, "delete_budget", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
