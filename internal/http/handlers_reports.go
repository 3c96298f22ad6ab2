package http

import (
	"errors"
	"net/http"

	"finanzas/internal/core"
	"finanzas/internal/llm"
	"finanzas/internal/services"
)

type (
	parseCSVRequest struct {
		ProfileID string `json:"profileId"`
		CSVText   string `json:"csvText"`
		Year      int    `json:"year"`
	}

	reportRequest struct {
		ProfileID    string `json:"profileId"`
		Month        int    `json:"month"`
		Year         int    `json:"year"`
		UserComments string `json:"userComments"`
	}
)

// handleParseCSV sends a raw statement to the model and returns the
// categorised rows for review. Nothing is stored.
func (s *Server) handleParseCSV(w http.ResponseWriter, r *http.Request) {
	if s.parser == nil {
		ServiceUnavailableError("statement parsing is not configured").Write(w)
		return
	}
	var req parseCSVRequest
	if resp := DecodeJSONOrFail(w, r, &req); resp != nil {
		resp.Write(w)
		return
	}
	if req.Year == 0 {
		req.Year = s.now().Year()
	}

	profile, err := s.ledger.Profile(r.Context(), sanitizeInput(req.ProfileID))
	if err != nil {
		writeError(w, r, "parse_csv", err)
		return
	}
	lines, err := s.ledger.BudgetLines(r.Context(), profile.ID, req.Year)
	if err != nil {
		writeError(w, r, "parse_csv", err)
		return
	}

	rows, err := s.parser.ParseStatement(r.Context(), llm.StatementRequest{
		Profile:     profile,
		Year:        req.Year,
		CSV:         req.CSVText,
		BudgetLines: lines,
	})
	if err != nil {
		writeError(w, r, "parse_csv", err)
		return
	}
	if rows == nil {
		rows = []core.ParsedTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": rows})
}

// handleGetReport returns the stored report for a month, or null.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		ErrorFor(services.ErrAnalyzerUnavailable).Write(w)
		return
	}
	p, err := ParsePeriodParams(r.URL.Query(), s.now(), true)
	if err != nil {
		writeError(w, r, "get_report", err)
		return
	}

	report, err := s.reports.Get(r.Context(), p.ProfileID, p.Year, p.Month)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusOK, map[string]any{"report": nil})
	case err != nil:
		writeError(w, r, "get_report", err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"report": report})
	}
}

// handleCreateReport generates a report inline, or queues it when a worker
// is listening. Queued requests answer 202.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		ErrorFor(services.ErrAnalyzerUnavailable).Write(w)
		return
	}
	var req reportRequest
	if resp := DecodeJSONOrFail(w, r, &req); resp != nil {
		resp.Write(w)
		return
	}
	profileID := sanitizeInput(req.ProfileID)
	if profileID == "" {
		writeError(w, r, "create_report", core.ErrEmptyProfile)
		return
	}
	now := s.now()
	if req.Year == 0 {
		req.Year = now.Year()
	}
	if req.Month == 0 {
		req.Month = int(now.Month())
	}

	report, queued, err := s.reports.Request(r.Context(), profileID, req.Year, req.Month, sanitizeInput(req.UserComments))
	if err != nil {
		writeError(w, r, "create_report", err)
		return
	}
	if queued {
		writeJSON(w, http.StatusAccepted, map[string]any{"queued": true})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}
