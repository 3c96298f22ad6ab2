package http

import (
	"net/http"

	"finanzas/internal/core"
)

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.ledger.Profiles(r.Context())
	if err != nil {
		writeError(w, r, "list_profiles", err)
		return
	}
	if profiles == nil {
		profiles = []core.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

// handleDashboard returns the budget-vs-actual summary for one month.
// Missing year or month default to the current ones.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriodParams(r.URL.Query(), s.now(), true)
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}

	m, err := s.summaries.Monthly(r.Context(), p.ProfileID, p.Year, p.Month)
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleYearlyDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePeriodParams(r.URL.Query(), s.now(), false)
	if err != nil {
		writeError(w, r, "yearly_dashboard", err)
		return
	}

	y, err := s.summaries.Yearly(r.Context(), p.ProfileID, p.Year)
	if err != nil {
		writeError(w, r, "yearly_dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, y)
}
