package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/stats"
)

func (h *Handler) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := h.analysis.ForExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	for i, c := range report.CohortPerformance {
		if c.ID == stats.UnclassifiedCohortID {
			report.CohortPerformance[i].Name = appI18n.T(r.Context(), "CohortUnclassified")
		}
	}
	writeJSON(w, http.StatusOK, report)
}
