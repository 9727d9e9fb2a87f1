package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/examhall/examhall/internal/model"
)

type submitRequest struct {
	Answers []model.Answer `json:"answers"`
}

// handleSubmit grades and stores the caller's answers. A second attempt
// at the same exam is answered with 409.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, _ := model.IdentityFromContext(r.Context())
	sub, err := h.submissions.Submit(r.Context(), chi.URLParam(r, "examID"), id.UserID, req.Answers)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) handleMySubmission(w http.ResponseWriter, r *http.Request) {
	id, _ := model.IdentityFromContext(r.Context())
	sub, err := h.submissions.ForUser(r.Context(), chi.URLParam(r, "examID"), id.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissions.ListForExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.submissions.Get(r.Context(), chi.URLParam(r, "submissionID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

type regradeRequest struct {
	Answers []model.AnswerScore `json:"answers"`
}

func (h *Handler) handleRegrade(w http.ResponseWriter, r *http.Request) {
	var req regradeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub, err := h.submissions.Regrade(r.Context(), chi.URLParam(r, "submissionID"), req.Answers)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
