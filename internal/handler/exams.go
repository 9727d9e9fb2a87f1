package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/examhall/examhall/internal/exam"
	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/model"
)

type adviceView struct {
	exam.PointsAdvice
	Message string `json:"message"`
}

func localizeAdvice(ctx context.Context, a exam.PointsAdvice) adviceView {
	v := adviceView{PointsAdvice: a}
	switch {
	case a.Delta > 0:
		v.Message = appI18n.Tp(ctx, "AdvicePointsMissing", a.Delta)
	case a.Delta < 0:
		v.Message = appI18n.Tp(ctx, "AdvicePointsOver", -a.Delta)
	default:
		v.Message = appI18n.T(ctx, "AdviceBalanced")
	}
	return v
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	exams, err := h.store.ListExams(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exams)
}

// handleGetExam returns an exam with its questions. Students never see
// answer keys.
func (h *Handler) handleGetExam(w http.ResponseWriter, r *http.Request) {
	e, err := h.store.GetExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if id, _ := model.IdentityFromContext(r.Context()); id.Role != model.RoleAdmin {
		for i := range e.Questions {
			e.Questions[i].CorrectAnswer = nil
		}
	}
	writeJSON(w, http.StatusOK, e)
}

// handleDeleteExam removes an exam with its submissions and the stored
// paper.
func (h *Handler) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	e, err := h.store.GetExam(r.Context(), chi.URLParam(r, "examID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.store.DeleteExam(r.Context(), e.ID); err != nil {
		fail(w, r, err)
		return
	}
	if e.FilePath != "" {
		if err := h.files.Remove(e.FilePath); err != nil {
			slog.Warn("remove exam paper", "exam", e.ID, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

type createExamResponse struct {
	Exam   *model.Exam `json:"exam"`
	Advice adviceView  `json:"advice"`
}

// handleCreateExam accepts a multipart form with the exam paper under
// "file" and the question list as JSON under "questions".
func (h *Handler) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := exam.CreateExamInput{Title: r.FormValue("title")}
	var err error
	if in.DurationMinutes, err = formInt(r, "duration_minutes"); err != nil {
		fail(w, r, err)
		return
	}
	if in.TotalScore, err = formInt(r, "total_score"); err != nil {
		fail(w, r, err)
		return
	}
	if raw := r.FormValue("questions"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &in.Questions); err != nil {
			fail(w, r, &exam.ValidationError{Field: "questions", Reason: "json"})
			return
		}
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return
	default:
		defer file.Close()
		in.FileName = header.Filename
		in.File = file
	}

	res, err := h.authoring.Create(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createExamResponse{
		Exam:   res.Exam,
		Advice: localizeAdvice(r.Context(), res.Advice),
	})
}

// formInt reads an integer form field. A missing field reads as zero so
// the validator reports it.
func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &exam.ValidationError{Field: field, Reason: "number"}
	}
	return n, nil
}

type importRequest struct {
	Text          string `json:"text"`
	ExistingCount int    `json:"existing_count"`
	TotalScore    int    `json:"total_score"`
}

type importResponse struct {
	Questions []model.QuestionSpec `json:"questions"`
	Message   string               `json:"message"`
	Advice    *adviceView          `json:"advice,omitempty"`
}

// handleImportPreview parses batch import text into editable questions.
// Nothing is stored; the editor submits the result with the exam form.
func (h *Handler) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExistingCount < 0 {
		fail(w, r, &exam.ValidationError{Field: "existing_count", Reason: "min", Param: "0"})
		return
	}

	specs, err := h.authoring.Preview(req.Text, req.ExistingCount)
	if err != nil {
		fail(w, r, err)
		return
	}
	resp := importResponse{
		Questions: specs,
		Message:   appI18n.Tp(r.Context(), "QuestionsRecognized", len(specs)),
	}
	if req.TotalScore > 0 {
		a := localizeAdvice(r.Context(), exam.Advise(specs, req.TotalScore))
		resp.Advice = &a
	}
	writeJSON(w, http.StatusOK, resp)
}
