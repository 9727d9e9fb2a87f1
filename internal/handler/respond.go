package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/examhall/examhall/internal/exam"
	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/model"
	"github.com/examhall/examhall/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeMessage writes a localized error message with status.
func writeMessage(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, errorBody{Error: appI18n.T(r.Context(), msgID)})
}

// decodeJSON reads the request body into v. It writes a 400 and returns
// false on malformed input.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		slog.Debug("bad request body", "path", r.URL.Path, "error", err)
		writeMessage(w, r, http.StatusBadRequest, "ErrBadRequest")
		return false
	}
	return true
}

var validationMessages = map[string]string{
	"required":  "ValidationRequired",
	"gt":        "ValidationGreaterThan",
	"min":       "ValidationMin",
	"oneof":     "ValidationOneOf",
	"extension": "ValidationExtension",
	"unique":    "ValidationUnique",
}

// fail maps workflow and store errors to HTTP responses.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	var ve *exam.ValidationError
	switch {
	case errors.As(err, &ve):
		msgID, ok := validationMessages[ve.Reason]
		if !ok {
			msgID = "ValidationInvalid"
		}
		msg := appI18n.Td(r.Context(), msgID, map[string]any{"Field": ve.Field, "Param": ve.Param})
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msg, Field: ve.Field})
	case errors.Is(err, exam.ErrNoQuestionsRecognized):
		writeMessage(w, r, http.StatusBadRequest, "ErrFormatNotRecognized")
	case errors.Is(err, exam.ErrAlreadySubmitted):
		writeMessage(w, r, http.StatusConflict, "ErrAlreadySubmitted")
	case errors.Is(err, store.ErrUsernameTaken):
		writeMessage(w, r, http.StatusConflict, "ErrUsernameTaken")
	case errors.Is(err, store.ErrCohortExists):
		writeMessage(w, r, http.StatusConflict, "ErrCohortExists")
	case errors.Is(err, store.ErrCohortInUse):
		writeMessage(w, r, http.StatusConflict, "ErrCohortInUse")
	case errors.Is(err, model.ErrNotFound):
		writeMessage(w, r, http.StatusNotFound, "ErrNotFound")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeMessage(w, r, http.StatusInternalServerError, "ErrInternal")
	}
}
