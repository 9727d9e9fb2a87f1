package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/model"
)

// handleListCohorts lists enabled cohorts for the registration page. An
// admin token with ?all=1 includes disabled cohorts.
func (h *Handler) handleListCohorts(w http.ResponseWriter, r *http.Request) {
	includeDisabled := false
	if raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		if claims, err := h.tokens.Parse(raw); err == nil && claims.Role == model.RoleAdmin {
			includeDisabled = r.URL.Query().Get("all") == "1"
		}
	}
	cohorts, err := h.store.ListCohorts(r.Context(), includeDisabled)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cohorts)
}

type createCohortRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *Handler) handleCreateCohort(w http.ResponseWriter, r *http.Request) {
	var req createCohortRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.store.CreateCohort(r.Context(), req.Name)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

type updateCohortRequest struct {
	Disabled *bool `json:"disabled" validate:"required"`
}

func (h *Handler) handleUpdateCohort(w http.ResponseWriter, r *http.Request) {
	var req updateCohortRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "cohortID")
	if err := h.store.SetCohortDisabled(r.Context(), id, *req.Disabled); err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.store.GetCohort(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleDeleteCohort removes a cohort. Cohorts with members are kept and
// answered with 409.
func (h *Handler) handleDeleteCohort(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCohort(r.Context(), chi.URLParam(r, "cohortID")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	Username string     `json:"username" validate:"required,min=3,max=64"`
	Password string     `json:"password" validate:"required,min=6"`
	Name     string     `json:"name" validate:"max=100"`
	Role     model.Role `json:"role" validate:"required,oneof=ADMIN STUDENT"`
	CohortID *string    `json:"cohort_id"`
}

// handleCreateUser creates an active account. Accounts made by an admin
// skip the activation step that self-registration needs.
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := h.validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}
	if req.CohortID != nil && *req.CohortID == "" {
		req.CohortID = nil
	}
	if req.CohortID != nil {
		if _, err := h.store.GetCohort(r.Context(), *req.CohortID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				writeMessage(w, r, http.StatusBadRequest, "ErrCohortUnavailable")
				return
			}
			fail(w, r, err)
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(w, r, err)
		return
	}
	name := req.Name
	if name == "" {
		name = req.Username
	}
	id, err := h.store.CreateUser(r.Context(), model.User{
		Username:     req.Username,
		Name:         name,
		PasswordHash: string(hash),
		Role:         req.Role,
		CohortID:     req.CohortID,
		Active:       true,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type updateUserRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}
	id := chi.URLParam(r, "userID")
	if err := h.store.SetUserActive(r.Context(), id, *req.Active); err != nil {
		fail(w, r, err)
		return
	}
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes an account with its submissions. Admins cannot
// delete themselves.
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "userID")
	if caller, _ := model.IdentityFromContext(r.Context()); caller.UserID == id {
		writeMessage(w, r, http.StatusBadRequest, "ErrCannotDeleteSelf")
		return
	}
	if err := h.store.DeleteUser(r.Context(), id); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.store.SetUserPassword(r.Context(), chi.URLParam(r, "userID"), string(hash)); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "PasswordUpdated")})
}
