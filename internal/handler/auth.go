package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/examhall/examhall/internal/i18n"
	"github.com/examhall/examhall/internal/model"
)

// requireAuth is middleware that checks for a valid bearer token and an
// active account, then stores the caller's identity in the context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			writeMessage(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}
		claims, err := h.tokens.Parse(raw)
		if err != nil {
			slog.Debug("rejected token", "error", err)
			writeMessage(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		user, err := h.store.GetUserByID(r.Context(), claims.Subject)
		if err != nil {
			slog.Error("failed to load user", "id", claims.Subject, "error", err)
			writeMessage(w, r, http.StatusInternalServerError, "ErrInternal")
			return
		}
		if user == nil || !user.Active {
			writeMessage(w, r, http.StatusUnauthorized, "ErrUnauthorized")
			return
		}

		id := model.Identity{UserID: user.ID, Role: user.Role}
		if user.CohortID != nil {
			id.CohortID = *user.CohortID
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithIdentity(r.Context(), id)))
	})
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := model.IdentityFromContext(r.Context())
			if !ok {
				writeMessage(w, r, http.StatusUnauthorized, "ErrUnauthorized")
				return
			}
			for _, role := range allowed {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeMessage(w, r, http.StatusForbidden, "ErrForbidden")
		})
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		fail(w, r, err)
		return
	}
	if user == nil {
		writeMessage(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeMessage(w, r, http.StatusUnauthorized, "ErrInvalidCredentials")
		return
	}
	if !user.Active {
		writeMessage(w, r, http.StatusForbidden, "ErrAccountInactive")
		return
	}

	token, exp, err := h.tokens.Issue(user)
	if err != nil {
		fail(w, r, err)
		return
	}
	slog.Info("user logged in", "id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, User: user})
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"max=100"`
	CohortID string `json:"cohort_id" validate:"required"`
}

// handleRegister creates an inactive student account that an admin must
// activate before it can log in.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := h.validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}

	cohort, err := h.store.GetCohort(r.Context(), req.CohortID)
	if errors.Is(err, model.ErrNotFound) || (err == nil && cohort.Disabled) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: appI18n.T(r.Context(), "ErrCohortUnavailable"), Field: "cohort_id"})
		return
	}
	if err != nil {
		fail(w, r, err)
		return
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
	if _, err := h.store.CreateUser(r.Context(), model.User{
		Username:     req.Username,
		Name:         name,
		PasswordHash: string(hash),
		Role:         model.RoleStudent,
		CohortID:     &cohort.ID,
		Active:       false,
	}); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": appI18n.T(r.Context(), "RegistrationPending")})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := model.IdentityFromContext(r.Context())
	user, err := h.store.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if user == nil {
		fail(w, r, model.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// handleChangePassword lets any signed-in user replace their password
// after confirming the current one.
func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validateRequest(req); err != nil {
		fail(w, r, err)
		return
	}
	id, _ := model.IdentityFromContext(r.Context())
	user, err := h.store.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	if user == nil {
		fail(w, r, model.ErrNotFound)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: appI18n.T(r.Context(), "ErrWrongPassword"),
			Field: "current_password",
		})
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.store.SetUserPassword(r.Context(), user.ID, string(hash)); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "PasswordUpdated")})
}
