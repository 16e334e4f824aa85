// Package account exposes registration, login and identity routes. These sit
// in front of the messaging core; the core itself only sees authenticated
// email identities.
package account

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/whatease/backend/internal/auth"
	"github.com/whatease/backend/internal/store"
	"github.com/whatease/backend/pkg/utils"
)

type Handler struct {
	store  store.Store
	tokens *auth.Manager
}

func New(st store.Store, tokens *auth.Manager) *Handler {
	return &Handler{store: st, tokens: tokens}
}

// RegisterPublicRoutes mounts the unauthenticated routes behind the supplied
// rate limiting middleware.
func (h *Handler) RegisterPublicRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Group(func(g chi.Router) {
		g.Use(limit)
		g.Post("/register", h.handleRegister)
		g.Post("/login", h.handleLogin)
	})
}

// RegisterProtectedRoutes mounts routes that require a verified token.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := auth.HashPassword(payload.Password)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to process password")
		return
	}

	if err := h.store.RegisterUser(r.Context(), payload.Email, hash); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			utils.RespondError(w, http.StatusBadRequest, "user already exists")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, map[string]string{"message": "user registered successfully"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		utils.RespondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.User(r.Context(), payload.Email)
	if err != nil {
		// Same response as a bad password; do not leak which emails exist.
		utils.RespondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	// Users created implicitly as message participants have no credentials
	// until they register.
	if user.PasswordHash == "" || auth.CheckPassword(user.PasswordHash, payload.Password) != nil {
		utils.RespondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.tokens.GenerateToken(user.Email)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_at":   expiresAt,
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"email": auth.Identity(r.Context())})
}
