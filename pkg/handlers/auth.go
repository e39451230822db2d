package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sayandkrishna/querypilot/pkg/apperrors"
	"github.com/sayandkrishna/querypilot/pkg/auth"
	"github.com/sayandkrishna/querypilot/pkg/models"
	"github.com/sayandkrishna/querypilot/pkg/repositories"
)

// SignupRequest represents the request body for account creation.
type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthHandler handles signup and login.
type AuthHandler struct {
	users   repositories.UserRepository
	service *auth.Service
	logger  *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users repositories.UserRepository, service *auth.Service, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, service: service, logger: logger}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /signup", h.Signup)
	mux.HandleFunc("POST /login", h.Login)
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_parameters", "Username and password are required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user := &models.User{
		Username:     req.Username,
		PasswordHash: auth.HashPassword(req.Password),
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			if err := ErrorResponse(w, http.StatusConflict, "username_taken", "Username is already taken"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		WriteError(w, h.logger, err)
		return
	}

	h.logger.Info("User created", zap.String("username", user.Username))
	if err := WriteJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"}); err != nil {
		h.logger.Error("Failed to encode signup response", zap.Error(err))
	}
}

// Login handles POST /login. Invalid username and invalid password produce
// the same response so the endpoint does not reveal which accounts exist.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.users.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			h.invalidCredentials(w)
			return
		}
		WriteError(w, h.logger, err)
		return
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		h.invalidCredentials(w)
		return
	}

	token, err := h.service.IssueToken(user.ID, user.Username)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"}); err != nil {
		h.logger.Error("Failed to encode login response", zap.Error(err))
	}
}

func (h *AuthHandler) invalidCredentials(w http.ResponseWriter) {
	if err := ErrorResponse(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password"); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
