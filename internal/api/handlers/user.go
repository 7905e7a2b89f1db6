package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mealmate/server/internal/api/middleware"
	"github.com/mealmate/server/internal/api/respond"
	"github.com/mealmate/server/internal/service"
)

type UserHandler struct {
	authService *service.AuthService
}

func NewUserHandler(authService *service.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, respond.CodeMissingToken, "Unauthorized")
		return
	}
	respond.JSON(w, http.StatusOK, NewUserResponse(user))
}

// Logout only acknowledges; the client discards its token.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, respond.CodeMissingToken, "Unauthorized")
		return
	}

	if err := h.authService.Logout(r.Context(), user); err != nil {
		slog.ErrorContext(r.Context(), "logout failed", "user_id", user.ID, "error", err)
		respond.InternalError(w)
		return
	}

	respond.JSON(w, http.StatusOK, ActionResponse{Success: true, Message: "Logged out"})
}

func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, respond.CodeMissingToken, "Unauthorized")
		return
	}

	err := h.authService.DeleteAccount(r.Context(), user.ID)
	if errors.Is(err, service.ErrUserNotFound) {
		respond.JSON(w, http.StatusNotFound, ActionResponse{Success: false, Message: "User not found or already deleted"})
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "account deletion failed", "user_id", user.ID, "error", err)
		respond.JSON(w, http.StatusInternalServerError, ActionResponse{Success: false, Message: "Internal server error"})
		return
	}

	slog.InfoContext(r.Context(), "account deleted", "user_id", user.ID)
	respond.JSON(w, http.StatusOK, ActionResponse{Success: true, Message: "Account deleted"})
}
