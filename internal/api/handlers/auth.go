package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mealmate/server/internal/api/respond"
	"github.com/mealmate/server/internal/domain"
	"github.com/mealmate/server/internal/kakao"
	"github.com/mealmate/server/internal/service"
)

var validate = validator.New()

const (
	oauthStateCookie = "kakao_oauth_state"
	oauthStateMaxAge = 10 * 60
)

type AuthHandler struct {
	authService  *service.AuthService
	secureCookie bool
}

func NewAuthHandler(authService *service.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, secureCookie: secureCookie}
}

// TokenExchangeRequest accepts an authorization code, or a Kakao access token
// from clients that ran the OAuth flow themselves. State is required when the
// flow was started through KakaoAuthorize, which leaves a state cookie.
type TokenExchangeRequest struct {
	Code             string `json:"code" validate:"required_without=KakaoAccessToken"`
	KakaoAccessToken string `json:"KAKAO_ACCESS_TOKEN" validate:"required_without=Code"`
	State            string `json:"state"`
}

type TokenExchangeResponse struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	User      UserResponse `json:"user"`
	IsNewUser bool         `json:"isNewUser"`
}

type UserResponse struct {
	UserID          uint64            `json:"userId"`
	FriendCode      string            `json:"friendCode"`
	Nickname        string            `json:"nickname"`
	Email           string            `json:"email"`
	ProfileImageURL *string           `json:"profileImageUrl"`
	Status          domain.UserStatus `json:"status"`
}

func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		UserID:          user.ID,
		FriendCode:      user.FriendCode,
		Nickname:        user.Nickname,
		Email:           user.Email,
		ProfileImageURL: user.ProfileImageURL,
		Status:          user.Status,
	}
}

func (h *AuthHandler) KakaoTokenExchange(w http.ResponseWriter, r *http.Request) {
	var req TokenExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.WarnContext(r.Context(), "failed to decode token exchange request", "error", err)
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Authorization code is required")
		return
	}
	if !h.checkState(w, r, req.State) {
		slog.WarnContext(r.Context(), "oauth state mismatch")
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidState, "OAuth state does not match")
		return
	}

	var (
		result *service.AuthResult
		err    error
	)
	if req.Code != "" {
		result, err = h.authService.ExchangeKakaoCode(r.Context(), req.Code)
	} else {
		result, err = h.authService.ExchangeKakaoAccessToken(r.Context(), req.KakaoAccessToken)
	}
	if err != nil {
		h.writeExchangeError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.IsNewUser {
		status = http.StatusCreated
	}

	slog.InfoContext(r.Context(), "kakao login succeeded",
		"user_id", result.User.ID,
		"new_user", result.IsNewUser,
	)

	respond.JSON(w, status, TokenExchangeResponse{
		Message:   "Kakao login succeeded",
		Token:     result.Token,
		User:      NewUserResponse(result.User),
		IsNewUser: result.IsNewUser,
	})
}

func (h *AuthHandler) writeExchangeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrMissingCode):
		respond.Error(w, http.StatusBadRequest, respond.CodeInvalidRequest, "Authorization code is required")
	case errors.Is(err, kakao.ErrTokenRejected):
		slog.WarnContext(r.Context(), "kakao rejected credential", "error", err)
		respond.Error(w, http.StatusUnauthorized, respond.CodeKakaoTokenInvalid, "Kakao token is invalid or expired")
	default:
		var provErr *kakao.ProviderAuthError
		if errors.As(err, &provErr) {
			slog.ErrorContext(r.Context(), "kakao request failed", "op", provErr.Op, "status", provErr.StatusCode, "error", err)
		} else {
			slog.ErrorContext(r.Context(), "kakao login failed", "error", err)
		}
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "Kakao login failed")
	}
}

// KakaoAuthorize redirects the browser to the Kakao consent page.
func (h *AuthHandler) KakaoAuthorize(w http.ResponseWriter, r *http.Request) {
	authURL, state, err := h.authService.KakaoAuthorizeURL()
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build kakao authorize url", "error", err)
		respond.InternalError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/kakao",
		MaxAge:   oauthStateMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// checkState compares the state echoed by the client with the state cookie
// set by KakaoAuthorize. Clients that never went through KakaoAuthorize send
// neither and pass. The cookie is cleared once it has been checked.
func (h *AuthHandler) checkState(w http.ResponseWriter, r *http.Request, state string) bool {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		return state == ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/api/auth/kakao",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return state != "" && subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) == 1
}
