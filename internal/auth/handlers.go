package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/bizfinda/backend/internal/db"
	apperrors "github.com/bizfinda/backend/internal/errors"
	"github.com/bizfinda/backend/internal/logger"
)

const (
	refreshCookieName = "refreshToken"
	// The refresh cookie is scoped to the auth routes; no other
	// endpoint ever sees it.
	refreshCookiePath = "/api/auth"
)

var emailRegex = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type LoginResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	AccessToken string    `json:"accessToken"`
	User        *UserInfo `json:"user"`
}

type RefreshResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}

type Handlers struct {
	svc *Service
	log *logger.Logger
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{
		svc: svc,
		log: logger.Default().WithComponent("auth"),
	}
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) error {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return apperrors.ValidationError("All fields are required")
	}
	if !emailRegex.MatchString(req.Email) {
		return apperrors.ValidationError("Invalid Email Format")
	}

	if err := h.svc.Signup(r.Context(), req.Email, req.Password); err != nil {
		if errors.Is(err, db.ErrEmailExists) {
			// Conflict is an early return; nothing falls through to an
			// insert attempt.
			return apperrors.Conflict("Email already exists")
		}
		return apperrors.InternalError("failed to create user").WithCause(err)
	}

	h.log.Info(r.Context(), "user registered")
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusCreated, MessageResponse{
		Success: true,
		Message: "User Account Created, Pls Login",
	})
	return nil
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) error {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return apperrors.ValidationError("Pls fill in your credentials")
	}

	user, accessToken, refreshToken, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrUserNotFound):
			return apperrors.BadRequest("Wrong Email: User not found")
		case errors.Is(err, ErrWrongPassword):
			return apperrors.BadRequest("Wrong Password")
		default:
			return apperrors.InternalError("login failed").WithCause(err)
		}
	}

	http.SetCookie(w, h.refreshCookie(refreshToken, int(h.svc.RefreshExpiry().Seconds())))

	h.log.Info(r.Context(), "user logged in", map[string]interface{}{
		"user_id": user.ID.String(),
	})
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, LoginResponse{
		Success:     true,
		Message:     "You have been Logged In successfully",
		AccessToken: accessToken,
		User: &UserInfo{
			ID:    user.ID.String(),
			Email: user.Email,
		},
	})
	return nil
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return apperrors.Unauthorized("Refresh token missing")
	}

	accessToken, err := h.svc.Refresh(cookie.Value)
	if err != nil {
		return apperrors.Forbidden("Invalid or expired Refresh token")
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, RefreshResponse{
		Success:     true,
		AccessToken: accessToken,
	})
	return nil
}

// Logout clears the refresh cookie unconditionally. Already-issued
// tokens stay valid until natural expiry; there is no server-side
// revocation in the stateless design.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, h.refreshCookie("", -1))

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, MessageResponse{
		Success: true,
		Message: "You've been logged out successfully",
	})
	return nil
}

func (h *Handlers) refreshCookie(value string, maxAge int) *http.Cookie {
	// SameSite=None requires Secure under modern browser policy; the
	// frontend is served from a different origin.
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}
