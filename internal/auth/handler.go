package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosafar/travel-api/internal/httputil"
	"github.com/gosafar/travel-api/internal/logging"
	"github.com/gosafar/travel-api/internal/ratelimit"
	"github.com/gosafar/travel-api/internal/user"
)

// maxImageUploadBytes caps profile image uploads at 10 MB.
const maxImageUploadBytes = 10 << 20

// imageFormField is the multipart field the frontend uploads the image under.
const imageFormField = "profile-image"

// Handler contains HTTP handlers for authentication and profile endpoints
type Handler struct {
	service     *Service
	rateLimiter *ratelimit.Limiter
	logger      *logging.Logger
	tokenTTL    time.Duration
}

func NewHandler(service *Service, rateLimiter *ratelimit.Limiter, logger *logging.Logger, tokenTTL time.Duration) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		logger:      logger,
		tokenTTL:    tokenTTL,
	}
}

// SignupRequest represents the signup request body
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// LoginRequest represents the login request body; exactly one of email or
// phone identifies the account.
type LoginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// UpdateProfileRequest represents the profile update request body
type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// UserResponse is the public projection of an identity record. The password
// hash never appears here.
type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	ProfileSetup bool      `json:"profileSetup"`
	FirstName    *string   `json:"firstName,omitempty"`
	LastName     *string   `json:"lastName,omitempty"`
	Image        *string   `json:"image,omitempty"`
}

// SessionResponse wraps the projection for signup/login responses.
type SessionResponse struct {
	User UserResponse `json:"user"`
}

// ImageResponse carries the stored path of an attached profile image.
type ImageResponse struct {
	Image string `json:"image"`
}

// MessageResponse is a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

func projectUser(u *user.User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Phone:        u.Phone,
		ProfileSetup: u.ProfileSetup,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Image:        u.Image,
	}
}

// Signup handles account creation
// @Summary      Sign up
// @Description  Create a new account with email, password and phone. Sets the session cookie on success.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body SignupRequest true "Signup credentials"
// @Success      201 {object} SessionResponse
// @Failure      400 {object} ErrorResponse "Missing or malformed fields"
// @Failure      409 {object} ErrorResponse "Email or phone already in use"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /api/auth/signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	if h.limitExceeded(w, r, ip, "signup") {
		return
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid signup request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	newUser, token, err := h.service.Signup(r.Context(), req.Email, req.Password, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, ErrFieldsRequired), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidPhone):
			logger.Warn("signup failed: validation error", "error", err.Error())
			respondError(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("signup failed: email already exists")
			respondError(w, err.Error(), httputil.CodeEmailAlreadyExists, http.StatusConflict)
		case errors.Is(err, user.ErrDuplicatePhone):
			logger.Warn("signup failed: phone already exists")
			respondError(w, err.Error(), httputil.CodePhoneAlreadyExists, http.StatusConflict)
		default:
			logger.Error("signup failed: internal error", "error", err.Error())
			respondError(w, "failed to sign up", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user signed up successfully", "user_id", newUser.ID)

	SetSessionCookie(w, token, h.tokenTTL)
	respondJSON(w, SessionResponse{User: projectUser(newUser)}, http.StatusCreated)
}

// Login handles user login
// @Summary      Log in
// @Description  Authenticate with password plus email or phone. Sets the session cookie on success.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} SessionResponse
// @Failure      400 {object} ErrorResponse "Missing fields or invalid credentials"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /api/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip := getClientIP(r)
	if h.limitExceeded(w, r, ip, "login") {
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	existing, token, err := h.service.Login(r.Context(), req.Email, req.Phone, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrCredentialsRequired), errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidPhone):
			logger.Warn("login failed: validation error", "error", err.Error())
			respondError(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			respondError(w, err.Error(), httputil.CodeInvalidCredentials, http.StatusBadRequest)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			respondError(w, "failed to log in", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("user logged in successfully", "user_id", existing.ID)

	SetSessionCookie(w, token, h.tokenTTL)
	respondJSON(w, SessionResponse{User: projectUser(existing)}, http.StatusOK)
}

// Me returns the current authenticated user
// @Summary      Current user
// @Description  Return the identity resolved from the session cookie.
// @Tags         auth
// @Produce      json
// @Success      200 {object} UserResponse
// @Failure      401 {object} ErrorResponse "No session cookie"
// @Failure      403 {object} ErrorResponse "Invalid or expired token"
// @Failure      404 {object} ErrorResponse "Account no longer exists"
// @Router       /api/auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "you are not authenticated", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	current, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("current user lookup failed: account gone", "user_id", userID)
			respondError(w, "user with given id not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("current user lookup failed: internal error", "error", err.Error())
		respondError(w, "failed to load user", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	respondJSON(w, projectUser(current), http.StatusOK)
}

// UpdateProfile persists first/last name and phone
// @Summary      Update profile
// @Description  Set first name, last name and phone; marks the profile as set up.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Profile fields"
// @Success      200 {object} UserResponse
// @Failure      400 {object} ErrorResponse "Missing fields or invalid phone"
// @Failure      401 {object} ErrorResponse "No session cookie"
// @Failure      404 {object} ErrorResponse "Account no longer exists"
// @Failure      409 {object} ErrorResponse "Phone already in use"
// @Router       /api/auth/profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "you are not authenticated", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid profile update request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.UpdateProfile(r.Context(), userID, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		switch {
		case errors.Is(err, ErrProfileFieldsRequired), errors.Is(err, ErrInvalidPhone):
			logger.Warn("profile update failed: validation error", "error", err.Error())
			respondError(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		case errors.Is(err, user.ErrNotFound):
			logger.Warn("profile update failed: account gone", "user_id", userID)
			respondError(w, "user with given id not found", httputil.CodeUserNotFound, http.StatusNotFound)
		case errors.Is(err, user.ErrDuplicatePhone):
			logger.Warn("profile update failed: phone already exists")
			respondError(w, err.Error(), httputil.CodePhoneAlreadyExists, http.StatusConflict)
		default:
			logger.Error("profile update failed: internal error", "error", err.Error())
			respondError(w, "failed to update profile", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("profile updated", "user_id", userID)

	respondJSON(w, projectUser(updated), http.StatusOK)
}

// AttachImage stores an uploaded profile image
// @Summary      Attach profile image
// @Description  Upload a profile image; the stored path is persisted on the account.
// @Tags         auth
// @Accept       multipart/form-data
// @Produce      json
// @Param        profile-image formData file true "Image file"
// @Success      200 {object} ImageResponse
// @Failure      400 {object} ErrorResponse "No file uploaded"
// @Failure      401 {object} ErrorResponse "No session cookie"
// @Router       /api/auth/profile/image [post]
func (h *Handler) AttachImage(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "you are not authenticated", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadBytes)
	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		logger.Warn("image attach failed: no file", "error", err.Error())
		respondError(w, ErrFileRequired.Error(), httputil.CodeFileRequired, http.StatusBadRequest)
		return
	}
	defer file.Close()

	path, err := h.service.AttachImage(r.Context(), userID, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("image attach failed: account gone", "user_id", userID)
			respondError(w, "user with given id not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("image attach failed: internal error", "error", err.Error())
		respondError(w, "failed to store image", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("profile image attached", "user_id", userID, "path", path)

	respondJSON(w, ImageResponse{Image: path}, http.StatusOK)
}

// RemoveImage deletes the stored profile image
// @Summary      Remove profile image
// @Description  Delete the stored image file and clear the image field. Idempotent when no image is set.
// @Tags         auth
// @Produce      json
// @Success      200 {object} MessageResponse
// @Failure      401 {object} ErrorResponse "No session cookie"
// @Failure      404 {object} ErrorResponse "Account no longer exists"
// @Router       /api/auth/profile/image [delete]
func (h *Handler) RemoveImage(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "you are not authenticated", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	if err := h.service.RemoveImage(r.Context(), userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("image removal failed: account gone", "user_id", userID)
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("image removal failed: internal error", "error", err.Error())
		respondError(w, "failed to remove image", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("profile image removed", "user_id", userID)

	respondJSON(w, MessageResponse{Message: "profile image removed successfully"}, http.StatusOK)
}

// Logout clears the session cookie
// @Summary      Log out
// @Description  Overwrite the session cookie with an immediately expiring value. The token itself remains valid until its natural expiry.
// @Tags         auth
// @Produce      json
// @Success      200 {object} MessageResponse
// @Router       /api/auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ClearSessionCookie(w)

	logger.Info("user logged out")

	respondJSON(w, MessageResponse{Message: "logged out successfully"}, http.StatusOK)
}

// limitExceeded applies the IP rate limit for the given purpose. Limiter
// failures are logged but never block the request.
func (h *Handler) limitExceeded(w http.ResponseWriter, r *http.Request, ip, purpose string) bool {
	logger := logging.GetLoggerFromContext(r.Context())

	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
		return false
	}
	if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (behind proxy/load balancer)
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	xri := r.Header.Get("X-Real-IP")
	if xri != "" {
		return strings.TrimSpace(xri)
	}

	ip := r.RemoteAddr
	// RemoteAddr format is "IP:port", extract just the IP
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}
