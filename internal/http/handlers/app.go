package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"outfitlens/internal/auth"
	"outfitlens/internal/domain"
	"outfitlens/internal/generation"
	"outfitlens/internal/i18n"
	"outfitlens/internal/middleware"
	"outfitlens/internal/uploads"
)

type App struct {
	Auth        *auth.Service
	Uploads     *uploads.Service
	Generations *generation.Service
	Logger      zerolog.Logger
}

func NewApp(authSvc *auth.Service, uploadSvc *uploads.Service, genSvc *generation.Service, logger zerolog.Logger) *App {
	return &App{Auth: authSvc, Uploads: uploadSvc, Generations: genSvc, Logger: logger}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes a localized error body. message is an English catalog key.
func (a *App) error(w http.ResponseWriter, r *http.Request, code int, errCode, message string, args ...any) {
	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, code, errorResponse{Error: errCode, Message: i18n.T(locale, message, args...)})
}

// fail maps service errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		a.error(w, r, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "Unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		a.error(w, r, http.StatusForbidden, "forbidden", "Unauthorized")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, r, http.StatusNotFound, "not_found", "Not found")
	case errors.Is(err, domain.ErrEmailTaken):
		a.error(w, r, http.StatusConflict, "email_taken", "Email already registered")
	case errors.Is(err, domain.ErrImageInUse):
		a.error(w, r, http.StatusConflict, "image_in_use", "Image is used by a generation")
	case errors.Is(err, domain.ErrImageTooLarge):
		a.error(w, r, http.StatusRequestEntityTooLarge, "image_too_large", "Image exceeds the %d MB limit", a.Uploads.MaxBytes()>>20)
	case errors.Is(err, domain.ErrUnsupportedImage):
		a.error(w, r, http.StatusUnsupportedMediaType, "unsupported_image", "Unsupported image format")
	case errors.Is(err, domain.ErrInvalidImage):
		a.error(w, r, http.StatusBadRequest, "invalid_image", "Invalid image")
	case errors.Is(err, domain.ErrInvalidInput):
		detail := strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
		a.error(w, r, http.StatusBadRequest, "bad_request", detail)
	default:
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "Internal error")
	}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// requireUser returns the authenticated user id or writes a 401.
func (a *App) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return "", false
	}
	return userID, true
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "Invalid payload")
		return false
	}
	return true
}

func pageFromQuery(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return domain.PageRequest{Page: page, PageSize: size}.Normalize()
}
