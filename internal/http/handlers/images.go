package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"outfitlens/internal/domain"
)

// multipartOverhead leaves room for form boundaries around the file part.
const multipartOverhead = 1 << 20

func (a *App) UploadUserPhoto(w http.ResponseWriter, r *http.Request) {
	a.upload(w, r, domain.ImageTypeSubject)
}

func (a *App) UploadClothingPhoto(w http.ResponseWriter, r *http.Request) {
	a.upload(w, r, domain.ImageTypeGarment)
}

func (a *App) upload(w http.ResponseWriter, r *http.Request, imageType domain.ImageType) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	limit := a.Uploads.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			a.fail(w, r, domain.ErrImageTooLarge)
			return
		}
		a.error(w, r, http.StatusBadRequest, "bad_request", "Invalid payload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "Invalid payload")
		return
	}
	img, err := a.Uploads.Upload(r.Context(), userID, imageType, data)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, img)
}

func (a *App) ListImages(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	imageType := domain.ImageType(r.URL.Query().Get("image_type"))
	page, err := a.Uploads.List(r.Context(), userID, imageType, pageFromQuery(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, page)
}

func (a *App) RawImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	img, data, err := a.Uploads.Raw(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *App) DeleteImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	if err := a.Uploads.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
