package handlers

import (
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"

	"outfitlens/internal/domain"
	"outfitlens/pkg/zip"
)

type createGenerationRequest struct {
	UserPhotoID     string `json:"user_photo_id"`
	ClothingPhotoID string `json:"clothing_photo_id"`
}

func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	var req createGenerationRequest
	if !a.decode(w, r, &req) {
		return
	}
	ticket, err := a.Generations.Create(r.Context(), userID, req.UserPhotoID, req.ClothingPhotoID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusAccepted, ticket)
}

func (a *App) GenerationStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	report, err := a.Generations.Status(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, report)
}

func (a *App) GenerationHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	page, err := a.Generations.History(r.Context(), userID, pageFromQuery(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, page)
}

// DownloadGeneration bundles the subject, garment and (when present) result
// images of a generation into a zip archive.
func (a *App) DownloadGeneration(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	gen, err := a.Generations.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}

	parts := []struct {
		name string
		img  *domain.Image
	}{
		{"subject", &gen.UserPhoto},
		{"garment", &gen.ClothingPhoto},
		{"result", gen.ResultImage},
	}
	var assets []zip.Asset
	for _, part := range parts {
		if part.img == nil {
			continue
		}
		data, err := a.Uploads.Bytes(r.Context(), part.img)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		assets = append(assets, zip.Asset{
			Filename: part.name + path.Ext(part.img.StorageKey),
			MIME:     part.img.MIME,
			Data:     data,
			Modified: part.img.CreatedAt,
		})
	}
	archive, err := zip.ArchiveAssets(assets)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "tryon-"+gen.ID+".zip"))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}
