package handlers

import (
	"net/http"
)

func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.requireUser(w, r)
	if !ok {
		return
	}
	stats, err := a.Generations.Stats(r.Context(), userID, a.Uploads)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, stats)
}
