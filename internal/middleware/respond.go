package middleware

import (
	"encoding/json"
	"net/http"

	"outfitlens/internal/i18n"
)

// writeError renders the same {"error","message"} body the handlers use.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   code,
		"message": i18n.T(LocaleFromContext(r.Context()), message),
	})
}
