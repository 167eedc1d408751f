package middleware

import (
	"encoding/json"
	"mime"
	"net/http"
)

// RequireJSON answers 415 for a state-changing request that carries a body
// not declared as application/json. HTML forms cannot send that type, so a
// cross-site form post never reaches a handler even when the browser
// attaches a SameSite=None session cookie.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnsupportedMediaType)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "unsupported_media_type",
				"message": "Content-Type must be application/json",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
