package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// Authenticate rejects requests without a valid bearer token and stores the
// claims in the request context.
func (i *Issuer) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			unauthorized(w, "missing bearer token")
			return
		}

		claims, err := i.Parse(strings.TrimSpace(raw))
		if err != nil {
			unauthorized(w, "invalid or expired session")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)

	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": "unauthorized"}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
