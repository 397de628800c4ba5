package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	h "meetuphere/internal/delivery/http/helpers"
	"meetuphere/internal/domain"
)

type contextKey string

const ownerIDKey contextKey = "ownerID"

const authRealm = "meetuphere"

// SetOwnerID returns a context carrying the authenticated check-in owner id.
func SetOwnerID(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}

// OwnerIDFromContext returns the authenticated owner id from the context, if present.
func OwnerIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ownerIDKey).(string)
	return id, ok && id != ""
}

// RequireAuth accepts a registration token issued for one check-in owner and
// puts that owner id in the request context. Failures answer 401 with a
// Bearer challenge (RFC 6750) and do not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, reason := bearerToken(r.Header.Get("Authorization"))
			if reason != "" {
				challenge(w, "", reason)
				return
			}
			ownerID, err := verifier.Verify(token)
			if err != nil || ownerID == "" {
				logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
				challenge(w, "invalid_token", "invalid or expired token")
				return
			}
			next(w, r.WithContext(SetOwnerID(r.Context(), ownerID)))
		}
	}
}

// bearerToken extracts the credentials of a Bearer Authorization header. The
// scheme is matched case-insensitively; reason is set when none is usable.
func bearerToken(header string) (token, reason string) {
	if header == "" {
		return "", "missing authorization header"
	}
	scheme, rest, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid authorization format"
	}
	token = strings.TrimSpace(rest)
	if token == "" {
		return "", "missing token"
	}
	return token, ""
}

func challenge(w http.ResponseWriter, errCode, message string) {
	value := fmt.Sprintf("Bearer realm=%q", authRealm)
	if errCode != "" {
		value += fmt.Sprintf(", error=%q", errCode)
	}
	w.Header().Set("WWW-Authenticate", value)
	h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, message)
}
