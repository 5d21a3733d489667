package http

import (
	"context"
	"net/http"
	"strings"

	"hucha/internal/core"
	applog "hucha/internal/log"
)

type contextKey string

const userContextKey contextKey = "user"

func withUser(ctx context.Context, user core.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func currentUser(r *http.Request) core.User {
	user, _ := r.Context().Value(userContextKey).(core.User)
	return user
}

// authenticate resolves the bearer token to a user. On failure it writes the
// 401 response itself and returns ok=false.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (core.User, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token", "")
		return core.User{}, false
	}

	user, err := s.users.GetUserByToken(r.Context(), strings.TrimSpace(token))
	if err != nil {
		s.logger.WarnContext(r.Context(), "Token rejected",
			applog.FieldClientIP, r.RemoteAddr,
			applog.FieldPath, r.URL.Path)
		writeError(w, http.StatusUnauthorized, "invalid token", "")
		return core.User{}, false
	}
	return user, true
}
