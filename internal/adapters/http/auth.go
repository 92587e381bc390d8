package http

import (
	"context"
	"net/http"

	"github.com/veldt-dev/veldt/pkg/store"
)

type contextKey int

const principalKey contextKey = iota

// principal returns the authenticated username stored by requireAuth.
func principal(ctx context.Context) string {
	username, _ := ctx.Value(principalKey).(string)
	return username
}

// Authenticator supplies an authenticated principal for a request, or
// reports that it could not. The rest of the server is agnostic to the
// mechanism.
type Authenticator interface {
	Authenticate(r *http.Request) (username string, ok bool)
}

// BasicAuthenticator verifies HTTP basic credentials against the user
// store.
type BasicAuthenticator struct {
	Users store.UserStore
}

func (a *BasicAuthenticator) Authenticate(r *http.Request) (string, bool) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return "", false
	}

	user, err := a.Users.GetUserByUsername(r.Context(), username)
	if err != nil || user == nil {
		return "", false
	}

	valid, err := user.VerifyPassword(password)
	if err != nil || !valid {
		return "", false
	}
	return user.Username, true
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, ok := s.auth.Authenticate(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="jmap"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, username)))
	})
}
