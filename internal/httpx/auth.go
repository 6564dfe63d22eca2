package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-shop-backend/internal/users"
)

type ctxKey int

const userKey ctxKey = 0

// UserStore is the slice of the users repo the middleware needs.
type UserStore interface {
	Upsert(ctx context.Context, externalID, name, email, imageURL string) (users.User, error)
}

// Auth trusts the identity the gateway already verified: requests carry the
// external user id (plus profile hints) in headers. The middleware only maps
// it to a local User record, creating one on first sight.
type Auth struct {
	Users      UserStore
	AdminEmail string
}

func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		externalID := r.Header.Get("X-User-Id")
		if externalID == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		u, err := a.Users.Upsert(r.Context(), externalID,
			r.Header.Get("X-User-Name"), r.Header.Get("X-User-Email"), r.Header.Get("X-User-Image"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

// RequireAdmin gates the admin subtree on the configured admin email.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFrom(r.Context())
		if a.AdminEmail == "" || u.Email != a.AdminEmail {
			writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserFrom(ctx context.Context) users.User {
	u, _ := ctx.Value(userKey).(users.User)
	return u
}
