package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMissingAuthHeader  = errors.New("missing or malformed basic authorization header")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidUserList    = errors.New("user list entries must look like user:password")
)

// BasicAuth checks HTTP basic credentials against a fixed user table.
type BasicAuth struct {
	users map[string]string // username -> password
}

func NewBasicAuth(users map[string]string) *BasicAuth {
	if users == nil {
		users = make(map[string]string)
	}
	return &BasicAuth{users: users}
}

// ParseUsers reads "alice:secret,bob:hunter2". Passwords may contain ':'.
func ParseUsers(list string) (map[string]string, error) {
	users := make(map[string]string)
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, password, ok := strings.Cut(entry, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidUserList, entry)
		}
		users[name] = password
	}
	return users, nil
}

// Enabled reports whether any user is configured.
func (ba *BasicAuth) Enabled() bool {
	return len(ba.users) > 0
}

func (ba *BasicAuth) ValidateCredentials(username, password string) bool {
	storedPassword, exists := ba.users[username]
	if !exists {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(password), []byte(storedPassword)) == 1
}

// Authenticate returns the user the request authenticates as.
func (ba *BasicAuth) Authenticate(r *http.Request) (string, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return "", ErrMissingAuthHeader
	}

	if !ba.ValidateCredentials(username, password) {
		return "", ErrInvalidCredentials
	}

	return username, nil
}

// Middleware rejects requests without valid credentials. With no users
// configured it passes every request through.
func (ba *BasicAuth) Middleware(next http.HandlerFunc) http.HandlerFunc {
	if !ba.Enabled() {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		username, err := ba.Authenticate(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="sweetcache"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), username)))
	}
}
