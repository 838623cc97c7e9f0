package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBasicAuth(t *testing.T) {
	t.Run("with users map", func(t *testing.T) {
		users := map[string]string{"admin": "password123"}
		auth := NewBasicAuth(users)
		assert.Equal(t, users, auth.users)
		assert.True(t, auth.Enabled())
	})

	t.Run("with nil users map", func(t *testing.T) {
		auth := NewBasicAuth(nil)
		assert.NotNil(t, auth.users)
		assert.False(t, auth.Enabled())
	})
}

func TestParseUsers(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		users, err := ParseUsers(" admin:p:a:ss , reader:secret,")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"admin": "p:a:ss", "reader": "secret"}, users)
	})

	t.Run("empty", func(t *testing.T) {
		users, err := ParseUsers("")
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("error - missing password separator", func(t *testing.T) {
		_, err := ParseUsers("admin")
		assert.ErrorIs(t, err, ErrInvalidUserList)
	})

	t.Run("error - empty username", func(t *testing.T) {
		_, err := ParseUsers(":secret")
		assert.ErrorIs(t, err, ErrInvalidUserList)
	})
}

func TestBasicAuth_ValidateCredentials(t *testing.T) {
	auth := NewBasicAuth(map[string]string{"admin": "password123"})

	assert.True(t, auth.ValidateCredentials("admin", "password123"))
	assert.False(t, auth.ValidateCredentials("admin", "wrongpassword"))
	assert.False(t, auth.ValidateCredentials("nonexistent", "password123"))
	assert.False(t, auth.ValidateCredentials("", ""))
}

func TestBasicAuth_Middleware(t *testing.T) {
	auth := NewBasicAuth(map[string]string{"admin": "password123"})

	var gotUser string
	handler := auth.Middleware(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name           string
		setup          func(r *http.Request)
		expectedStatus int
		expectedUser   string
	}{
		{
			name:           "success - valid credentials",
			setup:          func(r *http.Request) { r.SetBasicAuth("admin", "password123") },
			expectedStatus: http.StatusOK,
			expectedUser:   "admin",
		},
		{
			name:           "error - wrong password",
			setup:          func(r *http.Request) { r.SetBasicAuth("admin", "nope") },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "error - no header",
			setup:          func(r *http.Request) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "error - bearer token",
			setup:          func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/k", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()

			handler(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectedUser, gotUser)
			if tt.expectedStatus == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="sweetcache"`, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestBasicAuth_MiddlewareDisabled(t *testing.T) {
	called := false
	handler := NewBasicAuth(nil).Middleware(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}
