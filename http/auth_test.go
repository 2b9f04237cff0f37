package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/domain"
)

func rememberFrom(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == rememberCookie {
			return c.Value
		}
	}
	return ""
}

func TestSignup(t *testing.T) {
	a := newTestApp(t)

	t.Run("creates and signs in the user", func(t *testing.T) {
		form := url.Values{
			"username":  {"leo"},
			"email":     {"leo@example.com"},
			"password1": {"very-secret"},
			"password2": {"very-secret"},
		}
		w := a.do(t, nil, "POST", "/auth/signup/", form)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"))

		token := rememberFrom(t, w)
		require.NotEmpty(t, token)
		user, err := a.services.User.ByRemember(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "leo", user.Username)
	})

	tests := []struct {
		name  string
		form  url.Values
		field string
	}{
		{"passwords differ", url.Values{"username": {"anna"}, "password1": {"very-secret"}, "password2": {"other-secret"}}, "password2"},
		{"short password", url.Values{"username": {"anna"}, "password1": {"short"}, "password2": {"short"}}, "password1"},
		{"bad email", url.Values{"username": {"anna"}, "email": {"nope"}, "password1": {"very-secret"}, "password2": {"very-secret"}}, "email"},
		{"taken username", url.Values{"username": {"leo"}, "password1": {"very-secret"}, "password2": {"very-secret"}}, allFields},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, nil, "POST", "/auth/signup/", tt.form)
			require.Equal(t, http.StatusOK, w.Code)
			var resp struct {
				Form formErrors `json:"form"`
			}
			decode(t, w, &resp)
			assert.Contains(t, resp.Form.Errors, tt.field)
		})
	}
}

func TestLoginLogout(t *testing.T) {
	a := newTestApp(t)
	a.createUser(t, "leo")

	t.Run("wrong password", func(t *testing.T) {
		w := a.do(t, nil, "POST", "/auth/login/", url.Values{"username": {"leo"}, "password": {"wrong-one"}})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, rememberFrom(t, w))
		assert.True(t, strings.Contains(w.Body.String(), allFields))
	})

	w := a.do(t, nil, "POST", "/auth/login/?next=%2Fcreate%2F", url.Values{"username": {"leo"}, "password": {"very-secret"}})
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/create/", w.Header().Get("Location"))
	token := rememberFrom(t, w)
	require.NotEmpty(t, token)

	user := &domain.User{Remember: token}
	assert.Equal(t, http.StatusOK, a.do(t, user, "GET", "/create/", nil).Code)

	w = a.do(t, user, "GET", "/auth/logout/", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	// The old token no longer signs anybody in.
	assert.Equal(t, http.StatusFound, a.do(t, user, "GET", "/create/", nil).Code)
}

func TestLoginRejectsForeignNext(t *testing.T) {
	a := newTestApp(t)
	a.createUser(t, "leo")

	form := url.Values{"username": {"leo"}, "password": {"very-secret"}, "next": {"https://evil.example/"}}
	w := a.do(t, nil, "POST", "/auth/login/", form)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}
