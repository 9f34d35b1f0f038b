package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientID(t *testing.T) {
	t.Run("header wins", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.Header.Set(HeaderClientID, "alice")
		r.AddCookie(&http.Cookie{Name: CookieClientID, Value: "bob"})
		w := httptest.NewRecorder()

		assert.Equal(t, "alice", GetClientID(w, r))
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.AddCookie(&http.Cookie{Name: CookieClientID, Value: "bob"})
		w := httptest.NewRecorder()

		assert.Equal(t, "bob", GetClientID(w, r))
	})

	t.Run("issues a new id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		w := httptest.NewRecorder()

		id := GetClientID(w, r)
		_, err := uuid.Parse(id)
		require.NoError(t, err)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, CookieClientID, cookies[0].Name)
		assert.Equal(t, id, cookies[0].Value)
	})
}
