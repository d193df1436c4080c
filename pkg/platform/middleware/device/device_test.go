package device

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topup/pkg/requestcontext"
)

func captureDevice(t *testing.T, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var seen string
	h := Middleware(Config{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.DeviceID(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec
}

func TestMiddleware(t *testing.T) {
	t.Run("issues a device cookie when missing", func(t *testing.T) {
		seen, rec := captureDevice(t, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, DefaultCookieName, cookies[0].Name)
		assert.Equal(t, seen, cookies[0].Value)
	})

	t.Run("reuses an existing device cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "abc-123"})
		seen, rec := captureDevice(t, req)

		assert.Equal(t, "abc-123", seen)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("replaces a tampered device cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "../../etc"})
		seen, _ := captureDevice(t, req)

		assert.NotEqual(t, "../../etc", seen)
		assert.NotEmpty(t, seen)
	})
}
