package medium

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"topup/pkg/platform/sentinel"
)

// replay copies Set-Cookie headers from a response onto a fresh request,
// the way a browser would on its next visit.
func replay(t *testing.T, rec *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return req
}

func TestCookieJarRoundTrip(t *testing.T) {
	ctx := context.Background()
	expires := time.Now().Add(time.Hour)

	rec := httptest.NewRecorder()
	jar := NewCookieJar(rec, httptest.NewRequest(http.MethodGet, "/", nil), CookieConfig{})
	value := `{"value":{"user_id":"123"},"expires_at":"2030-01-01T00:00:00Z"}`
	require.NoError(t, jar.Write(ctx, "acct_slot_mlbb", value, expires))

	t.Run("pending write is visible in the same request", func(t *testing.T) {
		got, err := jar.Read(ctx, "acct_slot_mlbb")
		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	t.Run("next request reads the cookie", func(t *testing.T) {
		next := NewCookieJar(httptest.NewRecorder(), replay(t, rec), CookieConfig{})
		got, err := next.Read(ctx, "acct_slot_mlbb")
		require.NoError(t, err)
		assert.Equal(t, value, got)
	})

	t.Run("cookie carries the entry expiry", func(t *testing.T) {
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.WithinDuration(t, expires, cookies[0].Expires, time.Second)
		assert.True(t, cookies[0].HttpOnly)
	})
}

func TestCookieJarRemove(t *testing.T) {
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "acct_hist_mlbb", Value: "e30"})

	rec := httptest.NewRecorder()
	jar := NewCookieJar(rec, req, CookieConfig{})
	require.NoError(t, jar.Remove(ctx, "acct_hist_mlbb"))

	_, err := jar.Read(ctx, "acct_hist_mlbb")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestCookieJarRejects(t *testing.T) {
	ctx := context.Background()
	jar := NewCookieJar(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), CookieConfig{})

	t.Run("oversize entry", func(t *testing.T) {
		err := jar.Write(ctx, "big", strings.Repeat("x", MaxEntryBytes), time.Now().Add(time.Hour))
		assert.ErrorIs(t, err, sentinel.ErrQuotaExceeded)
	})

	t.Run("unsafe name", func(t *testing.T) {
		err := jar.Write(ctx, "bad name;", "v", time.Now().Add(time.Hour))
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
	})

	t.Run("value that is not base64", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "acct_slot_x", Value: "!!!"})
		j := NewCookieJar(httptest.NewRecorder(), req, CookieConfig{})
		_, err := j.Read(ctx, "acct_slot_x")
		assert.ErrorIs(t, err, sentinel.ErrMalformed)
	})
}
