// Package device assigns each browser a stable, opaque device identifier
// held in a long-lived cookie. Server-side media key their entries by it.
package device

import (
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"topup/pkg/requestcontext"
)

// DefaultCookieName is the cookie carrying the device identifier.
const DefaultCookieName = "device_id"

const cookieLifetime = 365 * 24 * time.Hour

var validDeviceID = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// Config controls the device cookie.
type Config struct {
	CookieName string
	Secure     bool
}

// Middleware reads the device cookie, issuing a new identifier when the
// cookie is missing or has been tampered into an unusable shape.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	name := cfg.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := ""
			if c, err := r.Cookie(name); err == nil && validDeviceID.MatchString(c.Value) {
				deviceID = c.Value
			}
			if deviceID == "" {
				deviceID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     name,
					Value:    deviceID,
					Path:     "/",
					Expires:  time.Now().Add(cookieLifetime),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := requestcontext.WithDeviceID(r.Context(), deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
