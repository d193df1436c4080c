package medium

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"topup/pkg/platform/sentinel"
)

var cookieName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// CookieConfig controls the attributes of cookies written by the jar.
type CookieConfig struct {
	Path   string
	Domain string
	Secure bool
}

// CookieProvider builds a cookie jar per request.
type CookieProvider struct {
	Config CookieConfig
}

// For implements Provider.
func (p CookieProvider) For(w http.ResponseWriter, r *http.Request) Medium {
	return NewCookieJar(w, r, p.Config)
}

// CookieJar stores one entry per cookie. Values are base64url encoded so
// JSON survives cookie value rules. Writes made during the request are
// visible to later reads in the same request; the browser sees them once
// the response arrives.
type CookieJar struct {
	w       http.ResponseWriter
	r       *http.Request
	cfg     CookieConfig
	pending map[string]*string // nil value marks a removal
}

// NewCookieJar binds a jar to a request/response pair.
func NewCookieJar(w http.ResponseWriter, r *http.Request, cfg CookieConfig) *CookieJar {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return &CookieJar{w: w, r: r, cfg: cfg, pending: make(map[string]*string)}
}

func (j *CookieJar) Read(_ context.Context, name string) (string, error) {
	if v, ok := j.pending[name]; ok {
		if v == nil {
			return "", sentinel.ErrNotFound
		}
		return *v, nil
	}
	c, err := j.r.Cookie(name)
	if err != nil {
		return "", sentinel.ErrNotFound
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return "", fmt.Errorf("cookie %q: %w", name, sentinel.ErrMalformed)
	}
	return string(raw), nil
}

func (j *CookieJar) Write(_ context.Context, name, value string, expiresAt time.Time) error {
	if !cookieName.MatchString(name) {
		return fmt.Errorf("invalid cookie name %q: %w", name, sentinel.ErrUnavailable)
	}
	encoded := base64.RawURLEncoding.EncodeToString([]byte(value))
	if len(name)+len(encoded) > MaxEntryBytes {
		return fmt.Errorf("cookie %q is %d bytes: %w", name, len(name)+len(encoded), sentinel.ErrQuotaExceeded)
	}
	http.SetCookie(j.w, j.cookie(name, encoded, expiresAt))
	j.pending[name] = &value
	return nil
}

func (j *CookieJar) Remove(_ context.Context, name string) error {
	if !cookieName.MatchString(name) {
		return nil
	}
	c := j.cookie(name, "", time.Unix(0, 0))
	c.MaxAge = -1
	http.SetCookie(j.w, c)
	j.pending[name] = nil
	return nil
}

func (j *CookieJar) cookie(name, value string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     j.cfg.Path,
		Domain:   j.cfg.Domain,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   j.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
