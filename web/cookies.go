package web

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	auth "github.com/islamicmasterclass/go-imc-auth"
)

// CookieOptions control the cookies written by CookieStorage.
type CookieOptions struct {
	Secure bool
	TTL    time.Duration
	Path   string
}

// CookieStorage is an auth.Storage over the cookies of one request. It
// plays the part browser storage plays for the single page app: every
// browser gets its own namespace. Writes are visible to later reads of the
// same request and are sent back as Set-Cookie headers.
//
// Values are base64url encoded since profiles are JSON and cookies do not
// allow quotes or commas.
type CookieStorage struct {
	mu      sync.Mutex
	c       *fiber.Ctx
	opts    CookieOptions
	pending map[string]*string
}

// NewCookieStorage binds a storage to the request c.
func NewCookieStorage(c *fiber.Ctx, opts CookieOptions) *CookieStorage {
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &CookieStorage{
		c:       c,
		opts:    opts,
		pending: map[string]*string{},
	}
}

// Get implements auth.Storage.
func (s *CookieStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.pending[key]; ok {
		if v == nil {
			return "", false, nil
		}
		return *v, true, nil
	}

	raw := s.c.Cookies(key)
	if raw == "" {
		return "", false, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		// a cookie we did not write, ignore it
		return "", false, nil
	}
	return string(decoded), true, nil
}

// Set implements auth.Storage.
func (s *CookieStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[key] = &value

	cookie := &fiber.Cookie{
		Name:     key,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(value)),
		Path:     s.opts.Path,
		Secure:   s.opts.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if s.opts.TTL > 0 {
		cookie.Expires = time.Now().Add(s.opts.TTL)
		cookie.MaxAge = int(s.opts.TTL.Seconds())
	}
	s.c.Cookie(cookie)
	return nil
}

// Delete implements auth.Storage.
func (s *CookieStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[key] = nil
	s.c.Cookie(&fiber.Cookie{
		Name:     key,
		Value:    "",
		Path:     s.opts.Path,
		Secure:   s.opts.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	return nil
}
