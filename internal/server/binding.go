package server

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/memberdesk/memberdesk/internal/storage"
)

const (
	sessionCookieName = "memberdesk_session"
	browserSecretKey  = "browser"

	bindingStorageKey   = "dashboard-browser"
	cookieKeyStorageKey = "dashboard-cookie-key"

	sessionCookieMaxAge = 7 * 24 * 60 * 60
)

// browserBinding ties the single operator session to the browser that signed
// in. The secret lives in that browser's session cookie; only its SHA-256 is
// kept next to the session record.
type browserBinding struct {
	mu     sync.Mutex
	kv     storage.KV
	hash   []byte
	logger zerolog.Logger
}

func newBrowserBinding(kv storage.KV, zlog zerolog.Logger) *browserBinding {
	b := &browserBinding{kv: kv, logger: zlog}

	hash, err := kv.Get(bindingStorageKey)
	switch {
	case err == nil && len(hash) == sha256.Size:
		b.hash = hash
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		zlog.Warn().Err(err).Msg("Failed to load browser binding, the operator must sign in again")
	}
	return b
}

// Issue binds the session to a fresh secret, dropping any earlier browser
func (b *browserBinding) Issue() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate browser secret: %w", err)
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)
	sum := sha256.Sum256([]byte(secret))

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.kv.Put(bindingStorageKey, sum[:]); err != nil {
		return "", fmt.Errorf("failed to store browser binding: %w", err)
	}
	b.hash = sum[:]
	return secret, nil
}

// Matches reports whether secret belongs to the bound browser
func (b *browserBinding) Matches(secret string) bool {
	if secret == "" {
		return false
	}
	sum := sha256.Sum256([]byte(secret))

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hash != nil && subtle.ConstantTimeCompare(b.hash, sum[:]) == 1
}

// Revoke forgets the bound browser. It is the session store's sign-out hook
// and runs under the store lock.
func (b *browserBinding) Revoke() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hash == nil {
		return
	}
	b.hash = nil
	if err := b.kv.Delete(bindingStorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		b.logger.Warn().Err(err).Msg("Failed to delete browser binding")
	}
	b.logger.Debug().Msg("Browser binding revoked")
}

// newCookieStore signs browser session cookies with a key kept in kv, so a
// restart does not sign the operator out
func newCookieStore(kv storage.KV, secure bool) (cookie.Store, error) {
	key, err := kv.Get(cookieKeyStorageKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load cookie key: %w", err)
	}
	if len(key) != 32 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate cookie key: %w", err)
		}
		if err := kv.Put(cookieKeyStorageKey, key); err != nil {
			return nil, fmt.Errorf("failed to store cookie key: %w", err)
		}
	}

	store := cookie.NewStore(key)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
	return store, nil
}

// browserBound reports whether the request comes from the browser that
// signed in
func (s *Server) browserBound(c *gin.Context) bool {
	secret, _ := sessions.Default(c).Get(browserSecretKey).(string)
	return s.binding.Matches(secret)
}

// bindBrowser hands this browser the session. The cookie is written by the
// next Save of the browser session.
func (s *Server) bindBrowser(c *gin.Context) error {
	secret, err := s.binding.Issue()
	if err != nil {
		return err
	}
	sessions.Default(c).Set(browserSecretKey, secret)
	return nil
}

// unbindBrowser drops the secret from this browser's cookie
func (s *Server) unbindBrowser(c *gin.Context) {
	sessions.Default(c).Delete(browserSecretKey)
}
