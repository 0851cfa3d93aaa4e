// Package auth owns the per-session credential context: the OAuth2 token
// bundle and the behavioral profile built at login.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/voxmail/voxmail/internal/profile"
)

// ErrNotAuthenticated indicates no valid credential context exists.
var ErrNotAuthenticated = errors.New("authentication required")

// Context is one authenticated session's credentials plus the profile built
// from its sent mail. Consumers treat it as read-only; only the Manager
// mutates session state, at login and logout.
type Context struct {
	token   *oauth2.Token
	profile *profile.Profile
}

// Token returns the provider token bundle.
func (c *Context) Token() *oauth2.Token { return c.token }

// Profile returns the behavioral profile, nil when none was built.
func (c *Context) Profile() *profile.Profile { return c.profile }

// Expiry returns when the access token expires.
func (c *Context) Expiry() time.Time { return c.token.Expiry }

// Manager guards the credential context with thread-safe operations and
// persists the token bundle across restarts.
type Manager struct {
	mu          sync.RWMutex
	cfg         *oauth2.Config
	current     *Context
	persistPath string
	stateStore  map[string]time.Time
}

// NewManager creates a Manager, loading a persisted token if path provided.
func NewManager(cfg *oauth2.Config, persistPath string) (*Manager, error) {
	m := &Manager{
		cfg:         cfg,
		persistPath: persistPath,
		stateStore:  make(map[string]time.Time),
	}
	if persistPath == "" {
		return m, nil
	}

	f, err := os.Open(persistPath)
	defer func() { _ = f.Close() }()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info().Str("path", persistPath).Msg("token file absent, will be created on exit")

			return m, nil
		}

		return nil, fmt.Errorf("os.Open failed: %w", err)
	}

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("json.NewDecoder.Decode failed: %w", err)
	}
	m.current = &Context{token: token}

	return m, nil
}

// RedirectURL generates the OAuth2 authorization URL with a secure random state.
func (m *Manager) RedirectURL() (string, error) {
	state, err := m.generateState()
	if err != nil {
		return "", fmt.Errorf("generateState failed: %w", err)
	}

	return m.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

func (m *Manager) generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.stateStore[state] = now.Add(5 * time.Minute)

	for s, exp := range m.stateStore {
		if exp.Before(now) {
			delete(m.stateStore, s)
		}
	}

	return state, nil
}

func (m *Manager) validateState(state string) bool {
	if state == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, exists := m.stateStore[state]
	if !exists {
		return false
	}

	delete(m.stateStore, state)

	return !time.Now().After(expiry)
}

// AuthorizeCode exchanges an authorization code for a token bundle after
// validating state, replacing any previous credential context.
func (m *Manager) AuthorizeCode(ctx context.Context, code, state string) error {
	if !m.validateState(state) {
		return errors.New("invalid or expired state parameter")
	}

	tok, err := m.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &Context{token: tok}

	return nil
}

// Credentials returns the current credential context.
func (m *Manager) Credentials() (*Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil, ErrNotAuthenticated
	}

	return m.current, nil
}

// Authenticated reports whether a credential context exists.
func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current != nil
}

// Profile returns the session profile, nil when unauthenticated or unbuilt.
func (m *Manager) Profile() *profile.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return nil
	}

	return m.current.profile
}

// SetProfile attaches the login-time behavioral profile to the session.
// The profile is immutable afterwards.
func (m *Manager) SetProfile(p *profile.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current = &Context{token: m.current.token, profile: p}
	}
}

// Logout destroys the credential context and any persisted token.
func (m *Manager) Logout() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = nil

	if m.persistPath != "" {
		if err := os.Remove(m.persistPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", m.persistPath).Msg("failed to remove persisted token")
		}
	}
}

// Persist saves the token bundle to disk.
func (m *Manager) Persist() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.persistPath == "" || m.current == nil {
		return nil
	}

	f, err := os.OpenFile(m.persistPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	defer func() { _ = f.Close() }()
	if err != nil {
		return fmt.Errorf("os.OpenFile failed: %w", err)
	}

	if err := json.NewEncoder(f).Encode(m.current.token); err != nil {
		return fmt.Errorf("json.NewEncoder.Encode failed: %w", err)
	}

	return nil
}
