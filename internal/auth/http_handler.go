package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voxmail/voxmail/internal/profile"
)

type sessionManager interface {
	AuthorizeCode(context.Context, string, string) error
	Credentials() (*Context, error)
	RedirectURL() (string, error)
	SetProfile(*profile.Profile)
	Logout()
}

type profileBuilder interface {
	BuildProfile(ctx context.Context) (*profile.Profile, error)
}

// HTTPHandler drives the OAuth2 flow over HTTP and reports session status.
// After a successful code exchange it builds the behavioral profile once.
type HTTPHandler struct {
	mgr      sessionManager
	profiles profileBuilder
}

// NewHTTPHandler creates the OAuth2 flow handler. profiles may be nil to
// skip profile generation.
func NewHTTPHandler(mgr sessionManager, profiles profileBuilder) *HTTPHandler {
	return &HTTPHandler{mgr: mgr, profiles: profiles}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("redirect") != "" {
		url, err := h.mgr.RedirectURL()
		if err != nil {
			log.Error().Err(err).Msg("mgr.RedirectURL failed")
			http.Error(w, "Unable to start authorization", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, url, http.StatusMovedPermanently)
		return
	}

	if r.URL.Query().Get("logout") != "" {
		h.mgr.Logout()
		http.Redirect(w, r, r.URL.EscapedPath(), http.StatusFound)
		return
	}

	if code := r.URL.Query().Get("code"); code != "" {
		state := r.URL.Query().Get("state")
		if err := h.mgr.AuthorizeCode(r.Context(), code, state); err != nil {
			log.Error().Err(err).Msg("mgr.AuthorizeCode failed")
			http.Error(w, "Unable to authorize provided code", http.StatusBadRequest)
			return
		}

		h.buildProfile(r.Context())

		http.Redirect(w, r, r.URL.EscapedPath(), http.StatusFound)
		return
	}

	h.writeStatus(w)
}

// buildProfile runs the login-time profiler. Failure is logged, never fatal:
// the assistant degrades to unpersonalized operation.
func (h *HTTPHandler) buildProfile(ctx context.Context) {
	if h.profiles == nil {
		return
	}

	p, err := h.profiles.BuildProfile(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("profile generation failed")
		return
	}

	h.mgr.SetProfile(p)
	log.Info().Int("contacts", len(p.Contacts)).Msg("behavioral profile built")
}

type statusResponse struct {
	Authenticated bool             `json:"authenticated"`
	Token         string           `json:"token,omitempty"`
	Expires       string           `json:"expires,omitempty"`
	Profile       *profile.Profile `json:"profile,omitempty"`
}

func (h *HTTPHandler) writeStatus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")

	creds, err := h.mgr.Credentials()
	if errors.Is(err, ErrNotAuthenticated) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(statusResponse{Authenticated: false})
		return
	}

	_ = json.NewEncoder(w).Encode(statusResponse{
		Authenticated: true,
		Token:         maskLeft(creds.Token().AccessToken),
		Expires:       creds.Expiry().Format(time.RFC3339),
		Profile:       creds.Profile(),
	})
}

func maskLeft(s string) string {
	rs := []rune(s)
	for i := 0; i < len(rs)-4; i++ {
		rs[i] = 'X'
	}
	return string(rs)
}
