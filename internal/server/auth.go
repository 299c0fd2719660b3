package server

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/maxbolgarin/abstract"
	"github.com/maxbolgarin/erro"
	"github.com/maxbolgarin/servex/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const stateTTL = 10 * time.Minute

// oauthFlow drives the GitHub OAuth dance: login redirect, state tracking
// and code exchange.
type oauthFlow struct {
	cfg    *oauth2.Config
	states *abstract.SafeMap[string, time.Time]
}

func newOAuthFlow(cfg Config) *oauthFlow {
	if cfg.OAuthClientID == "" {
		return nil
	}
	return &oauthFlow{
		cfg: &oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Scopes:       []string{"read:user"},
			Endpoint:     endpoints.GitHub,
		},
		states: abstract.NewSafeMap[string, time.Time](),
	}
}

func (f *oauthFlow) newState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", erro.Wrap(err, "generate state")
	}
	state := hex.EncodeToString(buf)
	f.states.Set(state, time.Now().Add(stateTTL))
	return state, nil
}

func (f *oauthFlow) consumeState(state string) bool {
	deadline, ok := f.states.Lookup(state)
	if !ok {
		return false
	}
	f.states.Delete(state)
	return time.Now().Before(deadline)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)

	if s.oauth == nil {
		ctx.Response(http.StatusNotImplemented)
		return
	}

	state, err := s.oauth.newState()
	if err != nil {
		ctx.InternalServerError(err, "failed to start login")
		return
	}

	http.Redirect(w, r, s.oauth.cfg.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := servex.NewContext(w, r)

	if s.oauth == nil {
		ctx.Response(http.StatusNotImplemented)
		return
	}

	if !s.oauth.consumeState(r.URL.Query().Get("state")) {
		ctx.BadRequest(erro.New("unknown state"), "invalid OAuth state")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		ctx.BadRequest(erro.New("missing code"), "missing OAuth code")
		return
	}

	token, err := s.oauth.cfg.Exchange(r.Context(), code)
	if err != nil {
		ctx.Unauthorized(err, "GitHub authentication failed")
		return
	}

	ghClient := github.NewClient(s.oauth.cfg.Client(r.Context(), token))
	ghUser, _, err := ghClient.Users.Get(r.Context(), "")
	if err != nil {
		ctx.Unauthorized(err, "failed to load GitHub user")
		return
	}

	session, err := s.mintSession(ghUser.GetLogin(), ghUser.GetAvatarURL(), token.AccessToken)
	if err != nil {
		ctx.InternalServerError(err, "failed to create session")
		return
	}

	s.log.Info("user logged in", "username", ghUser.GetLogin())

	http.Redirect(w, r, s.cfg.FrontendURL+"/?token="+url.QueryEscape(session), http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// Sessions are client-held tokens, so logout is just a bounce back to
	// the frontend; the client drops its cached identity.
	http.Redirect(w, r, s.cfg.FrontendURL, http.StatusFound)
}
