// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	credentialstore "github.com/dalemusser/caseroom/internal/app/store/credentials"
	"github.com/dalemusser/caseroom/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/caseroom/internal/app/store/users"
	"github.com/dalemusser/caseroom/internal/app/system/auth"
	"github.com/dalemusser/caseroom/internal/app/system/timeouts"
	"github.com/dalemusser/caseroom/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Handler handles Google OAuth authentication. The callback both signs
// the user in and stores the Drive tokens that later imports run on.
type Handler struct {
	Log        *zap.Logger
	StateStore *oauthstate.Store
	Users      *userstore.Store
	Creds      *credentialstore.Store

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "https://caseroom.example.com/auth/google/callback"
}

func NewHandler(
	stateStore *oauthstate.Store,
	users *userstore.Store,
	creds *credentialstore.Store,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Log:          logger,
		StateStore:   stateStore,
		Users:        users,
		Creds:        creds,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
	}
}

// OAuth2Config returns the Google OAuth2 configuration. The Drive
// read-only scope is requested up front so imports work without a
// second consent round.
func (h *Handler) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/drive.readonly",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Error(w, "google auth not configured", http.StatusServiceUnavailable)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	returnURL := r.URL.Query().Get("return")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	if err := h.StateStore.Save(ctx, state, returnURL, expiresAt); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// AccessTypeOffline asks for a refresh token; ApprovalForce makes
	// Google reissue one even when the user consented before, which is
	// how a revoked credential recovers after re-login.
	url := h.OAuth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	h.Log.Debug("initiating Google OAuth flow",
		zap.String("return_url", returnURL))

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code for tokens, upserts the user and their Drive              |
| credential, and creates the session.                                         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Error(w, "google auth denied", http.StatusUnauthorized)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" {
		h.Log.Warn("missing OAuth state parameter")
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	returnURL, valid, err := h.StateStore.Validate(ctxTimeout, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		http.Error(w, "invalid code", http.StatusBadRequest)
		return
	}

	token, err := h.OAuth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Error(w, "token exchange failed", http.StatusBadGateway)
		return
	}

	googleUser, err := fetchGoogleUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Error(w, "user info fetch failed", http.StatusBadGateway)
		return
	}
	if googleUser.Email == "" {
		h.Log.Warn("Google user info missing email")
		http.Error(w, "user info missing email", http.StatusBadGateway)
		return
	}

	user, err := h.Users.UpsertByEmail(ctxTimeout, googleUser.Email)
	if err != nil {
		h.Log.Error("failed to upsert user", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// An empty refresh token (re-consent without ApprovalForce taking
	// effect) keeps the previously stored one.
	err = h.Creds.Upsert(ctxTimeout, user.ID, "google", models.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	})
	if err != nil {
		h.Log.Error("failed to store credential", zap.Error(err),
			zap.String("user_id", user.ID.Hex()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := auth.SignIn(w, r, auth.SessionUser{ID: user.ID.Hex(), Email: user.Email}); err != nil {
		h.Log.Error("save session failed", zap.Error(err),
			zap.String("user_id", user.ID.Hex()))
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}

	h.Log.Info("user logged in via Google OAuth",
		zap.String("user_id", user.ID.Hex()),
		zap.String("email", user.Email))

	http.Redirect(w, r, urlutil.SafeReturn(returnURL, "", "/"), http.StatusSeeOther)
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
