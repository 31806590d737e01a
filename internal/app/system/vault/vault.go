// Package vault stores and refreshes external OAuth credentials.
//
// Refreshes are single-flight per (user, provider): a keyed mutex
// serializes them so concurrent callers in an expired-token window
// trigger exactly one round trip to the provider, and everyone else
// reuses the refreshed token. The map is keyed per pair rather than
// guarded by one global lock so unrelated users never serialize each
// other.
//
// Callers must release the vault before performing slow downstream
// work: GetValidAccessToken returns a plain token string and holds no
// locks on return.
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	credentialstore "github.com/dalemusser/caseroom/internal/app/store/credentials"
	"github.com/dalemusser/caseroom/internal/domain/faults"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultSkew is subtracted from the stored expiry when deciding
// whether a token is still usable, absorbing clock drift and the time
// the token spends in flight.
const DefaultSkew = 2 * time.Minute

// Refresher exchanges a refresh token for a new access token.
// ErrInvalidGrant must be returned (possibly wrapped) when the provider
// reports the refresh token as revoked or invalid.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (accessToken string, expiresAt time.Time, err error)
}

// ErrInvalidGrant marks an unrecoverable refresh failure.
var ErrInvalidGrant = errors.New("invalid grant")

// OAuthRefresher refreshes tokens against a real provider endpoint
// using an oauth2 client configuration.
type OAuthRefresher struct {
	Config *oauth2.Config
}

func (r *OAuthRefresher) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	src := r.Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) && retrieve.ErrorCode == "invalid_grant" {
			return "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
		}
		return "", time.Time{}, err
	}
	return tok.AccessToken, tok.Expiry, nil
}

// Vault hands out valid access tokens, refreshing them as needed.
type Vault struct {
	creds     *credentialstore.Store
	refresher Refresher
	skew      time.Duration
	log       *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(creds *credentialstore.Store, refresher Refresher, logger *zap.Logger) *Vault {
	return &Vault{
		creds:     creds,
		refresher: refresher,
		skew:      DefaultSkew,
		log:       logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex for one (user, provider) pair, creating it
// on first use. Entries are never removed; the map is bounded by the
// number of distinct pairs.
func (v *Vault) lockFor(userID primitive.ObjectID, provider string) *sync.Mutex {
	key := userID.Hex() + "/" + provider
	v.mu.Lock()
	defer v.mu.Unlock()
	l, ok := v.locks[key]
	if !ok {
		l = &sync.Mutex{}
		v.locks[key] = l
	}
	return l
}

// GetValidAccessToken returns a usable access token for the pair,
// refreshing first when the stored one is expired or about to expire.
//
// Callers that arrive while a refresh is in flight block on the pair's
// mutex; once inside they re-read the credential and usually find a
// fresh token, so no second refresh is issued. An unrecoverable
// refresh failure marks the credential invalid and returns
// ErrReauthRequired; that state persists until the user re-consents.
func (v *Vault) GetValidAccessToken(ctx context.Context, userID primitive.ObjectID, provider string) (string, error) {
	l := v.lockFor(userID, provider)
	l.Lock()
	defer l.Unlock()

	cred, err := v.creds.Get(ctx, userID, provider)
	if err != nil {
		return "", err
	}
	if cred.Invalid {
		return "", fmt.Errorf("credential for %s marked invalid: %w", provider, faults.ErrReauthRequired)
	}
	if cred.AccessToken != "" && time.Now().Before(cred.ExpiresAt.Add(-v.skew)) {
		return cred.AccessToken, nil
	}
	return v.refreshLocked(ctx, userID, provider, cred.RefreshToken)
}

// ForceRefresh discards the stored access token and refreshes
// unconditionally. The import workflow uses it after the external
// source rejects a token that looked valid locally.
func (v *Vault) ForceRefresh(ctx context.Context, userID primitive.ObjectID, provider string) (string, error) {
	l := v.lockFor(userID, provider)
	l.Lock()
	defer l.Unlock()

	cred, err := v.creds.Get(ctx, userID, provider)
	if err != nil {
		return "", err
	}
	if cred.Invalid {
		return "", fmt.Errorf("credential for %s marked invalid: %w", provider, faults.ErrReauthRequired)
	}
	return v.refreshLocked(ctx, userID, provider, cred.RefreshToken)
}

// refreshLocked performs one refresh round trip and persists the
// result. Caller must hold the pair's mutex.
func (v *Vault) refreshLocked(ctx context.Context, userID primitive.ObjectID, provider, refreshToken string) (string, error) {
	if refreshToken == "" {
		if err := v.creds.MarkInvalid(ctx, userID, provider); err != nil {
			v.log.Warn("failed to mark credential invalid", zap.Error(err))
		}
		return "", fmt.Errorf("no refresh token stored for %s: %w", provider, faults.ErrReauthRequired)
	}

	access, expiresAt, err := v.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			if merr := v.creds.MarkInvalid(ctx, userID, provider); merr != nil {
				v.log.Warn("failed to mark credential invalid", zap.Error(merr))
			}
			return "", fmt.Errorf("refresh token revoked for %s: %w", provider, faults.ErrReauthRequired)
		}
		return "", fmt.Errorf("%w: token refresh: %v", faults.ErrUpstreamUnavailable, err)
	}

	if err := v.creds.UpdateAccessToken(ctx, userID, provider, access, expiresAt); err != nil {
		return "", err
	}
	v.log.Debug("refreshed access token",
		zap.String("user_id", userID.Hex()),
		zap.String("provider", provider),
		zap.Time("expires_at", expiresAt),
	)
	return access, nil
}
