package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
	"golang.org/x/oauth2"
)

const (
	// GitHub rejects app JWTs valid for more than ten minutes
	appJWTLifetime = 9 * time.Minute
	// backdate iat to tolerate clock drift against GitHub
	appJWTClockSkew = 60 * time.Second
	tokenTimeout    = 10 * time.Second
)

// AppClientProvider authenticates as a GitHub App and hands out clients
// scoped to one installation. Installation tokens are cached per
// installation and refreshed shortly before they expire.
type AppClientProvider struct {
	appID      int64
	key        *rsa.PrivateKey
	baseURL    string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	clients map[int64]*Client
}

// NewAppClientProvider parses the app's PEM private key
func NewAppClientProvider(appID int64, privateKeyPEM []byte, baseURL string) (*AppClientProvider, error) {
	if appID <= 0 {
		return nil, fmt.Errorf("github app id is required")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse github app private key: %w", err)
	}
	return &AppClientProvider{
		appID:      appID,
		key:        key,
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		now:        time.Now,
		clients:    make(map[int64]*Client),
	}, nil
}

// ForInstallation returns a client acting with the installation's token
func (p *AppClientProvider) ForInstallation(_ context.Context, installationID int64) (vcs.IssueTracker, error) {
	if installationID <= 0 {
		return nil, fmt.Errorf("installation id is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[installationID]; ok {
		return c, nil
	}

	ts := oauth2.ReuseTokenSource(nil, &installationTokenSource{
		provider:       p,
		installationID: installationID,
	})
	c, err := NewClientWithHTTP(p.oauthClient(ts), p.baseURL)
	if err != nil {
		return nil, err
	}
	p.clients[installationID] = c
	return c, nil
}

func (p *AppClientProvider) oauthClient(ts oauth2.TokenSource) *http.Client {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, p.httpClient)
	return oauth2.NewClient(ctx, ts)
}

// appJWT signs the short-lived JWT that authenticates the app itself
func (p *AppClientProvider) appJWT() (string, error) {
	now := p.now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now.Add(-appJWTClockSkew)),
		ExpiresAt: jwt.NewNumericDate(now.Add(appJWTLifetime)),
		Issuer:    strconv.FormatInt(p.appID, 10),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign app jwt: %w", err)
	}
	return signed, nil
}

type installationTokenSource struct {
	provider       *AppClientProvider
	installationID int64
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	appToken, err := s.provider.appJWT()
	if err != nil {
		return nil, err
	}

	appClient, err := newGitHubClient(
		s.provider.oauthClient(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: appToken})),
		s.provider.baseURL,
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), tokenTimeout)
	defer cancel()

	tok, _, err := appClient.Apps.CreateInstallationToken(ctx, s.installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token for %d: %w", s.installationID, classify(err))
	}

	logging.Debug("Issued installation token",
		"installation", s.installationID,
		"expires_at", tok.GetExpiresAt())

	return &oauth2.Token{
		AccessToken: tok.GetToken(),
		TokenType:   "Bearer",
		Expiry:      tok.GetExpiresAt(),
	}, nil
}

// TokenClientProvider uses a single static token for every installation.
// Meant for local development against a personal access token.
type TokenClientProvider struct {
	client *Client
}

// NewTokenClientProvider creates a provider around one token
func NewTokenClientProvider(token, baseURL string) (*TokenClientProvider, error) {
	c, err := NewClient(token, baseURL)
	if err != nil {
		return nil, err
	}
	return &TokenClientProvider{client: c}, nil
}

// ForInstallation ignores the installation and returns the shared client
func (p *TokenClientProvider) ForInstallation(context.Context, int64) (vcs.IssueTracker, error) {
	return p.client, nil
}
