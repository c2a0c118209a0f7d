// Package github provides GitHub-specific implementations of VCS interfaces
package github

import (
	"fmt"
	"os"

	"github.com/hellausefulsoftware/cleaner/internal/common/vcs"
	"github.com/hellausefulsoftware/cleaner/internal/config"
	"github.com/hellausefulsoftware/cleaner/internal/logging"
)

// NewProvider returns the ClientProvider matching the configured credentials.
// App credentials take precedence over a static token.
func NewProvider(cfg *config.Config) (vcs.ClientProvider, error) {
	if cfg.UsesAppAuth() {
		pem, err := os.ReadFile(cfg.GitHub.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read github app private key: %w", err)
		}
		provider, err := NewAppClientProvider(cfg.GitHub.AppID, pem, cfg.GitHub.APIURL)
		if err != nil {
			return nil, err
		}
		logging.Info("Using GitHub App authentication", "app_id", cfg.GitHub.AppID)
		return provider, nil
	}

	if cfg.GitHub.Token != "" {
		logging.Warn("Using static GitHub token for all installations")
		return NewTokenClientProvider(cfg.GitHub.Token, cfg.GitHub.APIURL)
	}

	return nil, fmt.Errorf("no github credentials configured")
}
