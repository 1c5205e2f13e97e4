package auth

import (
	"os"
	"strings"

	"igpublisher/pkg/models"
)

const (
	EnvAccountID   = "IG_USER_ID"
	EnvAccessToken = "IG_ACCESS_TOKEN"
)

// EnvironmentStore reads credentials from IG_USER_ID and IG_ACCESS_TOKEN.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) Name() string { return "environment" }

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(creds *models.Credentials) error {
	return ErrStoreUnavailable
}

// Load reads both variables, trimmed. A pair with either value blank is
// reported as not found.
func (e *EnvironmentStore) Load() (*models.Credentials, error) {
	accountID := strings.TrimSpace(os.Getenv(EnvAccountID))
	accessToken := strings.TrimSpace(os.Getenv(EnvAccessToken))

	if accountID == "" || accessToken == "" {
		return nil, ErrCredentialsNotFound
	}

	return &models.Credentials{
		AccountID:   accountID,
		AccessToken: accessToken,
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete() error {
	return ErrStoreUnavailable
}
