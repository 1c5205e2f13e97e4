package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	errs "igpublisher/pkg/errors"
	"igpublisher/pkg/models"
)

// MissingCredentialsMessage is returned when no store holds both values
const MissingCredentialsMessage = "Missing " + EnvAccountID + " or " + EnvAccessToken + " environment variables"

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Name identifies the store in status output and logs
	Name() string

	// Store saves the credentials, replacing any previous ones
	Store(creds *models.Credentials) error

	// Load returns the stored credentials or ErrCredentialsNotFound
	Load() (*models.Credentials, error)

	// Delete removes stored credentials
	Delete() error
}

// storedCredentials is the persisted form of a credential pair
type storedCredentials struct {
	AccountID    string    `json:"account_id"`
	AccessToken  string    `json:"access_token"`
	LastModified time.Time `json:"last_modified"`
}

func (s storedCredentials) credentials() *models.Credentials {
	return &models.Credentials{AccountID: s.AccountID, AccessToken: s.AccessToken}
}

// Manager resolves credentials from an ordered list of stores
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a manager that consults the environment first, then the
// system keychain when one is available, then the encrypted file.
func NewManager() (*Manager, error) {
	stores := []CredentialStore{NewEnvironmentStore()}

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over the given stores, in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Stores returns the stores in lookup order
func (m *Manager) Stores() []CredentialStore {
	return m.stores
}

// Resolve returns the first complete credential pair found. Stores are read
// on every call so a changed environment or a fresh login is picked up.
func (m *Manager) Resolve() (*models.Credentials, error) {
	for _, store := range m.stores {
		creds, err := store.Load()
		if err != nil || creds == nil {
			continue
		}
		if complete(creds) {
			return creds, nil
		}
	}
	return nil, errs.Configuration(MissingCredentialsMessage)
}

// Store saves credentials in the first store that accepts them
func (m *Manager) Store(creds *models.Credentials) error {
	if creds == nil || strings.TrimSpace(creds.AccountID) == "" {
		return errors.New("account ID is required")
	}
	if strings.TrimSpace(creds.AccessToken) == "" {
		return errors.New("access token is required")
	}

	normalized := &models.Credentials{
		AccountID:   strings.TrimSpace(creds.AccountID),
		AccessToken: strings.TrimSpace(creds.AccessToken),
	}

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(normalized)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// StoreName returns the name of the first store that would accept a write
func (m *Manager) StoreName() string {
	for _, store := range m.stores {
		if _, readOnly := store.(*EnvironmentStore); !readOnly {
			return store.Name()
		}
	}
	return ""
}

// Delete removes credentials from every writable store
func (m *Manager) Delete() error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		err := store.Delete()
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrCredentialsNotFound):
		default:
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return ErrCredentialsNotFound
	}
	return nil
}

// StoreStatus describes what one store currently holds
type StoreStatus struct {
	Store       string
	Found       bool
	Credentials *models.Credentials
	Err         error
}

// Status reports the contents of every store, masked
func (m *Manager) Status() []StoreStatus {
	statuses := make([]StoreStatus, 0, len(m.stores))
	for _, store := range m.stores {
		status := StoreStatus{Store: store.Name()}
		creds, err := store.Load()
		switch {
		case err == nil && creds != nil && complete(creds):
			status.Found = true
			status.Credentials = Sanitize(creds)
		case err != nil && !errors.Is(err, ErrCredentialsNotFound):
			status.Err = err
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func complete(creds *models.Credentials) bool {
	return strings.TrimSpace(creds.AccountID) != "" && strings.TrimSpace(creds.AccessToken) != ""
}

// ConfigDir returns the directory holding the encrypted credentials file
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igpublisher")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igpublisher")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igpublisher")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igpublisher")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy with the access token masked
func Sanitize(creds *models.Credentials) *models.Credentials {
	if creds == nil {
		return nil
	}
	return &models.Credentials{
		AccountID:   creds.AccountID,
		AccessToken: MaskToken(creds.AccessToken),
	}
}

// MaskToken masks all but the first 4 and last 4 characters of a string
func MaskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
