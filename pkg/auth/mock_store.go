package auth

import (
	"sync"

	"igpublisher/pkg/models"
)

// MockStore implements CredentialStore for testing purposes
type MockStore struct {
	name  string
	creds *models.Credentials
	loads int
	mu    sync.Mutex

	// Error injection for testing
	StoreError  error
	LoadError   error
	DeleteError error
}

// NewMockStore creates a new mock credential store
func NewMockStore(name string) *MockStore {
	return &MockStore{name: name}
}

func (m *MockStore) Name() string { return m.name }

// Store saves a copy of the credentials
func (m *MockStore) Store(creds *models.Credentials) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if creds == nil {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := *creds
	m.creds = &c
	return nil
}

// Load returns a copy of the stored credentials
func (m *MockStore) Load() (*models.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.loads++
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	if m.creds == nil {
		return nil, ErrCredentialsNotFound
	}

	c := *m.creds
	return &c, nil
}

// Delete clears the stored credentials
func (m *MockStore) Delete() error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds == nil {
		return ErrCredentialsNotFound
	}
	m.creds = nil
	return nil
}

// Loads returns how many times Load was called
func (m *MockStore) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}
