// Package storage provides object storage for receipt evidence documents.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	financeapp "github.com/javila-dev/rojoz/internal/application/finance"
)

// StubEvidenceStorage is an in-memory implementation of EvidenceStorage.
// Use it for development and tests when no S3-compatible backend is
// configured; documents live only as long as the process.
type StubEvidenceStorage struct {
	// BaseURL is the base URL for generated download URLs
	BaseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

// NewStubEvidenceStorage creates a new StubEvidenceStorage
func NewStubEvidenceStorage() *StubEvidenceStorage {
	return &StubEvidenceStorage{
		BaseURL: "https://storage.example.com",
		objects: make(map[string][]byte),
	}
}

// Ensure StubEvidenceStorage implements EvidenceStorage
var _ financeapp.EvidenceStorage = (*StubEvidenceStorage)(nil)

// Upload stores the document in memory
func (s *StubEvidenceStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	if storageKey == "" {
		return errors.New("storage key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[storageKey] = stored
	return nil
}

// GenerateDownloadURL generates a stub download URL for a stored document
func (s *StubEvidenceStorage) GenerateDownloadURL(
	ctx context.Context,
	storageKey string,
	expiresIn time.Duration,
) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}

	expiresAt := time.Now().Add(expiresIn)
	url := s.BaseURL + "/download/" + storageKey + "?expires=" + expiresAt.Format(time.RFC3339)

	return url, expiresAt, nil
}

// ObjectExists reports whether the document was uploaded to this instance
func (s *StubEvidenceStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	if storageKey == "" {
		return false, errors.New("storage key is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

// Get returns a stored document (for tests)
func (s *StubEvidenceStorage) Get(storageKey string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[storageKey]
	return data, ok
}
