package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// ErrNoCredentials is returned by CredentialStore.Load when nothing is stored.
var ErrNoCredentials = errors.New("no stored credentials")

// ErrKeyringUnavailable is returned when the OS keyring cannot be reached.
var ErrKeyringUnavailable = errors.New("OS keyring is not available")

// CredentialStore persists the serialized signed-in identity between runs.
type CredentialStore interface {
	Load() (string, error)
	Save(payload string) error
	Clear() error
}

// KeyringStore keeps the identity in the OS keyring.
type KeyringStore struct {
	Service string
	Account string
}

// NewKeyringStore returns a store under the given keyring service name.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{Service: service, Account: "identity"}
}

func (k *KeyringStore) Load() (string, error) {
	payload, err := keyring.Get(k.Service, k.Account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoCredentials
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return payload, nil
}

func (k *KeyringStore) Save(payload string) error {
	if payload == "" {
		return errors.New("identity payload cannot be empty")
	}
	if err := keyring.Set(k.Service, k.Account, payload); err != nil {
		return fmt.Errorf("failed to store identity in keyring: %w", err)
	}
	return nil
}

// Clear is a no-op when nothing is stored.
func (k *KeyringStore) Clear() error {
	err := keyring.Delete(k.Service, k.Account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete identity from keyring: %w", err)
	}
	return nil
}

// Available reports whether the OS keyring answers requests.
func (k *KeyringStore) Available() bool {
	_, err := keyring.Get(k.Service, "availability-check")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

// FileStore keeps the identity in a 0600 file, for hosts without a keyring.
type FileStore struct {
	Path string
}

func (f *FileStore) Load() (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to read identity file: %w", err)
	}
	if len(data) == 0 {
		return "", ErrNoCredentials
	}
	return string(data), nil
}

func (f *FileStore) Save(payload string) error {
	if payload == "" {
		return errors.New("identity payload cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return fmt.Errorf("failed to create identity directory: %w", err)
	}
	if err := os.WriteFile(f.Path, []byte(payload), 0600); err != nil {
		return fmt.Errorf("failed to write identity file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove identity file: %w", err)
	}
	return nil
}

// DefaultCredentialStore prefers the OS keyring and falls back to a file
// under dataDir.
func DefaultCredentialStore(service, dataDir string) CredentialStore {
	k := NewKeyringStore(service)
	if k.Available() {
		return k
	}
	return &FileStore{Path: filepath.Join(dataDir, "identity.json")}
}
