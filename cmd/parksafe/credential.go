package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "parksafe"

// tokenStore keeps session tokens per server URL
type tokenStore interface {
	Get(server string) (string, error)
	Set(server, token string) error
	Delete(server string) error
}

var errNotSignedIn = errors.New("not signed in, run: parksafe login")

// openTokens is replaced in tests
var openTokens = func() (tokenStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  filepath.Join(dir, "parksafe", "credentials"),
		FilePasswordFunc:         keyring.FixedStringPrompt("parksafe-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return keyringStore{ring: ring}, nil
}

type keyringStore struct {
	ring keyring.Keyring
}

func (k keyringStore) Get(server string) (string, error) {
	item, err := k.ring.Get("token:" + server)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", errNotSignedIn
	}
	if err != nil {
		return "", fmt.Errorf("getting token: %w", err)
	}
	return string(item.Data), nil
}

func (k keyringStore) Set(server, token string) error {
	if err := k.ring.Set(keyring.Item{Key: "token:" + server, Data: []byte(token)}); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	return nil
}

func (k keyringStore) Delete(server string) error {
	err := k.ring.Remove("token:" + server)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}
