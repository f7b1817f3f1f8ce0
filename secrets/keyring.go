package secrets

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keychain service secrets are filed under.
const DefaultService = "system"

// Keyring stores secrets in the OS keychain.
type Keyring struct {
	Service string
}

func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultService
	}
	return &Keyring{Service: service}
}

func (k *Keyring) Get(key string) (string, error) {
	v, err := keyring.Get(k.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (k *Keyring) Set(key, value string) error {
	return keyring.Set(k.Service, key, value)
}

// Delete removes key. A missing key is not an error.
func (k *Keyring) Delete(key string) error {
	err := keyring.Delete(k.Service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
