package secrets

import (
	"errors"
	"fmt"
	"strings"
)

const (
	KeyAPIKey      = "tda_api_key"
	KeyCallbackURI = "tda_callback_uri"
)

var ErrNotFound = errors.New("secret not found")

// Store reads and writes secrets by key.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Prompter asks the user for the value of key, offering current (which may
// be empty) as the default.
type Prompter interface {
	Prompt(key, current string) (string, error)
}

// Require returns the stored value of key. When it is missing and a
// prompter is given, the user is asked and the answer is stored.
func Require(store Store, key string, p Prompter) (string, error) {
	v, err := store.Get(key)
	if err == nil && v != "" {
		return v, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}
	if p == nil {
		return "", fmt.Errorf("%s not set: %w", key, ErrNotFound)
	}
	return Configure(store, key, p)
}

// Configure prompts for key (defaulting to its current value) and stores
// the answer.
func Configure(store Store, key string, p Prompter) (string, error) {
	current, err := store.Get(key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}

	v, err := p.Prompt(key, current)
	if err != nil {
		return "", err
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", fmt.Errorf("%s: empty value", key)
	}

	if err := store.Set(key, v); err != nil {
		return "", fmt.Errorf("store secret %s: %w", key, err)
	}
	return v, nil
}
