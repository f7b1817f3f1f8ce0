package secrets

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

type memStore map[string]string

func (m memStore) Get(key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m memStore) Set(key, value string) error {
	m[key] = value
	return nil
}

type answer struct {
	value   string
	err     error
	asked   []string
	current []string
}

func (a *answer) Prompt(key, current string) (string, error) {
	a.asked = append(a.asked, key)
	a.current = append(a.current, current)
	return a.value, a.err
}

func TestRequire(t *testing.T) {
	t.Parallel()

	store := memStore{KeyAPIKey: "ABC"}
	p := &answer{value: "unused"}

	v, err := Require(store, KeyAPIKey, p)
	require.NoError(t, err)
	assert.Equal(t, "ABC", v)
	assert.Empty(t, p.asked, "present keys are not prompted")

	p.value = " https://127.0.0.1 "
	v, err = Require(store, KeyCallbackURI, p)
	require.NoError(t, err)
	assert.Equal(t, "https://127.0.0.1", v)
	assert.Equal(t, []string{KeyCallbackURI}, p.asked)
	assert.Equal(t, "https://127.0.0.1", store[KeyCallbackURI])
}

func TestRequireWithoutPrompter(t *testing.T) {
	t.Parallel()

	_, err := Require(memStore{}, KeyAPIKey, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequirePromptFails(t *testing.T) {
	t.Parallel()

	store := memStore{}
	_, err := Require(store, KeyAPIKey, &answer{err: errors.New("closed")})
	assert.Error(t, err)

	_, err = Require(store, KeyAPIKey, &answer{value: "   "})
	assert.Error(t, err)
	assert.Empty(t, store)
}

func TestConfigureOffersCurrent(t *testing.T) {
	t.Parallel()

	store := memStore{KeyAPIKey: "OLD"}
	p := &answer{value: "NEW"}

	v, err := Configure(store, KeyAPIKey, p)
	require.NoError(t, err)
	assert.Equal(t, "NEW", v)
	assert.Equal(t, []string{"OLD"}, p.current)
	assert.Equal(t, "NEW", store[KeyAPIKey])
}

func TestKeyring(t *testing.T) {
	keyring.MockInit()

	k := NewKeyring("")
	assert.Equal(t, DefaultService, k.Service)

	_, err := k.Get(KeyAPIKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, k.Set(KeyAPIKey, "ABC"))
	v, err := k.Get(KeyAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "ABC", v)

	v, err = Require(k, KeyCallbackURI, &answer{value: "https://localhost"})
	require.NoError(t, err)
	assert.Equal(t, "https://localhost", v)

	require.NoError(t, k.Delete(KeyAPIKey))
	require.NoError(t, k.Delete(KeyAPIKey))
	_, err = k.Get(KeyAPIKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnv(t *testing.T) {
	t.Setenv("TDA_API_KEY", "")
	t.Setenv("TDA_CALLBACK_URI", "")

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TDA_API_KEY=FROMFILE\n"), 0o600))
	os.Unsetenv("TDA_API_KEY")

	e, err := NewEnv(path)
	require.NoError(t, err)

	v, err := e.Get(KeyAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "FROMFILE", v)

	_, err = e.Get(KeyCallbackURI)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, e.Set(KeyCallbackURI, "https://localhost"))
	v, err = e.Get(KeyCallbackURI)
	require.NoError(t, err)
	assert.Equal(t, "https://localhost", v)

	vars, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "FROMFILE", vars["TDA_API_KEY"])
	assert.Equal(t, "https://localhost", vars["TDA_CALLBACK_URI"])
}

func TestEnvMissingFile(t *testing.T) {
	e, err := NewEnv(filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestLinePrompter(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("typed\n\n"), &out)

	v, err := p.Prompt(KeyAPIKey, "")
	require.NoError(t, err)
	assert.Equal(t, "typed", v)
	assert.Equal(t, "tda_api_key: ", out.String())

	out.Reset()
	v, err = p.Prompt(KeyAPIKey, "keep")
	require.NoError(t, err)
	assert.Equal(t, "keep", v)
	assert.Equal(t, "tda_api_key [keep]: ", out.String())

	_, err = p.Prompt(KeyCallbackURI, "")
	assert.Error(t, err, "EOF with nothing to default to")
}
