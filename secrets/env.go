package secrets

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Env reads secrets from environment variables named after the upper-cased
// key (tda_api_key -> TDA_API_KEY). Values set through Set are also written
// to the .env file at Path when one is configured.
type Env struct {
	Path string
}

// NewEnv loads path (if it exists) into the process environment without
// overriding variables that are already set.
func NewEnv(path string) (*Env, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return &Env{Path: path}, nil
}

func envName(key string) string {
	return strings.ToUpper(key)
}

func (e *Env) Get(key string) (string, error) {
	v, ok := os.LookupEnv(envName(key))
	if !ok || v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (e *Env) Set(key, value string) error {
	if err := os.Setenv(envName(key), value); err != nil {
		return err
	}
	if e.Path == "" {
		return nil
	}

	vars, err := godotenv.Read(e.Path)
	if errors.Is(err, fs.ErrNotExist) {
		vars = map[string]string{}
	} else if err != nil {
		return err
	}
	vars[envName(key)] = value
	return godotenv.Write(vars, e.Path)
}
