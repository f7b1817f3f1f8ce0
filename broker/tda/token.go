package tda

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type tokenFile struct {
	AccessToken string `json:"access_token"`
	Token       *struct {
		AccessToken string `json:"access_token"`
	} `json:"token"`
}

// LoadToken reads an OAuth access token from a JSON token file. Both the
// flat {"access_token": ...} form and the nested {"token": {...}} form
// written by common TDA auth helpers are accepted.
func LoadToken(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", fmt.Errorf("parse token file %s: %w", path, err)
	}

	tok := strings.TrimSpace(tf.AccessToken)
	if tok == "" && tf.Token != nil {
		tok = strings.TrimSpace(tf.Token.AccessToken)
	}
	if tok == "" {
		return "", fmt.Errorf("token file %s: access_token is empty", path)
	}
	return tok, nil
}
