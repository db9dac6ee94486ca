// Package secrets resolves the signing secret the token provider needs at
// startup. The environment is the default source; Vault and AWS Secrets
// Manager are the managed alternatives.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// VaultSource reads one field of a KV v2 secret over the Vault HTTP API.
type VaultSource struct {
	addr       string
	token      string
	path       string
	field      string
	httpClient *http.Client
}

func NewVaultSource(addr, token, path, field string) *VaultSource {
	if field == "" {
		field = "token_secret"
	}
	return &VaultSource{
		addr:       strings.TrimRight(addr, "/"),
		token:      token,
		path:       strings.TrimLeft(path, "/"),
		field:      field,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *VaultSource) Fetch(ctx context.Context) (string, error) {
	if s == nil {
		return "", errors.New("vault source is nil")
	}
	if s.addr == "" || s.token == "" || s.path == "" {
		return "", errors.New("vault addr, token and path are required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.addr+"/v1/"+s.path, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Vault-Token", s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vault read failed: status %d", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			Data map[string]string `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return "", err
	}
	secret := envelope.Data.Data[s.field]
	if secret == "" {
		return "", fmt.Errorf("vault secret missing field %q", s.field)
	}
	return secret, nil
}
