package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"backoffice/internal/config"
)

func TestVaultSource_FetchesField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "root-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path != "/v1/secret/data/backoffice" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"data":{"data":{"token_secret":"from-vault"}}}`))
	}))
	defer server.Close()

	source := NewVaultSource(server.URL, "root-token", "secret/data/backoffice", "")
	secret, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if secret != "from-vault" {
		t.Fatalf("secret = %q, want from-vault", secret)
	}
}

func TestVaultSource_MissingFieldErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"data":{"other":"x"}}}`))
	}))
	defer server.Close()

	source := NewVaultSource(server.URL, "root-token", "secret/data/backoffice", "token_secret")
	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error for a missing field")
	}
}

func TestVaultSource_NonOKStatusErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := NewVaultSource(server.URL, "root-token", "secret/data/backoffice", "")
	if _, err := source.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error on 503")
	}
}

func TestAWSSource_FetchesSecretString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Amz-Target") != "secretsmanager.GetSecretValue" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"SecretString":"from-aws"}`))
	}))
	defer server.Close()

	source := NewAWSSource(server.URL, "us-east-1", "AKIA", "secret", "", "backoffice/token")
	secret, err := source.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if secret != "from-aws" {
		t.Fatalf("secret = %q, want from-aws", secret)
	}
}

func TestResolve_EnvSource(t *testing.T) {
	cfg := &config.Config{TokenSecret: "plain"}
	secret, err := Resolve(context.Background(), cfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if secret != "plain" {
		t.Fatalf("secret = %q", secret)
	}

	cfg = &config.Config{}
	if _, err := Resolve(context.Background(), cfg); err == nil {
		t.Fatal("expected an error with no TOKEN_SECRET")
	}
}

func TestResolve_UnknownSourceErrors(t *testing.T) {
	cfg := &config.Config{Secrets: config.SecretsConfig{Source: "etcd"}}
	if _, err := Resolve(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for an unknown source")
	}
}
