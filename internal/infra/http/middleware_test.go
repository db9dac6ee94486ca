package http

import (
	"context"
	"net/http"
	"testing"

	"backoffice/internal/domain"
)

func TestHostCandidate(t *testing.T) {
	cases := []struct {
		host string
		want string
	}{
		{"broker1.example.com", "broker1"},
		{"broker1.example.com:8080", "broker1"},
		{"Broker1.example.com", "broker1"},
		{"localhost", ""},
		{"localhost:3000", ""},
		{"127.0.0.1:3000", ""},
		{"[::1]:3000", ""},
		{"singlelabel", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := hostCandidate(tc.host); got != tc.want {
			t.Errorf("hostCandidate(%q) = %q, want %q", tc.host, got, tc.want)
		}
	}
}

func TestResolveTenant_Subdomain(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/auth/password/forgot",
		map[string]string{"email": "nobody@example.com"},
		requestOpts{host: "broker1.example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Broker-Slug"); got != "broker1" {
		t.Fatalf("X-Broker-Slug = %q, want broker1", got)
	}
}

func TestResolveTenant_BareHostFallsBackToDefault(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/auth/password/forgot",
		map[string]string{"email": "nobody@example.com"},
		requestOpts{host: "localhost:3000"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Broker-Slug"); got != "primary" {
		t.Fatalf("X-Broker-Slug = %q, want primary", got)
	}
}

func TestResolveTenant_UnknownHostRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/auth/password/forgot",
		map[string]string{"email": "nobody@example.com"},
		requestOpts{host: "ghost.example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestResolveTenant_HeaderOverridesHost(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/auth/password/forgot",
		map[string]string{"email": "nobody@example.com"},
		requestOpts{host: "localhost:3000"})
	if got := rec.Header().Get("X-Broker-Slug"); got != "primary" {
		t.Fatalf("X-Broker-Slug = %q, want primary", got)
	}

	// Same bare host, explicit slug header picks the other tenant.
	rec = env.do(t, http.MethodPost, "/api/auth/password/forgot",
		map[string]string{"email": "nobody@example.com"},
		requestOpts{host: "localhost:3000", slug: "broker1"})
	if got := rec.Header().Get("X-Broker-Slug"); got != "broker1" {
		t.Fatalf("X-Broker-Slug = %q, want broker1", got)
	}
}

func TestResolveTenant_InactiveBrokerInvisible(t *testing.T) {
	env := newTestEnv(t)
	if err := env.brokers.UpdateStatus(context.Background(), testBrokerID, domain.BrokerInactive); err != nil {
		t.Fatalf("update status: %v", err)
	}
	rec := env.do(t, http.MethodPost, "/api/auth/password/forgot",
		map[string]string{"email": "nobody@example.com"},
		requestOpts{host: "broker1.example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
