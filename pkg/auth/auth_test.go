package authentication

import (
	"encoding/base64"
	"testing"
)

func TestBasicAuth(t *testing.T) {
	svc := NewBasicAuthService(&BasicAuthTConfig{Username: "admin", Password: "s3cret"})
	if !svc.Enabled() {
		t.Fatalf("expected auth to be enabled")
	}

	header := "Basic " + base64.StdEncoding.EncodeToString([]byte("admin:s3cret"))
	user, pass := svc.DecodeFromHeader(header)
	if !svc.Validate(user, pass) {
		t.Fatalf("expected credentials to validate")
	}
	if svc.Validate("admin", "wrong") {
		t.Fatalf("wrong password must be rejected")
	}

	if u, p := svc.DecodeFromHeader("Basic !!!"); u != "" || p != "" {
		t.Fatalf("malformed header must decode to empty credentials")
	}
}

func TestBasicAuth_DisabledWithoutCredentials(t *testing.T) {
	if NewBasicAuthService(&BasicAuthTConfig{}).Enabled() {
		t.Fatalf("auth without credentials must be disabled")
	}
	if NewBasicAuthService(nil).Enabled() {
		t.Fatalf("nil config must be disabled")
	}
}
