package auth

import (
	"testing"
	"time"
)

func testConfig() Config {
	return NewConfig("test_secret_key_that_is_long_enough", "nexis-test", "nexis")
}

func TestGenerateAndVerifyTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	token, err := cfg.GenerateToken("nexis:human:alice@example.com", "human")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := cfg.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.Subject != "nexis:human:alice@example.com" {
		t.Fatalf("unexpected sub: %s", claims.Subject)
	}
	if claims.MemberType != "human" {
		t.Fatalf("unexpected member_type: %s", claims.MemberType)
	}
	if claims.Issuer != "nexis-test" {
		t.Fatalf("unexpected iss: %s", claims.Issuer)
	}
}

func TestVerifyTokenRejectsInvalidToken(t *testing.T) {
	cfg := testConfig()
	if _, err := cfg.VerifyToken("not-a-real-token"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyTokenRejectsTamperedSignature(t *testing.T) {
	cfg := testConfig()
	token, err := cfg.GenerateToken("sub", "human")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	other := NewConfig("a-different-secret-entirely", "nexis-test", "nexis")
	if _, err := other.VerifyToken(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestVerifyTokenDistinguishesExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.ExpirySeconds = -1
	token, err := cfg.GenerateToken("sub", "human")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := cfg.VerifyToken(token); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestGenerateTokenWithTenantRoundTrips(t *testing.T) {
	cfg := testConfig()
	token, err := cfg.GenerateTokenWithTenant("user1", "human", "tenant_acme")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := cfg.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.TenantID != "tenant_acme" {
		t.Fatalf("expected tenant_acme, got %s", claims.TenantID)
	}
}

func TestGenerateTokenWithoutTenantLeavesTenantEmpty(t *testing.T) {
	cfg := testConfig()
	token, err := cfg.GenerateToken("user1", "human")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := cfg.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if claims.TenantID != "" {
		t.Fatalf("expected empty tenant, got %s", claims.TenantID)
	}
}
