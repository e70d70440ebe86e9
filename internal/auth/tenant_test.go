package auth

import (
	"errors"
	"testing"
)

func TestExtractTenantFromClaimsReturnsContext(t *testing.T) {
	claims := &Claims{TenantID: "tenant_123"}
	ctx := ExtractTenantFromClaims(claims)
	if ctx == nil || ctx.TenantID != "tenant_123" {
		t.Fatalf("expected tenant context, got %+v", ctx)
	}
}

func TestExtractTenantFromClaimsReturnsNilWhenMissing(t *testing.T) {
	claims := &Claims{}
	if ExtractTenantFromClaims(claims) != nil {
		t.Fatal("expected nil tenant context when tenant_id is absent")
	}
}

func TestCheckTenantAccessAllowsSameTenant(t *testing.T) {
	ctx := &TenantContext{TenantID: "tenant_123"}
	if err := CheckTenantAccess(ctx, "tenant_123"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestCheckTenantAccessRejectsCrossTenant(t *testing.T) {
	ctx := &TenantContext{TenantID: "tenant_123"}
	err := CheckTenantAccess(ctx, "tenant_456")
	var crossErr *CrossTenantAccessError
	if err == nil {
		t.Fatal("expected CrossTenantAccessError")
	}
	crossErr, ok := err.(*CrossTenantAccessError)
	if !ok {
		t.Fatalf("expected *CrossTenantAccessError, got %T", err)
	}
	if crossErr.UserTenant != "tenant_123" || crossErr.ResourceTenant != "tenant_456" {
		t.Fatalf("unexpected error fields: %+v", crossErr)
	}
}

func TestCheckTenantAccessRejectsNilTenantContext(t *testing.T) {
	err := CheckTenantAccess(nil, "tenant_123")
	if !errors.Is(err, ErrMissingTenantContext) {
		t.Fatalf("expected ErrMissingTenantContext, got %v", err)
	}
}

func TestTenantStoreRegistersAndChecks(t *testing.T) {
	store := NewTenantStore()
	if store.Exists("tenant_123") {
		t.Fatal("expected tenant_123 to not exist yet")
	}
	store.Register("tenant_123")
	if !store.Exists("tenant_123") {
		t.Fatal("expected tenant_123 to exist after registration")
	}
}

func TestTenantStorePreventsDuplicates(t *testing.T) {
	store := NewTenantStore()
	store.Register("tenant_123")
	store.Register("tenant_123")
	if len(store.List()) != 1 {
		t.Fatalf("expected 1 tenant after duplicate registration, got %d", len(store.List()))
	}
}

func TestTenantStoreWithInitialTenants(t *testing.T) {
	store := NewTenantStoreWith([]string{"tenant_123", "tenant_456"})
	list := store.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(list))
	}
}
