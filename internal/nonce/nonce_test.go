package nonce

import (
	"errors"
	"testing"
	"time"
)

func TestCreateVerify(t *testing.T) {
	issuer, err := NewIssuer("0123456789abcdef", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	token, err := issuer.Create("recruitpro_newsletter_signup")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := issuer.Verify(token, "recruitpro_newsletter_signup"); err != nil {
		t.Errorf("Expected token to verify, got %v", err)
	}
}

func TestVerifyRejectsOtherAction(t *testing.T) {
	issuer, _ := NewIssuer("0123456789abcdef", time.Hour, nil)
	token, _ := issuer.Create("recruitpro_newsletter_signup")

	err := issuer.Verify(token, "recruitpro_maintenance_newsletter")
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	issuer, _ := NewIssuer("0123456789abcdef", time.Minute, func() time.Time { return now })
	token, _ := issuer.Create("a")

	now = now.Add(2 * time.Minute)
	if err := issuer.Verify(token, "a"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for expired token, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a, _ := NewIssuer("0123456789abcdef", time.Hour, nil)
	b, _ := NewIssuer("fedcba9876543210", time.Hour, nil)
	token, _ := a.Create("a")

	if err := b.Verify(token, "a"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid for foreign secret, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	issuer, _ := NewIssuer("0123456789abcdef", time.Hour, nil)
	for _, token := range []string{"", "   ", "not-a-token", "a.b.c"} {
		if err := issuer.Verify(token, "a"); !errors.Is(err, ErrInvalid) {
			t.Errorf("Expected ErrInvalid for %q, got %v", token, err)
		}
	}
}

func TestNewIssuerValidation(t *testing.T) {
	if _, err := NewIssuer("", time.Hour, nil); err == nil {
		t.Error("Expected error for empty secret")
	}
	if _, err := NewIssuer("secret", 0, nil); err == nil {
		t.Error("Expected error for zero ttl")
	}
}
