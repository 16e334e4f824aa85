package auth_test

import (
	"testing"
	"time"

	"github.com/whatease/backend/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	m := auth.NewManager("secret", time.Hour)

	token, expiresAt, err := m.GenerateToken("a@x.com")
	if err != nil {
		t.Fatalf("GenerateToken err: %v", err)
	}
	if time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry: %v", expiresAt)
	}

	email, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken err: %v", err)
	}
	if email != "a@x.com" {
		t.Fatalf("unexpected email: %q", email)
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	issuer := auth.NewManager("secret-one", time.Hour)
	verifier := auth.NewManager("secret-two", time.Hour)

	token, _, err := issuer.GenerateToken("a@x.com")
	if err != nil {
		t.Fatalf("GenerateToken err: %v", err)
	}
	if _, err := verifier.VerifyToken(token); err == nil {
		t.Fatal("expected verification failure with wrong secret")
	}
}

func TestVerifyTokenExpired(t *testing.T) {
	m := auth.NewManager("secret", -time.Minute)

	token, _, err := m.GenerateToken("a@x.com")
	if err != nil {
		t.Fatalf("GenerateToken err: %v", err)
	}
	if _, err := m.VerifyToken(token); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestVerifyTokenGarbage(t *testing.T) {
	m := auth.NewManager("secret", time.Hour)

	if _, err := m.VerifyToken("not-a-token"); err == nil {
		t.Fatal("expected garbage token to fail verification")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword err: %v", err)
	}
	if err := auth.CheckPassword(hash, "hunter2"); err != nil {
		t.Fatalf("CheckPassword err: %v", err)
	}
	if err := auth.CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch for wrong password")
	}
}
