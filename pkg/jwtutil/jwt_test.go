package jwtutil

import (
	"testing"
	"time"
)

func TestSignAndValidate(t *testing.T) {
	m := NewManager("test-secret", "classbank", time.Hour)

	token, err := m.Sign("42", "teacher", "01ARZ3NDEKTSV4RRFFQ69G5FAV")
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	claims, err := m.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate() error: %v", err)
	}
	if claims.UserID != "42" {
		t.Errorf("UserID = %q, want 42", claims.UserID)
	}
	if claims.Role != "teacher" {
		t.Errorf("Role = %q, want teacher", claims.Role)
	}
	if claims.SessionID != "01ARZ3NDEKTSV4RRFFQ69G5FAV" {
		t.Errorf("SessionID = %q", claims.SessionID)
	}
}

func TestParseAndValidate_Expired(t *testing.T) {
	m := NewManager("test-secret", "classbank", -time.Minute)
	token, err := m.Sign("42", "student", "sid")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.ParseAndValidate(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestParseAndValidate_WrongSecret(t *testing.T) {
	good := NewManager("secret-a", "classbank", time.Hour)
	evil := NewManager("secret-b", "classbank", time.Hour)

	token, err := good.Sign("42", "student", "sid")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := evil.ParseAndValidate(token); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestParseAndValidate_WrongIssuer(t *testing.T) {
	a := NewManager("secret", "classbank", time.Hour)
	b := NewManager("secret", "otherbank", time.Hour)

	token, err := a.Sign("42", "student", "sid")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.ParseAndValidate(token); err == nil {
		t.Error("expected token from another issuer to be rejected")
	}
}

func TestParseAndValidate_Garbage(t *testing.T) {
	m := NewManager("secret", "classbank", time.Hour)
	if _, err := m.ParseAndValidate("not.a.token"); err == nil {
		t.Error("expected garbage token to be rejected")
	}
}
