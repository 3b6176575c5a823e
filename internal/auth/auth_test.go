package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/timmy/recipeclip/internal/domain"
)

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager("0123456789abcdef-secret", time.Hour)
	user := &domain.User{ID: 42, Username: "chef", Role: domain.RoleAdmin}

	token, expires, err := m.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Errorf("expires = %v, want in the future", expires)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != 42 || claims.Username != "chef" || !claims.IsAdmin() {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseRejects(t *testing.T) {
	m := NewTokenManager("0123456789abcdef-secret", time.Hour)
	token, _, err := m.Issue(&domain.User{ID: 1, Username: "a", Role: domain.RoleUser})
	if err != nil {
		t.Fatal(err)
	}

	other := NewTokenManager("another-secret-entirely", time.Hour)
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(wrong secret) error = %v, want ErrInvalidToken", err)
	}

	expired := NewTokenManager("0123456789abcdef-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := expired.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(expired) error = %v, want ErrInvalidToken", err)
	}

	if _, err := m.Parse("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Parse(garbage) error = %v, want ErrInvalidToken", err)
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "s3cret!" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword(hash, "s3cret!") {
		t.Error("CheckPassword(correct) = false")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("CheckPassword(wrong) = true")
	}
}
