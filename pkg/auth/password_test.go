package auth

import (
	"errors"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "secret123" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !CheckPassword("secret123", hash) {
		t.Fatal("correct password should verify")
	}
	if CheckPassword("wrong-password", hash) {
		t.Fatal("wrong password must not verify")
	}
	if CheckPassword("secret123", "not-a-bcrypt-hash") {
		t.Fatal("garbage hash must not verify")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("12345"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("short password error = %v, want ErrPasswordTooShort", err)
	}
	if err := ValidatePassword("123456"); err != nil {
		t.Fatalf("six characters should pass: %v", err)
	}
}
