package store

import (
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemorySessionStoreLifecycle(t *testing.T) {
	s := NewMemorySessionStore(time.Hour)
	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || uid != "u1" {
		t.Fatalf("resolve = (%q, %v, %v), want (u1, true, nil)", uid, ok, err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("token should be gone after delete")
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	s := NewMemorySessionStore(10 * time.Millisecond)
	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("token should have expired")
	}
}

func TestRedisSessionStoreLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisSessionStore(mr.Addr(), "", time.Hour)

	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || uid != "u1" {
		t.Fatalf("resolve = (%q, %v, %v), want (u1, true, nil)", uid, ok, err)
	}

	// TTL expiry
	mr.FastForward(2 * time.Hour)
	if _, ok, err := s.GetUserIDByToken(token); err != nil || ok {
		t.Fatalf("expired token = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestRedisSessionStoreDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisSessionStore(mr.Addr(), "", time.Hour)

	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatal("token should be gone after delete")
	}
	// deleting twice is fine
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore(testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || uid != "u1" {
		t.Fatalf("resolve = (%q, %v, %v), want (u1, true, nil)", uid, ok, err)
	}
}

func TestJWTSessionStoreRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestJWTSessionStoreRejectsTamperedToken(t *testing.T) {
	s, err := NewJWTSessionStore(testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	token, err := s.NewSession("u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	tampered := token + "x"
	if _, ok, err := s.GetUserIDByToken(tampered); err != nil || ok {
		t.Fatalf("tampered token = (%v, %v), want (false, nil)", ok, err)
	}
	if _, ok, err := s.GetUserIDByToken("not.a.jwt"); err != nil || ok {
		t.Fatalf("garbage token = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestJWTSessionStoreRejectsForeignSignature(t *testing.T) {
	s1, err := NewJWTSessionStore(testJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	s2, err := NewJWTSessionStore(strings.Repeat("z", 32), time.Hour)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	token, err := s1.NewSession("u1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, _ := s2.GetUserIDByToken(token); ok {
		t.Fatal("token signed with a different secret must not verify")
	}
}
