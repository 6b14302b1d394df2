package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Minute)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if uid != "user-1" {
		t.Fatalf("user id = %q", uid)
	}

	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("session should be gone after delete")
	}
}

func TestRedisSessionStoreExpiry(t *testing.T) {
	redis := miniredis.RunT(t)
	s := NewRedisSessionStore(redis.Addr(), "", time.Second)

	token, err := s.NewSession("user-2")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	redis.FastForward(2 * time.Second)
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("session should expire")
	}
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret-test-secret", time.Minute, NewMemoryTokenRevoker(), JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if uid != "user-1" {
		t.Fatalf("user id = %q", uid)
	}
}

func TestJWTSessionStoreRejectsGarbage(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret-test-secret", time.Minute, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken("not.a.jwt"); ok || err != nil {
		t.Fatalf("garbage token: ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRevocation(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret-test-secret", time.Minute, NewMemoryTokenRevoker(), JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := s.NewSession("user-3")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.GetUserIDByToken(token); ok {
		t.Fatalf("revoked token should not validate")
	}
}

func TestJWTSessionStoreRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTSessionStore("secret-one-secret-one", time.Minute, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	verifier, err := NewJWTSessionStore("secret-two-secret-two", time.Minute, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, err := issuer.NewSession("user-4")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, _ := verifier.GetUserIDByToken(token); ok {
		t.Fatalf("token signed with other secret should not validate")
	}
}

func TestNewJWTSessionStoreRequiresSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("  ", time.Minute, nil, JWTOptions{}); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
