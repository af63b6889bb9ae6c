package auth

import (
	"testing"
	"time"

	"komunitas/pendataan/internal/model"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	token, err := NewAccessToken("secret", "pendataan", time.Minute, Claims{UserID: "u1", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseToken("secret", "pendataan", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != model.RoleAdmin {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Subject != "u1" {
		t.Fatalf("expected subject u1, got %q", claims.Subject)
	}
	actor := claims.Actor()
	if !actor.IsAdmin() {
		t.Fatalf("expected admin actor")
	}
}

func TestParseTokenRejects(t *testing.T) {
	valid, err := NewAccessToken("secret", "pendataan", time.Minute, Claims{UserID: "u1", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	expired, err := NewAccessToken("secret", "pendataan", -time.Minute, Claims{UserID: "u1", Role: model.RoleUser})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	noRole, err := NewAccessToken("secret", "pendataan", time.Minute, Claims{UserID: "u1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	cases := map[string]struct {
		secret string
		issuer string
		token  string
	}{
		"wrong secret": {"other", "pendataan", valid},
		"wrong issuer": {"secret", "elsewhere", valid},
		"expired":      {"secret", "pendataan", expired},
		"no role":      {"secret", "pendataan", noRole},
		"garbage":      {"secret", "pendataan", "not-a-token"},
	}
	for name, tc := range cases {
		if _, err := ParseToken(tc.secret, tc.issuer, tc.token); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestNilClaimsActor(t *testing.T) {
	var claims *Claims
	if claims.Actor() != nil {
		t.Fatalf("expected nil actor")
	}
}
