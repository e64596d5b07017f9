package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/safeguard/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

func TestVerifyRole(t *testing.T) {
	v := NewVerifier("secret")

	admin, err := v.Issue("u-1", "a@b.c", user.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	role, err := v.VerifyRole(admin)
	if err != nil || role != user.RoleAdmin {
		t.Fatalf("role = %q, err = %v", role, err)
	}

	plain, _ := v.Issue("u-2", "d@e.f", user.RoleUser, time.Hour)
	if role, _ := v.VerifyRole(plain); role != user.RoleUser {
		t.Fatalf("role = %q", role)
	}
}

func TestVerifyRole_Rejects(t *testing.T) {
	v := NewVerifier("secret")
	other := NewVerifier("other-secret")

	forged, _ := other.Issue("u-1", "a@b.c", user.RoleAdmin, time.Hour)
	expired, _ := v.Issue("u-1", "a@b.c", user.RoleAdmin, -time.Minute)
	noRole, _ := v.Issue("u-1", "a@b.c", "", time.Hour)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"role": "ADMIN"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"wrong secret", forged, ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"alg none", unsigned, ErrInvalidToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"missing role", noRole, ErrNoRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.VerifyRole(tt.token)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
