package auth

import (
	"errors"
	"time"

	"github.com/geocoder89/safeguard/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoRole       = errors.New("token carries no role")
)

type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	JTI    string `json:"jti"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with the secret shared with the
// backend, so the Edge Gate can read the role without a round trip.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// Issue signs a token the way the backend does. Used by tests and local
// tooling; the console itself never mints credentials.
func (v *Verifier) Issue(userID, email string, role user.Role, ttl time.Duration) (string, error) {
	now := v.now().UTC()

	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   string(role),
		JTI:    uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func (v *Verifier) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRole returns the role a valid token carries.
func (v *Verifier) VerifyRole(tokenStr string) (user.Role, error) {
	claims, err := v.Parse(tokenStr)
	if err != nil {
		return "", err
	}

	role := user.Role(claims.Role)
	if !role.Valid() {
		return "", ErrNoRole
	}
	return role, nil
}
