package auth

import (
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/julianstephens/rehab/internal/constants"
	apperrors "github.com/julianstephens/rehab/internal/errors"
	"github.com/julianstephens/rehab/internal/keyring"
)

// ErrInvalidToken covers malformed, expired and wrongly signed tokens
var ErrInvalidToken = apperrors.New(apperrors.KindUnauthorized, "invalid or expired token")

// minSecretLen is the shortest HS256 key accepted
const minSecretLen = 32

// Claims is the JWT payload
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) (*Issuer, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("JWT secret must be at least %d bytes", minSecretLen)
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

// ResolveSecret returns REHAB_JWT_SECRET or the keyring entry
func ResolveSecret() string {
	if s := os.Getenv("REHAB_JWT_SECRET"); s != "" {
		return s
	}
	return keyring.Lookup(keyring.SecretJWT)
}

// Issue signs a token for id that expires after ttl
func (i *Issuer) Issue(id Identity, ttl time.Duration) (string, error) {
	if !id.Valid() {
		return "", ErrNoIdentity
	}
	now := i.now()
	claims := Claims{
		Name:  id.DisplayName,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    constants.AppName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the identity
func (i *Issuer) Verify(token string) (Identity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(constants.AppName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := Identity{UserID: claims.Subject, DisplayName: claims.Name, Email: claims.Email}
	if !id.Valid() {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}
