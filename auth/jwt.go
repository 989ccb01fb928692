package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/errors"
)

// JWTClaims extends the registered claims with the fields Sakura consumes
type JWTClaims struct {
	jwt.RegisteredClaims
	Role             Role             `json:"role"`
	AccountCreatedAt *jwt.NumericDate `json:"account_created_at"`
}

// JWTManager issues and validates HS256 tokens
type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTManager creates a manager from config. An empty secret is replaced by a
// random one, which invalidates every token on restart; set auth.jwt_secret in
// production.
func NewJWTManager(cfg *am.Config) (*JWTManager, error) {
	secret := cfg.Auth.JWTSecret
	if secret == "" {
		generated, err := generateSecureSecret(32)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate JWT secret")
		}
		secret = generated
	}

	issuer := cfg.Auth.Issuer
	if issuer == "" {
		issuer = "sakura"
	}

	return &JWTManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    cfg.TokenTTL(),
		now:    time.Now,
	}, nil
}

// GenerateToken signs a token for user
func (m *JWTManager) GenerateToken(user User) (string, error) {
	if user.Username == "" {
		return "", errors.NewInvalidRequestError("username is required")
	}
	if _, err := ParseRole(string(user.Role)); err != nil {
		return "", err
	}

	now := m.now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Role:             user.Role,
		AccountCreatedAt: jwt.NewNumericDate(user.CreatedAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken parses a token and returns the user it identifies
func (m *JWTManager) ValidateToken(tokenString string) (*User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, errors.Wrap(errors.Wrap(errors.ErrUnauthorized, err.Error()), "invalid token")
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.AccountCreatedAt == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid token claims")
	}

	role, err := ParseRole(string(claims.Role))
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "invalid role claim")
	}

	return &User{
		Username:  claims.Subject,
		Role:      role,
		CreatedAt: claims.AccountCreatedAt.Time,
	}, nil
}

func generateSecureSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "failed to generate random bytes")
	}
	return hex.EncodeToString(b), nil
}
