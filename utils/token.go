package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/grocerypos/pos_backend/config"
)

// JwtCustomClaim is the session token payload. Subject holds the user id.
type JwtCustomClaim struct {
	Role     string `json:"role"`
	TenantId string `json:"tenant_id"`
	Email    string `json:"email,omitempty"`
	jwt.StandardClaims
}

// SessionClaims is what callers hand to JwtGenerate.
type SessionClaims struct {
	UserId   int
	Role     string
	TenantId string
	Email    string
}

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrJwtSecretMissing = errors.New("API_SECRET must be set in production")
)

const devJwtSecret = "GroceryPOS-Secret"

// CheckJwtSecret fails when tokens would be signed with the development secret in production.
func CheckJwtSecret() error {
	_, err := getJwtSecret()
	return err
}

func getJwtSecret() ([]byte, error) {
	secret := os.Getenv("API_SECRET")
	if secret != "" {
		return []byte(secret), nil
	}
	if config.IsProduction() {
		return nil, ErrJwtSecretMissing
	}
	return []byte(devJwtSecret), nil
}

// JwtGenerate signs a session token valid for ttl. It returns the token and its claims.
func JwtGenerate(claims SessionClaims, ttl time.Duration) (string, *JwtCustomClaim, error) {
	if ttl <= 0 {
		return "", nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	now := time.Now()
	custom := &JwtCustomClaim{
		Role:     claims.Role,
		TenantId: claims.TenantId,
		Email:    claims.Email,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   strconv.Itoa(claims.UserId),
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
	}

	secret, err := getJwtSecret()
	if err != nil {
		return "", nil, err
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, custom)
	token, err := t.SignedString(secret)
	if err != nil {
		return "", nil, err
	}
	return token, custom, nil
}

// JwtValidate verifies signature and expiry and returns the claims.
func JwtValidate(token string) (*JwtCustomClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return getJwtSecret()
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TenantId == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserId parses the numeric subject.
func (c *JwtCustomClaim) UserId() (int, error) {
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
