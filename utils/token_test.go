package utils_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/grocerypos/pos_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJwtGenerate_RoundTrip(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")

	token, claims, err := utils.JwtGenerate(utils.SessionClaims{
		UserId:   42,
		Role:     "owner",
		TenantId: "6a1f0c1e-1111-4c2b-9a51-6f1c2f9d0a10",
		Email:    "owner@corner.test",
	}, 30*time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, claims.Id)
	assert.Equal(t, "42", claims.Subject)

	parsed, err := utils.JwtValidate(token)
	require.NoError(t, err)
	assert.Equal(t, "owner", parsed.Role)
	assert.Equal(t, "6a1f0c1e-1111-4c2b-9a51-6f1c2f9d0a10", parsed.TenantId)
	assert.Equal(t, claims.Id, parsed.Id)
	assert.InDelta(t, time.Now().Add(30*time.Minute).Unix(), parsed.ExpiresAt, 5)

	userId, err := parsed.UserId()
	require.NoError(t, err)
	assert.Equal(t, 42, userId)
}

func TestJwtGenerate_UniqueTokenIds(t *testing.T) {
	claims := utils.SessionClaims{UserId: 1, Role: "cashier", TenantId: "t-1"}
	_, a, err := utils.JwtGenerate(claims, time.Minute)
	require.NoError(t, err)
	_, b, err := utils.JwtGenerate(claims, time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, a.Id, b.Id)

	_, _, err = utils.JwtGenerate(claims, 0)
	assert.Error(t, err)
}

func TestJwtValidate_Rejects(t *testing.T) {
	t.Setenv("API_SECRET", "test-secret")
	token, _, err := utils.JwtGenerate(utils.SessionClaims{UserId: 7, Role: "owner", TenantId: "t-1"}, time.Minute)
	require.NoError(t, err)

	t.Run("tampered", func(t *testing.T) {
		parts := strings.Split(token, ".")
		require.Len(t, parts, 3)
		_, err := utils.JwtValidate(parts[0] + "." + parts[1] + ".AAAA")
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		t.Setenv("API_SECRET", "another-secret")
		_, err := utils.JwtValidate(token)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &utils.JwtCustomClaim{
			Role:     "owner",
			TenantId: "t-1",
			StandardClaims: jwt.StandardClaims{
				Subject:   "7",
				ExpiresAt: time.Now().Add(-time.Minute).Unix(),
			},
		})
		signed, err := expired.SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = utils.JwtValidate(signed)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("missing tenant", func(t *testing.T) {
		noTenant := jwt.NewWithClaims(jwt.SigningMethodHS256, &utils.JwtCustomClaim{
			Role: "owner",
			StandardClaims: jwt.StandardClaims{
				Subject:   "7",
				ExpiresAt: time.Now().Add(time.Minute).Unix(),
			},
		})
		signed, err := noTenant.SignedString([]byte("test-secret"))
		require.NoError(t, err)
		_, err = utils.JwtValidate(signed)
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := utils.JwtValidate("not-a-token")
		assert.ErrorIs(t, err, utils.ErrInvalidToken)
	})
}

func TestJwtCustomClaim_UserIdRejectsBadSubject(t *testing.T) {
	claims := &utils.JwtCustomClaim{StandardClaims: jwt.StandardClaims{Subject: "abc"}}
	_, err := claims.UserId()
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	claims.Subject = "0"
	_, err = claims.UserId()
	assert.ErrorIs(t, err, utils.ErrInvalidToken)
}

func TestJwtSecret_DevelopmentFallback(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("API_SECRET", "")

	require.NoError(t, utils.CheckJwtSecret())
	token, _, err := utils.JwtGenerate(utils.SessionClaims{UserId: 1, Role: "owner", TenantId: "t-1"}, time.Minute)
	require.NoError(t, err)
	_, err = utils.JwtValidate(token)
	assert.NoError(t, err)
}

func TestJwtSecret_RequiredInProduction(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	t.Setenv("API_SECRET", "")
	devToken, _, err := utils.JwtGenerate(utils.SessionClaims{UserId: 1, Role: "owner", TenantId: "t-1"}, time.Minute)
	require.NoError(t, err)

	t.Setenv("GO_ENV", "production")
	assert.ErrorIs(t, utils.CheckJwtSecret(), utils.ErrJwtSecretMissing)

	_, _, err = utils.JwtGenerate(utils.SessionClaims{UserId: 1, Role: "owner", TenantId: "t-1"}, time.Minute)
	assert.ErrorIs(t, err, utils.ErrJwtSecretMissing)

	// a token signed with the development secret is rejected
	_, err = utils.JwtValidate(devToken)
	assert.ErrorIs(t, err, utils.ErrInvalidToken)

	t.Setenv("API_SECRET", "prod-secret")
	assert.NoError(t, utils.CheckJwtSecret())
}
