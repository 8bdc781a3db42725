package models_test

import (
	"context"
	"testing"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/models"
	"github.com/grocerypos/pos_backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_LocksAfterFiveFailures(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	signupStore(t, "owner@corner.test", "")

	for i := 1; i < config.MaxFailedLoginAttempts; i++ {
		_, err := models.Login(ctx, "owner@corner.test", "Wrong@123", false)
		require.ErrorIs(t, err, models.ErrInvalidCredentials, "attempt %d", i)
		assert.Equal(t, i, loadUser(t, db, "owner@corner.test").FailedLoginAttempts)
	}

	_, err := models.Login(ctx, "owner@corner.test", "Wrong@123", false)
	require.ErrorIs(t, err, models.ErrAccountLocked)

	user := loadUser(t, db, "owner@corner.test")
	assert.True(t, user.IsLocked)
	assert.Equal(t, config.MaxFailedLoginAttempts, user.FailedLoginAttempts)

	// the correct password no longer helps
	_, err = models.Login(ctx, "owner@corner.test", testPassword, false)
	require.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Equal(t, config.MaxFailedLoginAttempts, loadUser(t, db, "owner@corner.test").FailedLoginAttempts)

	require.NoError(t, models.UnlockUser(ctx, "owner@corner.test"))
	info, err := models.Login(ctx, "owner@corner.test", testPassword, false)
	require.NoError(t, err)
	assert.NotEmpty(t, info.AccessToken)
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	signup := signupStore(t, "owner@corner.test", "corner01")

	for i := 0; i < 2; i++ {
		_, err := models.Login(ctx, "owner@corner.test", "Wrong@123", false)
		require.ErrorIs(t, err, models.ErrInvalidCredentials)
	}
	require.Equal(t, 2, loadUser(t, db, "owner@corner.test").FailedLoginAttempts)

	info, err := models.Login(ctx, "  Owner@Corner.TEST ", testPassword, false)
	require.NoError(t, err)

	user := loadUser(t, db, "owner@corner.test")
	assert.Zero(t, user.FailedLoginAttempts)
	assert.False(t, user.IsLocked)
	assert.NotNil(t, user.LastLogin)

	assert.Equal(t, models.TokenTypeBearer, info.TokenType)
	assert.Equal(t, int64(config.AccessTokenLifespan().Seconds()), info.ExpiresIn)
	assert.Equal(t, "CORNER01", info.Store.StoreCode)
	assert.Equal(t, models.SubscriptionStatusActive, info.SubscriptionStatus)
	assert.Equal(t, models.UserRoleOwner, info.User.Role)

	claims, err := utils.JwtValidate(info.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, signup.StoreId, claims.TenantId)
	assert.Equal(t, string(models.UserRoleOwner), claims.Role)
	userId, err := claims.UserId()
	require.NoError(t, err)
	assert.Equal(t, signup.UserId, userId)
}

func TestLogin_RememberMeExtendsLifetime(t *testing.T) {
	setupTestDB(t)
	signupStore(t, "owner@corner.test", "")

	info, err := models.Login(context.Background(), "owner@corner.test", testPassword, true)
	require.NoError(t, err)
	assert.Equal(t, int64((config.AccessTokenLifespan() * config.RememberMeMultiplier).Seconds()), info.ExpiresIn)
}

func TestLogin_UnknownEmail(t *testing.T) {
	setupTestDB(t)

	_, err := models.Login(context.Background(), "nobody@corner.test", testPassword, false)
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = models.Login(context.Background(), "", "", false)
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLogin_ExpiredSubscriptionLeavesCountersUntouched(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	signup := signupStore(t, "owner@corner.test", "")

	_, err := models.Login(ctx, "owner@corner.test", "Wrong@123", false)
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
	require.NoError(t, models.SetSubscriptionStatus(ctx, signup.StoreId, models.SubscriptionStatusExpired))
	before := loadUser(t, db, "owner@corner.test")

	_, err = models.Login(ctx, "owner@corner.test", testPassword, false)
	require.ErrorIs(t, err, models.ErrSubscriptionExpired)
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, utils.KindSubscription, appErr.Kind)

	after := loadUser(t, db, "owner@corner.test")
	assert.Equal(t, before.FailedLoginAttempts, after.FailedLoginAttempts)
	assert.Equal(t, before.IsLocked, after.IsLocked)
	assert.Nil(t, after.LastLogin)

	// a wrong password is still reported as bad credentials
	_, err = models.Login(ctx, "owner@corner.test", "Wrong@123", false)
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestLogin_DisabledUser(t *testing.T) {
	db := setupTestDB(t)
	signupStore(t, "owner@corner.test", "")
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "owner@corner.test").Update("is_active", false).Error)

	_, err := models.Login(context.Background(), "owner@corner.test", testPassword, false)
	require.ErrorIs(t, err, models.ErrAccountDisabled)
	assert.Zero(t, loadUser(t, db, "owner@corner.test").FailedLoginAttempts)
}

func TestLogout_RequiresToken(t *testing.T) {
	ok, err := models.Logout(context.Background())
	require.ErrorIs(t, err, models.ErrUnauthorized)
	assert.False(t, ok)

	ctx := utils.SetTokenIdInContext(context.Background(), "jti-1")
	ctx = utils.SetTokenExpiryInContext(ctx, 0)
	// revocation of an already expired token is a no-op
	ok, err = models.Logout(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlockUser_UnknownEmail(t *testing.T) {
	setupTestDB(t)
	require.ErrorIs(t, models.UnlockUser(context.Background(), "ghost@corner.test"), utils.ErrorRecordNotFound)
}
