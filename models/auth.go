package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const TokenTypeBearer = "bearer"

type LoginInfo struct {
	AccessToken        string             `json:"access_token"`
	TokenType          string             `json:"token_type"`
	ExpiresIn          int64              `json:"expires_in"`
	User               UserInfo           `json:"user"`
	Store              StoreInfo          `json:"store"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	Message            string             `json:"message"`
}

// Login verifies credentials and drives the lockout state machine.
// Failed attempts are committed before the error is returned.
func Login(ctx context.Context, email string, password string, rememberMe bool) (*LoginInfo, error) {
	email = utils.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	release, err := utils.ObtainLock(ctx, "login", email, 10*time.Second, "Login", "Login")
	if err != nil {
		return nil, ErrLoginBusy
	}
	defer release()

	db := config.GetDB()
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	user, err := getUserByEmail(ctx, db, email)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user.IsLocked {
		return nil, ErrAccountLocked
	}

	// check login credentials
	if err := utils.ComparePassword(user.HashedPassword, password); err != nil {
		return nil, recordFailedLogin(ctx, db, user.ID)
	}

	if !user.active() {
		return nil, ErrAccountDisabled
	}

	tenant, err := getTenant(ctx, db, user.TenantId)
	if err != nil {
		return nil, fmt.Errorf("load tenant of user %d: %w", user.ID, err)
	}
	if !tenant.SubscriptionStatus.IsActive() {
		return nil, ErrSubscriptionExpired
	}

	if err := recordSuccessfulLogin(ctx, db, user); err != nil {
		return nil, err
	}

	token, expiresIn, err := issueSession(*user, rememberMe)
	if err != nil {
		return nil, err
	}

	return &LoginInfo{
		AccessToken:        token,
		TokenType:          TokenTypeBearer,
		ExpiresIn:          expiresIn,
		User:               user.Info(),
		Store:              tenant.Info(),
		SubscriptionStatus: tenant.SubscriptionStatus,
		Message:            "Login successful",
	}, nil
}

// recordFailedLogin increments the counter under a row lock and locks the account on the last allowed failure.
func recordFailedLogin(ctx context.Context, db *gorm.DB, userId int) error {
	var result error = ErrInvalidCredentials
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", userId).Take(&user).Error; err != nil {
			return err
		}
		if user.IsLocked {
			result = ErrAccountLocked
			return nil
		}

		user.FailedLoginAttempts++
		updates := map[string]interface{}{
			"failed_login_attempts": user.FailedLoginAttempts,
		}
		if user.FailedLoginAttempts >= config.MaxFailedLoginAttempts {
			updates["is_locked"] = true
			result = ErrAccountLocked.WithMessage("account locked, too many failed attempts")
		}
		return tx.Model(&User{}).Where("id = ?", userId).Updates(updates).Error
	})
	if err != nil {
		config.LogError(config.GetLogger(), "Login", "recordFailedLogin", "persist failed attempt", userId, err)
		return fmt.Errorf("record failed login: %w", err)
	}
	return result
}

func recordSuccessfulLogin(ctx context.Context, db *gorm.DB, user *User) error {
	var result error
	now := time.Now().UTC()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", user.ID).Take(&current).Error; err != nil {
			return err
		}
		// a concurrent failure may have locked the account meanwhile
		if current.IsLocked {
			result = ErrAccountLocked
			return nil
		}
		return tx.Model(&User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"is_locked":             false,
			"last_login":            now,
		}).Error
	})
	if err != nil {
		config.LogError(config.GetLogger(), "Login", "recordSuccessfulLogin", "reset login counters", user.ID, err)
		return fmt.Errorf("record successful login: %w", err)
	}
	if result == nil {
		user.FailedLoginAttempts = 0
		user.IsLocked = false
		user.LastLogin = &now
	}
	return result
}

// issueSession signs a token scoped to the user and tenant and returns its lifetime in seconds.
func issueSession(user User, rememberMe bool) (string, int64, error) {
	ttl := config.AccessTokenLifespan()
	if rememberMe {
		ttl *= config.RememberMeMultiplier
	}
	token, _, err := utils.JwtGenerate(utils.SessionClaims{
		UserId:   user.ID,
		Role:     string(user.Role),
		TenantId: user.TenantId,
		Email:    user.Email,
	}, ttl)
	if err != nil {
		return "", 0, fmt.Errorf("issue token: %w", err)
	}
	return token, int64(ttl / time.Second), nil
}

// Logout revokes the current token until it expires.
func Logout(ctx context.Context) (bool, error) {
	tokenId, ok := utils.GetTokenIdFromContext(ctx)
	if !ok || tokenId == "" {
		return false, ErrUnauthorized
	}
	expiresAt, ok := utils.GetTokenExpiryFromContext(ctx)
	if !ok {
		return false, ErrUnauthorized
	}
	if err := utils.RevokeToken(ctx, tokenId, time.Unix(expiresAt, 0)); err != nil {
		return false, err
	}
	return true, nil
}
