package models

import (
	"context"
	"errors"
	"time"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID                  int        `gorm:"primary_key" json:"id"`
	TenantId            string     `gorm:"size:36;not null;index" json:"tenant_id"`
	FirstName           string     `gorm:"size:100;not null" json:"first_name"`
	LastName            string     `gorm:"size:100;not null" json:"last_name"`
	Email               string     `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	HashedPassword      string     `gorm:"size:255;not null" json:"-"`
	Role                UserRole   `gorm:"size:20;not null;default:cashier" json:"role"`
	IsActive            *bool      `gorm:"not null;default:true" json:"is_active"`
	TermsAccepted       bool       `gorm:"not null;default:false" json:"terms_accepted"`
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"failed_login_attempts"`
	IsLocked            bool       `gorm:"not null;default:false" json:"is_locked"`
	LastLogin           *time.Time `gorm:"default:null" json:"last_login"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// UserInfo is the public view of a user returned with a session.
type UserInfo struct {
	ID        int      `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
}

func (u User) Info() UserInfo {
	return UserInfo{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}

func (u User) active() bool {
	return u.IsActive == nil || *u.IsActive
}

func getUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error) {
	var user User
	// email lookups span tenants
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	err := db.WithContext(ctx).Where("email = ?", utils.NormalizeEmail(email)).Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUser loads a user of the tenant.
func GetUser(ctx context.Context, tenantId string, id int) (*User, error) {
	var user User
	err := config.GetDB().WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantId, id).
		Take(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UnlockUser is the administrative reset of the lockout state.
func UnlockUser(ctx context.Context, email string) error {
	res := config.GetDB().WithContext(ctx).Model(&User{}).
		Where("email = ?", utils.NormalizeEmail(email)).
		Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"is_locked":             false,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// emailRegistered checks the global email index.
func emailRegistered(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	count, err := utils.ResourceCountWhere[User](ctx, db, "", "email = ?", utils.NormalizeEmail(email))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
