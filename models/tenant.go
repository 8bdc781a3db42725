package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
	"gorm.io/gorm"
)

// storeCodeLength is the size of generated store codes.
const storeCodeLength = 8

// maxStoreCodeAttempts bounds the regenerate-on-collision loop.
const maxStoreCodeAttempts = 10

type Tenant struct {
	ID                 uuid.UUID          `gorm:"type:char(36);primary_key" json:"id"`
	BusinessName       string             `gorm:"size:255;not null" json:"business_name"`
	StoreCode          string             `gorm:"size:50;not null;uniqueIndex:idx_tenants_store_code" json:"store_code"`
	ContactPhone       string             `gorm:"size:30;not null" json:"contact_phone"`
	Address            string             `gorm:"size:255;not null" json:"address"`
	City               string             `gorm:"size:100;not null" json:"city"`
	State              string             `gorm:"size:100;not null" json:"state"`
	RegistrationNumber *string            `gorm:"size:100;default:null" json:"registration_number"`
	PlanId             string             `gorm:"size:50;not null;default:basic" json:"plan_id"`
	SubscriptionStatus SubscriptionStatus `gorm:"size:20;not null;default:active;index" json:"subscription_status"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// StoreInfo is the tenant summary returned with a session.
type StoreInfo struct {
	ID                 string             `json:"id"`
	BusinessName       string             `json:"business_name"`
	StoreCode          string             `json:"store_code"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
}

func (t Tenant) Info() StoreInfo {
	return StoreInfo{
		ID:                 t.ID.String(),
		BusinessName:       t.BusinessName,
		StoreCode:          t.StoreCode,
		SubscriptionStatus: t.SubscriptionStatus,
	}
}

func GetTenant(ctx context.Context, tenantId string) (*Tenant, error) {
	return getTenant(ctx, config.GetDB(), tenantId)
}

func getTenant(ctx context.Context, db *gorm.DB, tenantId string) (*Tenant, error) {
	id, err := uuid.Parse(tenantId)
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	var tenant Tenant
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

// SetSubscriptionStatus is the administrative switch used by billing and the CLI.
func SetSubscriptionStatus(ctx context.Context, tenantId string, status SubscriptionStatus) error {
	id, err := uuid.Parse(tenantId)
	if err != nil {
		return utils.ErrorRecordNotFound
	}
	switch status {
	case SubscriptionStatusActive, SubscriptionStatusExpired, SubscriptionStatusSuspended:
	default:
		return utils.NewValidationError(fmt.Sprintf("invalid subscription status %q", status))
	}
	res := config.GetDB().WithContext(ctx).Model(&Tenant{}).Where("id = ?", id).Update("subscription_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// NewStoreCode derives an 8 character upper-case code from a random uuid.
func NewStoreCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:storeCodeLength])
}

func storeCodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	count, err := utils.ResourceCountWhere[Tenant](ctx, tx, "", "store_code = ?", code)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// assignStoreCode generates a code not present in the tenants table at assignment time.
func assignStoreCode(ctx context.Context, tx *gorm.DB) (string, error) {
	for i := 0; i < maxStoreCodeAttempts; i++ {
		code := NewStoreCode()
		exists, err := storeCodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique store code after %d attempts", maxStoreCodeAttempts)
}
