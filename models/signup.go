package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/utils"
	"gorm.io/gorm"
)

const passwordSymbols = "@$!%*?&"

const minPasswordLength = 8

// bcrypt only accepts 72 bytes.
const maxPasswordLength = 72

type NewSignup struct {
	// store
	StoreName          string `json:"store_name" binding:"required,max=255"`
	StoreCode          string `json:"store_code" binding:"omitempty,alphanum,max=50"`
	ContactPhone       string `json:"contact_phone" binding:"required,phone_number"`
	Address            string `json:"address" binding:"required,max=255"`
	City               string `json:"city" binding:"required,max=100"`
	State              string `json:"state" binding:"required,max=100"`
	RegistrationNumber string `json:"registration_number" binding:"omitempty,max=100"`
	// owner
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required"`
	// subscription
	PlanId        string `json:"plan_id" binding:"omitempty,max=50"`
	TermsAccepted bool   `json:"terms_accepted"`
}

type SignupResult struct {
	UserId      int    `json:"user_id"`
	StoreId     string `json:"store_id"`
	StoreCode   string `json:"store_code"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Message     string `json:"message"`
}

func (input *NewSignup) normalize() {
	input.StoreName = strings.TrimSpace(input.StoreName)
	input.StoreCode = strings.ToUpper(strings.TrimSpace(input.StoreCode))
	input.ContactPhone = strings.TrimSpace(input.ContactPhone)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = utils.NormalizeEmail(input.Email)
	input.PlanId = strings.TrimSpace(input.PlanId)
	if input.PlanId == "" {
		input.PlanId = config.DefaultPlanId
	}
}

func (input *NewSignup) validate() error {
	if err := validateInput(input); err != nil {
		return err
	}
	if !input.TermsAccepted {
		return ErrTermsNotAccepted
	}
	return ValidatePassword(input.Password)
}

// ValidatePassword enforces the password policy: 8 to 72 characters with an upper-case letter,
// a digit and one of @$!%*?&, and nothing outside letters, digits and those symbols.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrWeakPassword
	}
	var hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r > unicode.MaxASCII:
			return ErrWeakPassword
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		default:
			return ErrWeakPassword
		}
	}
	if !hasUpper || !hasDigit || !hasSymbol {
		return ErrWeakPassword
	}
	return nil
}

// Signup provisions a tenant and its owner in one unit of work and logs the owner in.
func Signup(ctx context.Context, input *NewSignup) (*SignupResult, error) {
	if input == nil {
		return nil, utils.NewValidationError("signup payload is required")
	}
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	taken, err := emailRegistered(ctx, db, input.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}
	autoCode := input.StoreCode == ""
	if !autoCode {
		exists, err := storeCodeExists(ctx, db, input.StoreCode)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrStoreCodeTaken
		}
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var (
		tenant *Tenant
		owner  *User
	)
	for attempt := 1; ; attempt++ {
		tenant, owner, err = createTenantWithOwner(ctx, db, input, string(hashed))
		if err == nil {
			break
		}
		// a generated code raced with another signup; regenerate
		if autoCode && utils.DuplicateKeyMentions(err, "store_code") && attempt < maxStoreCodeAttempts {
			continue
		}
		return nil, mapSignupError(err)
	}

	token, expiresIn, err := issueSession(*owner, false)
	if err != nil {
		return nil, err
	}

	return &SignupResult{
		UserId:      owner.ID,
		StoreId:     tenant.ID.String(),
		StoreCode:   tenant.StoreCode,
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresIn:   expiresIn,
		Message:     "Account created successfully",
	}, nil
}

func createTenantWithOwner(ctx context.Context, db *gorm.DB, input *NewSignup, hashedPassword string) (*Tenant, *User, error) {
	var tenant Tenant
	var owner User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code := input.StoreCode
		if code == "" {
			generated, err := assignStoreCode(ctx, tx)
			if err != nil {
				return err
			}
			code = generated
		}

		tenant = Tenant{
			BusinessName:       input.StoreName,
			StoreCode:          code,
			ContactPhone:       input.ContactPhone,
			Address:            input.Address,
			City:               input.City,
			State:              input.State,
			RegistrationNumber: utils.NilIfEmpty(input.RegistrationNumber),
			PlanId:             input.PlanId,
			SubscriptionStatus: SubscriptionStatusActive,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		owner = User{
			TenantId:       tenant.ID.String(),
			FirstName:      input.FirstName,
			LastName:       input.LastName,
			Email:          input.Email,
			HashedPassword: hashedPassword,
			Role:           UserRoleOwner,
			IsActive:       utils.NewTrue(),
			TermsAccepted:  input.TermsAccepted,
		}
		return tx.Create(&owner).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &tenant, &owner, nil
}

func mapSignupError(err error) error {
	switch {
	case utils.DuplicateKeyMentions(err, "store_code"):
		return ErrStoreCodeTaken
	case utils.DuplicateKeyMentions(err, "email"):
		return ErrEmailTaken
	}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	config.LogError(config.GetLogger(), "Signup", "Signup", "create tenant and owner", nil, err)
	return fmt.Errorf("signup: %w", err)
}
