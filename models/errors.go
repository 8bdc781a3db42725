package models

import "github.com/grocerypos/pos_backend/utils"

// Auth
var (
	ErrInvalidCredentials  = utils.NewAppError(utils.KindAuthentication, "invalid_credentials", "invalid credentials")
	ErrAccountLocked       = utils.NewAppError(utils.KindAuthorization, "account_locked", "account locked, contact support")
	ErrAccountDisabled     = utils.NewAppError(utils.KindAuthorization, "account_disabled", "user is disabled")
	ErrSubscriptionExpired = utils.NewAppError(utils.KindSubscription, "subscription_expired", "subscription expired")
	ErrUnauthorized        = utils.NewAppError(utils.KindAuthentication, "unauthorized", "authentication required")
	ErrLoginBusy           = utils.NewAppError(utils.KindConflict, "login_in_progress", "another login for this account is in progress, try again")
)

// Provisioning
var (
	ErrEmailTaken       = utils.NewAppError(utils.KindConflict, "email_taken", "email already registered")
	ErrStoreCodeTaken   = utils.NewAppError(utils.KindConflict, "store_code_taken", "store code already taken")
	ErrWeakPassword     = utils.NewAppError(utils.KindValidation, "weak_password", "password must be 8-72 chars, contain 1 uppercase, 1 number, and 1 special char")
	ErrTermsNotAccepted = utils.NewAppError(utils.KindValidation, "terms_not_accepted", "terms must be accepted")
)

// Catalog and sales
var (
	ErrProductNotFound     = utils.NewAppError(utils.KindNotFound, "product_not_found", "product not found")
	ErrInsufficientStock   = utils.NewAppError(utils.KindInsufficientStock, "insufficient_stock", "insufficient stock")
	ErrTransactionNotFound = utils.NewAppError(utils.KindNotFound, "transaction_not_found", "transaction not found")
	ErrEmptyCart           = utils.NewAppError(utils.KindValidation, "empty_cart", "at least one item is required")
	ErrInvalidPayment      = utils.NewAppError(utils.KindValidation, "invalid_payment_method", "payment method must be one of cash, card, upi")
	ErrTenantRequired      = utils.NewAppError(utils.KindAuthentication, "tenant_required", "tenant id is required")
)

var ErrBarcodeTaken = utils.NewAppError(utils.KindConflict, "barcode_taken", "barcode already used by another product")

// ErrSaleConflict is returned when concurrent sales kept changing the same stock across every retry.
var ErrSaleConflict = utils.NewAppError(utils.KindConflict, "sale_conflict", "stock changed while the sale was processed, try again")
