package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type UserRole string

const (
	UserRoleOwner   UserRole = "owner"
	UserRoleCashier UserRole = "cashier"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
)

func (s SubscriptionStatus) IsActive() bool {
	return s == SubscriptionStatusActive
}

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodUPI  PaymentMethod = "upi"
)

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUPI:
		return true
	}
	return false
}

// convert input to enum type, case-insensitive
func (p *PaymentMethod) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("payment method must be string")
	}
	*p = PaymentMethod(strings.ToLower(strings.TrimSpace(str)))
	return nil
}
