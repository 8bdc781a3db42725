package models_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/grocerypos/pos_backend/config"
	"github.com/grocerypos/pos_backend/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testPassword = "Secret@123"
	testPhone    = "+16502530000"
)

// setupTestDB installs a fresh in-memory database as the global DB for one test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.OpenDatabase(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps the memory database alive and serializes writers
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))

	prev := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() {
		config.SetDB(prev)
		_ = sqlDB.Close()
	})
	return db
}

func newSignup(email string, storeCode string) *models.NewSignup {
	return &models.NewSignup{
		StoreName:     "Corner Grocery",
		StoreCode:     storeCode,
		ContactPhone:  testPhone,
		Address:       "12 Market Road",
		City:          "Pune",
		State:         "MH",
		FirstName:     "Asha",
		LastName:      "Rao",
		Email:         email,
		Password:      testPassword,
		TermsAccepted: true,
	}
}

// signupStore provisions a tenant with an owner and returns the result.
func signupStore(t *testing.T, email string, storeCode string) *models.SignupResult {
	t.Helper()
	result, err := models.Signup(context.Background(), newSignup(email, storeCode))
	require.NoError(t, err)
	return result
}

func loadUser(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.Where("email = ?", email).Take(&user).Error)
	return user
}

func countRows[T any](t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	var model T
	require.NoError(t, db.Model(&model).Count(&count).Error)
	return count
}
