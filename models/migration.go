package models

import (
	"log"

	"github.com/grocerypos/pos_backend/config"
	"gorm.io/gorm"
)

// AllModels lists every table owned by the service, in creation order.
func AllModels() []interface{} {
	return []interface{}{
		&Tenant{}, &User{},
		&Product{},
		&Transaction{}, &TransactionItem{},
		&OutboxMessage{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func MigrateTable() {
	if err := Migrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}
