package utils

import (
	"errors"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// IsDuplicateKeyErr reports a unique-index violation on any supported dialect.
func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var me *mysqlDriver.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	// sqlite (tests)
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// DuplicateKeyMentions reports whether a duplicate-key error names the given index or column.
// Only the key name is matched; the duplicated value never is.
func DuplicateKeyMentions(err error, name string) bool {
	if !IsDuplicateKeyErr(err) {
		return false
	}
	return strings.Contains(strings.ToLower(duplicateKeyName(err)), strings.ToLower(name))
}

func duplicateKeyName(err error) string {
	var me *mysqlDriver.MySQLError
	if errors.As(err, &me) {
		// Duplicate entry '<value>' for key '<table>.<index>'
		if i := strings.LastIndex(me.Message, " for key "); i >= 0 {
			return me.Message[i+len(" for key "):]
		}
		return ""
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		if pe.ConstraintName != "" {
			return pe.ConstraintName
		}
		// duplicate key value violates unique constraint "<name>"
		if i := strings.Index(pe.Message, "constraint "); i >= 0 {
			return pe.Message[i+len("constraint "):]
		}
		return ""
	}
	// UNIQUE constraint failed: <table>.<column>
	msg := err.Error()
	if i := strings.Index(msg, "UNIQUE constraint failed:"); i >= 0 {
		return msg[i+len("UNIQUE constraint failed:"):]
	}
	return ""
}

// IsRetryableTxErr reports deadlocks, lock wait timeouts and serialization failures.
func IsRetryableTxErr(err error) bool {
	if err == nil {
		return false
	}
	var me *mysqlDriver.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1213 || me.Number == 1205
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "40P01" || pe.Code == "40001"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "deadlock")
}
