package repository

import (
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrTokenNotUsable is returned when a one-time token is unknown, already
// consumed or past its expiry.
var ErrTokenNotUsable = errors.New("token is unknown, used or expired")

// IsUniqueViolation recognises unique constraint failures from both
// PostgreSQL and SQLite, with or without gorm error translation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	msg := err.Error()
	return strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// IsTransient reports errors worth retrying as a whole transaction:
// serialization failures, deadlocks, dropped connections and a busy SQLite file.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 40: transaction rollback (40001 serialization, 40P01 deadlock)
		// 08: connection exception
		return strings.HasPrefix(pgErr.Code, "40") || strings.HasPrefix(pgErr.Code, "08")
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "sqlite_busy") ||
		strings.Contains(msg, "connection reset by peer")
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
