package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Драйверы переводят не все коды ошибок, поэтому дополнительно смотрим на текст.

// IsDuplicate - нарушение PK/UNIQUE
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

// IsForeignKeyViolation - ссылка на несуществующую строку
func IsForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint failed") || strings.Contains(msg, "violates foreign key constraint")
}

// IsCheckViolation - нарушение CHECK (например cash >= 0)
func IsCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "CHECK constraint failed") || strings.Contains(msg, "violates check constraint")
}

// IsNotFound ...
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
