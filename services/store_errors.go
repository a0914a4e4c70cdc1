package services

import (
	"errors"
	"fmt"

	"stocksocial/db"
)

var domainErrors = []error{
	ErrDuplicateRequest,
	ErrCooldownActive,
	ErrNotFound,
	ErrInsufficientFunds,
	ErrUnauthorized,
	ErrConstraintViolation,
	ErrInvalidArgument,
	ErrNotPortfolio,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// translateStoreError переводит ошибки хранилища в доменные
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case isDomainError(err):
		return err
	case db.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("referenced row does not exist: %w", ErrNotFound)
	case db.IsDuplicate(err), db.IsCheckViolation(err):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	return err
}
