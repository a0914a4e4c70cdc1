package services

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRequest - заявка уже существует и не может быть отправлена повторно
	ErrDuplicateRequest = errors.New("friend request already exists")
	// ErrCooldownActive - повторная отправка раньше, чем через cooldown после отказа
	ErrCooldownActive = errors.New("friend request was rejected recently, try again later")
	ErrNotFound       = errors.New("not found")
	// ErrInsufficientFunds - списание сделало бы cash отрицательным
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnauthorized      = errors.New("requester cannot access this stock list")
	// ErrConstraintViolation - прочие нарушения ограничений хранилища
	ErrConstraintViolation = errors.New("constraint violation")

	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotPortfolio    = errors.New("stock list is not a portfolio")
	ErrNotShareable    = fmt.Errorf("%w: portfolios cannot be shared or reviewed", ErrConstraintViolation)
)

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, ErrNotFound)
}
