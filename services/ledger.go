package services

import (
	"context"
	"fmt"
	"log"

	"stocksocial/db"
	"stocksocial/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// cashPlaces - точность колонки stock_lists.cash
const cashPlaces = 2

// LedgerService меняет cash портфелей. Баланс не бывает отрицательным:
// проверка идёт внутри транзакции по заблокированной строке, CHECK в таблице - последний рубеж.
type LedgerService struct {
	store *db.Store
}

func NewLedgerService(store *db.Store) *LedgerService {
	return &LedgerService{store: store}
}

// AddCash прибавляет amount к балансу (отрицательный amount - снятие, ноль ничего не меняет) и возвращает новый баланс
func (s *LedgerService) AddCash(ctx context.Context, username, listName string, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount(amount); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		current, err := lockPortfolio(tx, username, listName)
		if err != nil {
			return err
		}
		next := current.Add(amount)
		if next.IsNegative() {
			return fmt.Errorf("%s/%s has %s, cannot apply %s: %w", username, listName, current, amount, ErrInsufficientFunds)
		}
		if err := setCash(tx, username, listName, next); err != nil {
			return err
		}
		balance = next
		return nil
	})
	if err != nil {
		return decimal.Zero, translateLedgerError(err)
	}
	log.Printf("DEBUG: cash %s/%s %s -> %s", username, listName, amount, balance)
	return balance, nil
}

// TransferCash переносит amount между двумя портфелями одного владельца.
// Оба изменения видны только вместе: при любой ошибке транзакция откатывается целиком.
func (s *LedgerService) TransferCash(ctx context.Context, username, fromList, toList string, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if err := validateAmount(amount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidArgument)
	}
	if fromList == toList {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: cannot transfer to the same portfolio", ErrInvalidArgument)
	}

	var fromBalance, toBalance decimal.Decimal
	err := s.store.Transaction(ctx, func(tx *gorm.DB) error {
		// Блокируем в одном порядке, чтобы встречные переводы не взаимоблокировались
		first, second := fromList, toList
		if second < first {
			first, second = second, first
		}
		balances := make(map[string]decimal.Decimal, 2)
		for _, name := range []string{first, second} {
			cash, err := lockPortfolio(tx, username, name)
			if err != nil {
				return err
			}
			balances[name] = cash
		}

		fromBalance = balances[fromList].Sub(amount)
		if fromBalance.IsNegative() {
			return fmt.Errorf("%s/%s has %s, cannot transfer %s: %w", username, fromList, balances[fromList], amount, ErrInsufficientFunds)
		}
		toBalance = balances[toList].Add(amount)

		if err := setCash(tx, username, fromList, fromBalance); err != nil {
			return err
		}
		return setCash(tx, username, toList, toBalance)
	})
	if err != nil {
		return decimal.Zero, decimal.Zero, translateLedgerError(err)
	}
	log.Printf("DEBUG: transferred %s from %s/%s to %s/%s", amount, username, fromList, username, toList)
	return fromBalance, toBalance, nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(cashPlaces)) {
		return fmt.Errorf("%w: amount %s has more than %d decimal places", ErrInvalidArgument, amount, cashPlaces)
	}
	return nil
}

// lockPortfolio читает баланс с блокировкой строки до конца транзакции.
// NULL cash у портфеля считается нулём.
func lockPortfolio(tx *gorm.DB, username, listName string) (decimal.Decimal, error) {
	var list models.StockList
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("username = ? AND list_name = ?", username, listName).
		Take(&list).Error
	if db.IsNotFound(err) {
		return decimal.Zero, notFound(fmt.Sprintf("portfolio %s/%s", username, listName))
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !list.IsPortfolio() {
		return decimal.Zero, fmt.Errorf("%s/%s: %w", username, listName, ErrNotPortfolio)
	}
	if !list.Cash.Valid {
		return decimal.Zero, nil
	}
	return list.Cash.Decimal, nil
}

func setCash(tx *gorm.DB, username, listName string, cash decimal.Decimal) error {
	res := tx.Model(&models.StockList{}).
		Where("username = ? AND list_name = ? AND list_type = ?", username, listName, models.ListPortfolio).
		Update("cash", decimal.NewNullDecimal(cash))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(fmt.Sprintf("portfolio %s/%s", username, listName))
	}
	return nil
}

func translateLedgerError(err error) error {
	if db.IsCheckViolation(err) {
		return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
	}
	return translateStoreError(err)
}
