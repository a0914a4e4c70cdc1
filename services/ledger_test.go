package services

import (
	"context"
	"sync"
	"testing"

	"stocksocial/db"
	"stocksocial/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) (*LedgerService, *db.Store, string) {
	store := openTestStore(t)
	owner := createUsers(t, store, 1)[0]
	lists := NewStockListService(store, NewVisibilityGate(store), nil, nil)
	for _, name := range []string{"X", "Y"} {
		_, err := lists.CreatePortfolio(context.Background(), owner, name)
		require.NoError(t, err)
	}
	createList(t, store, owner, "watch", models.ListPublic)
	return NewLedgerService(store), store, owner
}

func cashOf(t *testing.T, store *db.Store, owner, listName string) decimal.NullDecimal {
	t.Helper()
	var list models.StockList
	require.NoError(t, store.ORM.Where("username = ? AND list_name = ?", owner, listName).Take(&list).Error)
	return list.Cash
}

func requireCash(t *testing.T, store *db.Store, owner, listName string, want int64) {
	t.Helper()
	cash := cashOf(t, store, owner, listName)
	require.True(t, cash.Valid)
	assert.True(t, cash.Decimal.Equal(decimal.NewFromInt(want)), "%s cash = %s, want %d", listName, cash.Decimal, want)
}

func TestAddCashWithdrawal(t *testing.T) {
	ctx := context.Background()
	ledger, store, owner := newTestLedger(t)

	balance, err := ledger.AddCash(ctx, owner, "X", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(50)))

	balance, err = ledger.AddCash(ctx, owner, "X", decimal.NewFromInt(-30))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(20)))

	_, err = ledger.AddCash(ctx, owner, "X", decimal.NewFromInt(-30))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	requireCash(t, store, owner, "X", 20)

	// Снять всё до нуля можно
	balance, err = ledger.AddCash(ctx, owner, "X", decimal.NewFromInt(-20))
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestAddCashFractional(t *testing.T) {
	ctx := context.Background()
	ledger, _, owner := newTestLedger(t)

	balance, err := ledger.AddCash(ctx, owner, "X", decimal.RequireFromString("10.25"))
	require.NoError(t, err)
	assert.Equal(t, "10.25", balance.StringFixed(2))

	_, err = ledger.AddCash(ctx, owner, "X", decimal.RequireFromString("0.001"))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	balance, err = ledger.AddCash(ctx, owner, "X", decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "10.25", balance.StringFixed(2))
}

func TestAddCashRequiresPortfolio(t *testing.T) {
	ctx := context.Background()
	ledger, store, owner := newTestLedger(t)

	_, err := ledger.AddCash(ctx, owner, "watch", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrNotPortfolio)
	assert.False(t, cashOf(t, store, owner, "watch").Valid)

	_, err = ledger.AddCash(ctx, owner, "missing", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransferCashInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	ledger, store, owner := newTestLedger(t)

	_, err := ledger.AddCash(ctx, owner, "X", decimal.NewFromInt(50))
	require.NoError(t, err)
	_, err = ledger.AddCash(ctx, owner, "Y", decimal.NewFromInt(7))
	require.NoError(t, err)

	_, _, err = ledger.TransferCash(ctx, owner, "X", "Y", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	requireCash(t, store, owner, "X", 50)
	requireCash(t, store, owner, "Y", 7)
}

func TestTransferCash(t *testing.T) {
	ctx := context.Background()
	ledger, store, owner := newTestLedger(t)

	_, err := ledger.AddCash(ctx, owner, "X", decimal.NewFromInt(50))
	require.NoError(t, err)

	fromBalance, toBalance, err := ledger.TransferCash(ctx, owner, "X", "Y", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, fromBalance.IsZero())
	assert.True(t, toBalance.Equal(decimal.NewFromInt(50)))

	requireCash(t, store, owner, "X", 0)
	requireCash(t, store, owner, "Y", 50)
}

func TestTransferCashUsageErrors(t *testing.T) {
	ctx := context.Background()
	ledger, store, owner := newTestLedger(t)

	_, err := ledger.AddCash(ctx, owner, "X", decimal.NewFromInt(50))
	require.NoError(t, err)

	_, _, err = ledger.TransferCash(ctx, owner, "X", "X", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = ledger.TransferCash(ctx, owner, "X", "Y", decimal.NewFromInt(-10))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, _, err = ledger.TransferCash(ctx, owner, "X", "watch", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrNotPortfolio)

	_, _, err = ledger.TransferCash(ctx, owner, "X", "missing", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrNotFound)

	requireCash(t, store, owner, "X", 50)
	assert.False(t, cashOf(t, store, owner, "watch").Valid)
}

func TestNullCashPortfolioStartsAtZero(t *testing.T) {
	ctx := context.Background()
	ledger, store, owner := newTestLedger(t)
	createList(t, store, owner, "legacy", models.ListPortfolio)

	_, err := ledger.AddCash(ctx, owner, "legacy", decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	balance, err := ledger.AddCash(ctx, owner, "legacy", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(5)))
}

func TestCashCheckConstraint(t *testing.T) {
	_, store, owner := newTestLedger(t)

	err := store.ORM.Model(&models.StockList{}).
		Where("username = ? AND list_name = ?", owner, "X").
		Update("cash", decimal.NewNullDecimal(decimal.NewFromInt(-1))).Error
	require.Error(t, err)
	assert.True(t, db.IsCheckViolation(err))
	assert.ErrorIs(t, translateLedgerError(err), ErrInsufficientFunds)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	ledger, store, owner := newTestLedger(t)

	_, err := ledger.AddCash(ctx, owner, "X", decimal.NewFromInt(100))
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.AddCash(ctx, owner, "X", decimal.NewFromInt(-30))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientFunds)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	requireCash(t, store, owner, "X", 10)
}
