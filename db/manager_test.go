package db

import (
	"sort"
	"testing"

	"stocksocial/config"
	"stocksocial/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, Migrate(store.ORM))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMigrateCreatesTables(t *testing.T) {
	store := openTestStore(t)

	for _, table := range []string{"users", "friend_requests", "stock_lists", "stock_list_stocks", "reviews", "correlation_entries", "stock_statistics"} {
		assert.True(t, store.ORM.Migrator().HasTable(table), table)
	}
	// Повторная миграция безопасна
	assert.NoError(t, Migrate(store.ORM))
}

type foreignKey struct {
	Table    string `gorm:"column:table"`
	From     string `gorm:"column:from"`
	To       string `gorm:"column:to"`
	OnDelete string `gorm:"column:on_delete"`
}

func foreignKeys(t *testing.T, store *Store, table string) []foreignKey {
	t.Helper()
	var keys []foreignKey
	require.NoError(t, store.ORM.Raw("PRAGMA foreign_key_list(" + table + ")").Scan(&keys).Error)
	return keys
}

func TestMigrateForeignKeyTargets(t *testing.T) {
	store := openTestStore(t)

	tests := []struct {
		table   string
		parents map[string][]string
	}{
		{"users", map[string][]string{}},
		{"stock_statistics", map[string][]string{}},
		{"friend_requests", map[string][]string{"users": {"receiver", "sender"}}},
		{"stock_lists", map[string][]string{"users": {"username"}}},
		{"stock_list_stocks", map[string][]string{"stock_lists": {"list_name", "username"}}},
		{"correlation_entries", map[string][]string{"stock_lists": {"list_name", "username"}}},
		{"reviews", map[string][]string{
			"stock_lists": {"list_name", "owner_username"},
			"users":       {"reviewer_username"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			got := map[string][]string{}
			for _, fk := range foreignKeys(t, store, tt.table) {
				got[fk.Table] = append(got[fk.Table], fk.From)
				assert.Equal(t, "CASCADE", fk.OnDelete, "%s.%s", tt.table, fk.From)
			}
			for parent := range got {
				sort.Strings(got[parent])
			}
			assert.Equal(t, tt.parents, got)
		})
	}
}

func TestInsertUserWithLists(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.ORM.Create(&models.User{Username: "alice"}).Error)
	require.NoError(t, store.ORM.Create(&models.StockList{Username: "alice", ListName: "tech", ListType: models.ListPublic}).Error)
	require.NoError(t, store.ORM.Create(&models.CorrelationEntry{Username: "alice", ListName: "tech", Stock1: "AAPL", Stock2: "MSFT", Correlation: 0.3}).Error)

	err := store.ORM.Create(&models.StockListStock{Username: "alice", ListName: "ghost", Symbol: "AAPL", Amount: 1}).Error
	assert.True(t, IsForeignKeyViolation(err))

	require.NoError(t, store.ORM.Where("username = ? AND list_name = ?", "alice", "tech").Delete(&models.StockList{}).Error)
	var count int64
	require.NoError(t, store.ORM.Model(&models.CorrelationEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStoreErrorClassification(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.ORM.Create(&models.User{Username: "alice"}).Error)

	err := store.ORM.Create(&models.User{Username: "alice"}).Error
	assert.True(t, IsDuplicate(err))
	assert.False(t, IsForeignKeyViolation(err))

	err = store.ORM.Create(&models.StockList{Username: "ghost", ListName: "x", ListType: models.ListPublic}).Error
	assert.True(t, IsForeignKeyViolation(err))

	err = store.ORM.Create(&models.StockList{
		Username: "alice",
		ListName: "p",
		ListType: models.ListPortfolio,
		Cash:     decimal.NewNullDecimal(decimal.NewFromInt(-1)),
	}).Error
	assert.True(t, IsCheckViolation(err))

	var user models.User
	err = store.ORM.Where("username = ?", "bob").Take(&user).Error
	assert.True(t, IsNotFound(err))

	assert.False(t, IsDuplicate(nil))
	assert.False(t, IsCheckViolation(nil))
}

func TestDeleteUserCascades(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.ORM.Create(&models.User{Username: "alice"}).Error)
	require.NoError(t, store.ORM.Create(&models.StockList{Username: "alice", ListName: "tech", ListType: models.ListPublic}).Error)
	require.NoError(t, store.ORM.Create(&models.StockListStock{Username: "alice", ListName: "tech", Symbol: "AAPL", Amount: 1}).Error)

	require.NoError(t, store.ORM.Where("username = ?", "alice").Delete(&models.User{}).Error)

	var count int64
	require.NoError(t, store.ORM.Model(&models.StockListStock{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	conf := &config.ConfigSchema{}
	conf.Databases.Driver = "mysql"
	_, err := Connect(conf)
	assert.Error(t, err)

	_, err = Connect(nil)
	assert.Error(t, err)
}

func TestDSNFromConfig(t *testing.T) {
	dsn := dsnFromConfig(config.DBConfig{Host: "h", Port: 5433, User: "u", Password: "p", DBName: "d"})
	assert.Equal(t, "host=h port=5433 user=u password=p dbname=d sslmode=disable TimeZone=UTC", dsn)
}
