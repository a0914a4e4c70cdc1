package db

import (
	"fmt"

	"stocksocial/models"

	"gorm.io/gorm"
)

// Migrate создаёт таблицы и ограничения
func Migrate(orm *gorm.DB) error {
	err := orm.AutoMigrate(
		&models.User{},
		&models.FriendRequest{},
		&models.StockList{},
		&models.StockListStock{},
		&models.Review{},
		&models.CorrelationEntry{},
		&models.StockStatistic{},
	)
	if err != nil {
		return err
	}

	if orm.Dialector.Name() == "postgres" {
		for name, check := range postgresChecks {
			if err := createCheck(orm, name, check.table, check.expr); err != nil {
				return err
			}
		}
	}
	return nil
}

type checkConstraint struct {
	table string
	expr  string
}

// Ограничения, которые sqlite не умеет добавлять в существующую таблицу
var postgresChecks = map[string]checkConstraint{
	"chk_friend_requests_status": {
		table: "friend_requests",
		expr:  "status IN ('pending', 'accepted', 'rejected')",
	},
	"chk_stock_lists_type": {
		table: "stock_lists",
		expr:  "list_type IN ('public', 'private', 'portfolio')",
	},
	// cash есть только у портфелей
	"chk_stock_lists_cash_type": {
		table: "stock_lists",
		expr:  "(list_type = 'portfolio') = (cash IS NOT NULL)",
	},
}

// createCheck добавляет CHECK, если его ещё нет
func createCheck(orm *gorm.DB, name, table, expr string) error {
	createCheckSQL := fmt.Sprintf(`
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
			ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);
		END IF;
	END
	$$;
	`, name, table, name, expr)
	if err := orm.Exec(createCheckSQL).Error; err != nil {
		return fmt.Errorf("failed to create constraint %s: %w", name, err)
	}
	return nil
}
