package models

import "github.com/shopspring/decimal"

// ListType - тип списка акций
type ListType string

const (
	ListPublic    ListType = "public"
	ListPrivate   ListType = "private"
	ListPortfolio ListType = "portfolio"
)

// StockList - список акций пользователя. Cash заполнен только у портфелей и не бывает отрицательным.
type StockList struct {
	Username string              `gorm:"primaryKey;size:60" json:"username"`
	ListName string              `gorm:"primaryKey;size:100" json:"list_name"`
	ListType ListType            `gorm:"size:16;not null;index" json:"list_type"`
	Cash     decimal.NullDecimal `gorm:"type:decimal(20,2);check:cash >= 0" json:"cash"`

	Stocks       []StockListStock   `gorm:"foreignKey:Username,ListName;references:Username,ListName;constraint:OnDelete:CASCADE" json:"-"`
	Correlations []CorrelationEntry `gorm:"foreignKey:Username,ListName;references:Username,ListName;constraint:OnDelete:CASCADE" json:"-"`
}

func (StockList) TableName() string {
	return "stock_lists"
}

// IsPortfolio ...
func (l StockList) IsPortfolio() bool {
	return l.ListType == ListPortfolio
}

// Portfolio - представление портфеля с балансом
type Portfolio struct {
	Username string          `json:"username"`
	ListName string          `json:"list_name"`
	Cash     decimal.Decimal `json:"cash"`
}

// StockListStock - позиция в списке
type StockListStock struct {
	Username string `gorm:"primaryKey;size:60" json:"-"`
	ListName string `gorm:"primaryKey;size:100" json:"-"`
	Symbol   string `gorm:"primaryKey;size:16" json:"symbol"`
	Amount   int64  `gorm:"not null;check:amount > 0" json:"amount"`
}

func (StockListStock) TableName() string {
	return "stock_list_stocks"
}

// Holding - позиция вместе со статистикой, которую поставляет внешний аналитический джоб.
// Beta и CV пустые, пока статистика по символу не загружена.
type Holding struct {
	Symbol                 string   `json:"symbol"`
	Amount                 int64    `json:"amount"`
	Beta                   *float64 `json:"beta"`
	CoefficientOfVariation *float64 `json:"coefficient_of_variation"`
}
