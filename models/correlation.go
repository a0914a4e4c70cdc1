package models

import "time"

// CorrelationEntry - корреляция пары акций внутри списка.
// Хранится одна строка на неупорядоченную пару, пары (X, X) не бывает.
type CorrelationEntry struct {
	Username    string  `gorm:"primaryKey;size:60" json:"username" yaml:"-"`
	ListName    string  `gorm:"primaryKey;size:100" json:"list_name" yaml:"-"`
	Stock1      string  `gorm:"primaryKey;size:16" json:"stock1" yaml:"stock1"`
	Stock2      string  `gorm:"primaryKey;size:16" json:"stock2" yaml:"stock2"`
	Correlation float64 `gorm:"not null" json:"correlation" yaml:"correlation"`
}

func (CorrelationEntry) TableName() string {
	return "correlation_entries"
}

// CorrelationMatrix - полная симметричная матрица, строки и столбцы в порядке Symbols
type CorrelationMatrix struct {
	Symbols      []string    `json:"symbols"`
	Correlations [][]float64 `json:"correlations"`
}

// StockStatistic - beta и коэффициент вариации по символу, считаются внешним джобом
type StockStatistic struct {
	Symbol                 string    `gorm:"primaryKey;size:16" json:"symbol" yaml:"symbol"`
	Beta                   float64   `gorm:"not null" json:"beta" yaml:"beta"`
	CoefficientOfVariation float64   `gorm:"column:coefficient_of_variation;not null" json:"coefficient_of_variation" yaml:"cv"`
	UpdatedAt              time.Time `json:"updated_at" yaml:"-"`
}

func (StockStatistic) TableName() string {
	return "stock_statistics"
}
