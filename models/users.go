package models

import (
	"time"
)

// User - корень идентичности. Аутентификация выполняется снаружи сервиса,
// сюда приходит уже проверенный username.
type User struct {
	Username  string    `gorm:"primaryKey;size:60" json:"username"`
	CreatedAt time.Time `json:"created_at"`

	Lists []StockList `gorm:"foreignKey:Username;references:Username;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string {
	return "users"
}
