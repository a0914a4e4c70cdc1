package models

// Review - отзыв на список. Само наличие строки является доступом (share grant)
// reviewer'а к приватному списку, пустой Text означает "поделились, отзыва ещё нет".
type Review struct {
	OwnerUsername    string `gorm:"primaryKey;size:60" json:"owner_username"`
	ListName         string `gorm:"primaryKey;size:100" json:"list_name"`
	ReviewerUsername string `gorm:"primaryKey;size:60;index" json:"reviewer_username"`
	Text             string `gorm:"column:review;type:text;not null" json:"review"`
	Rating           int    `gorm:"not null" json:"rating"`

	List     *StockList `gorm:"foreignKey:OwnerUsername,ListName;references:Username,ListName;constraint:OnDelete:CASCADE" json:"-"`
	Reviewer *User      `gorm:"foreignKey:ReviewerUsername;references:Username;constraint:OnDelete:CASCADE" json:"-"`
}

func (Review) TableName() string {
	return "reviews"
}

// DefaultRating выставляется при шаринге и при сбросе отзыва владельцем
const DefaultRating = 5
