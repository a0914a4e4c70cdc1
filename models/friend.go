package models

import "time"

// RequestStatus - состояние заявки в друзья
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// FriendRequest - заявка в друзья (sender -> receiver).
// Дружба не хранится отдельно: A и B друзья, если есть accepted заявка в любую сторону.
// Timestamp обновляется при отправке и при отклонении, от него считается cooldown.
type FriendRequest struct {
	Sender    string        `gorm:"primaryKey;size:60" json:"sender"`
	Receiver  string        `gorm:"primaryKey;size:60;index" json:"receiver"`
	Status    RequestStatus `gorm:"size:16;not null;index" json:"status"`
	Timestamp time.Time     `gorm:"not null" json:"timestamp"`

	SenderUser   *User `gorm:"foreignKey:Sender;references:Username;constraint:OnDelete:CASCADE" json:"-"`
	ReceiverUser *User `gorm:"foreignKey:Receiver;references:Username;constraint:OnDelete:CASCADE" json:"-"`
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}

// RejectedRequest - отклонённая исходящая заявка и время, с которого её можно отправить снова
type RejectedRequest struct {
	FriendRequest
	ResendAvailableAt time.Time `json:"resend_available_at"`
}
