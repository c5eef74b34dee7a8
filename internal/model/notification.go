package model

// NotificationType 通知类型
type NotificationType string

const (
	NotificationNewAnswer    NotificationType = "NEW_ANSWER"
	NotificationMention      NotificationType = "MENTION"
	NotificationAdminMessage NotificationType = "ADMIN_MESSAGE"
)

type Notification struct {
	UUIDBase
	RecipientID uint             `gorm:"index;type:bigint unsigned;not null" json:"recipientId"`
	SenderID    uint             `gorm:"type:bigint unsigned;not null" json:"senderId"`
	Type        NotificationType `gorm:"type:enum('NEW_ANSWER','MENTION','ADMIN_MESSAGE');not null" json:"type"`
	Message     string           `gorm:"type:text;not null" json:"message"`
	Link        string           `gorm:"size:255" json:"link"`
	IsRead      bool             `gorm:"default:false;index" json:"isRead"`
}

func (Notification) TableName() string {
	return "notifications"
}
