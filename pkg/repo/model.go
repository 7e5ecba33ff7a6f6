package repo

import "time"

// NotificationRecord is one traded order id out of a published notification.
// (EventID, OrderID) is unique so redelivered events are stored once.
type NotificationRecord struct {
	ID          int64     `gorm:"primaryKey"`
	EventID     string    `gorm:"uniqueIndex:idx_notification_event_order"`
	OrderID     int64     `gorm:"uniqueIndex:idx_notification_event_order"`
	RequestID   string
	PublishedAt time.Time
	ReceivedAt  time.Time
}

func (NotificationRecord) TableName() string {
	return "trade_notifications"
}
