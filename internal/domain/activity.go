package domain

import "time"

// ActivityEvent is one entry of the append-only activity log read by the
// dashboard feed.
type ActivityEvent struct {
	ID         int64     `gorm:"primaryKey" json:"id,string"`
	Topic      string    `gorm:"size:50;index" json:"topic"`
	EntityType string    `gorm:"size:30" json:"entityType"`
	EntityID   int64     `json:"entityId,string"`
	Title      string    `gorm:"size:300" json:"title"`
	Detail     string    `gorm:"size:500" json:"detail"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

// TableName Specify table name
func (ActivityEvent) TableName() string {
	return "site_activity"
}
