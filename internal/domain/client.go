package domain

import "time"

const (
	ClientStatusActive    = "active"
	ClientStatusCompleted = "completed"
	ClientStatusInactive  = "inactive"
)

// Client is a customer showcased on the website; Name is unique.
type Client struct {
	ID          int64     `gorm:"primaryKey" json:"id,string"`
	Name        string    `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Company     string    `gorm:"size:200" json:"company"`
	Industry    string    `gorm:"size:100;index" json:"industry"`
	Website     string    `gorm:"size:500" json:"website"`
	Logo        string    `gorm:"size:1024" json:"logo"`
	Description string    `gorm:"type:text" json:"description"`
	Testimonial string    `gorm:"type:text" json:"testimonial"`
	Status      string    `gorm:"size:20;index;default:'active'" json:"status"` // active|completed|inactive
	Featured    bool      `gorm:"default:false" json:"featured"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Client) TableName() string {
	return "site_client"
}
