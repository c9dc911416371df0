package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ServiceStatusActive     = "active"
	ServiceStatusInProgress = "in-progress"
	ServiceStatusCompleted  = "completed"
	ServiceStatusInactive   = "inactive"
)

// ActiveLikeServiceStatuses are counted as "active" on the dashboard
var ActiveLikeServiceStatuses = []string{ServiceStatusActive, ServiceStatusInProgress}

// Service is an offering listed on the website
type Service struct {
	ID          int64                       `gorm:"primaryKey" json:"id,string"`
	Title       string                      `gorm:"size:200;index;not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Category    string                      `gorm:"size:100;index" json:"category"`
	Status      string                      `gorm:"size:20;index;default:'active'" json:"status"` // active|in-progress|completed|inactive
	Price       float64                     `json:"price"`
	Duration    string                      `gorm:"size:100" json:"duration"`
	Featured    bool                        `gorm:"default:false" json:"featured"`
	Image       string                      `gorm:"size:1024" json:"image"`
	Features    datatypes.JSONSlice[string] `json:"features"`
	SortOrder   int                         `gorm:"default:0" json:"sortOrder"`
	CreatedAt   time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// TableName Specify table name
func (Service) TableName() string {
	return "site_service"
}

func IsValidServiceStatus(s string) bool {
	switch s {
	case ServiceStatusActive, ServiceStatusInProgress, ServiceStatusCompleted, ServiceStatusInactive:
		return true
	}
	return false
}
