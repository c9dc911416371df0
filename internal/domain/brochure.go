package domain

import "time"

// Brochure is a downloadable document. At most one brochure is active; the
// rule is enforced by deactivating the others before activating one.
type Brochure struct {
	ID          int64     `gorm:"primaryKey" json:"id,string"`
	Title       string    `gorm:"size:200;uniqueIndex;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	FileURL     string    `gorm:"size:1024;not null" json:"fileUrl"`
	FileSize    int64     `gorm:"default:0" json:"fileSize"`
	IsActive    bool      `gorm:"index;default:false" json:"isActive"`
	Downloads   int64     `gorm:"default:0" json:"downloads"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Brochure) TableName() string {
	return "site_brochure"
}
