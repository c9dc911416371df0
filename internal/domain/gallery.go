package domain

import "time"

// GalleryImage is a picture shown in the website gallery
type GalleryImage struct {
	ID          int64     `gorm:"primaryKey" json:"id,string"`
	Title       string    `gorm:"size:200;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ImageURL    string    `gorm:"size:1024;not null" json:"imageUrl"`
	Category    string    `gorm:"size:100;index" json:"category"`
	Status      string    `gorm:"size:20;index;default:'active'" json:"status"` // active|inactive
	Featured    bool      `gorm:"default:false" json:"featured"`
	SortOrder   int       `gorm:"default:0" json:"sortOrder"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (GalleryImage) TableName() string {
	return "site_gallery"
}
