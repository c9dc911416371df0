package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ProductStatusActive   = "Active"
	ProductStatusInactive = "Inactive"
)

// Product is a catalog item shown on the website. Category is a free-text
// label matched by name against Category rows of type "product".
type Product struct {
	ID          int64                       `gorm:"primaryKey" json:"id,string"`
	Name        string                      `gorm:"size:200;index;not null" json:"name"`
	Description string                      `gorm:"type:text" json:"description"`
	Category    string                      `gorm:"size:100;index;not null;default:'Uncategorized'" json:"category"`
	Status      string                      `gorm:"size:20;index;default:'Active'" json:"status"`
	Price       float64                     `json:"price"`
	Stock       int                         `gorm:"default:0" json:"stock"`
	Views       int64                       `gorm:"default:0" json:"views"`
	Downloads   int64                       `gorm:"default:0" json:"downloads"`
	Rating      float64                     `gorm:"default:0" json:"rating"`
	ReviewCount int64                       `gorm:"default:0" json:"reviewCount"`
	Featured    bool                        `gorm:"default:false" json:"featured"`
	Certified   bool                        `gorm:"default:false" json:"certified"`
	Popular     bool                        `gorm:"default:false" json:"popular"`
	Custom      bool                        `gorm:"default:false" json:"custom"`
	SKU         *string                     `gorm:"column:sku;size:64;uniqueIndex" json:"sku,omitempty"`
	Image       string                      `gorm:"size:1024" json:"image"`
	Tags        datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt   time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "site_product"
}
