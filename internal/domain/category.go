package domain

import "time"

// SentinelCategory is the fallback label; it is never usage-counted.
const SentinelCategory = "Uncategorized"

const (
	CategoryTypeProduct = "product"
	CategoryTypeGallery = "gallery"
	CategoryTypeService = "service"
	CategoryTypeOther   = "other"
)

// CategoryTypes lists the valid namespaces; usage counts are kept per type.
var CategoryTypes = []string{CategoryTypeProduct, CategoryTypeGallery, CategoryTypeService, CategoryTypeOther}

// Category carries a denormalized UsageCount: the number of products whose
// category label equals Name, within the product namespace. The count is
// maintained incrementally and may drift; see catalog.UsageSync.Reconcile.
type Category struct {
	ID          int64     `gorm:"primaryKey" json:"id,string"`
	Name        string    `gorm:"size:100;not null;uniqueIndex:idx_category_name_type" json:"name"`
	Type        string    `gorm:"size:20;not null;default:'product';uniqueIndex:idx_category_name_type" json:"type"`
	UsageCount  int64     `gorm:"not null;default:0" json:"usageCount"`
	Description string    `gorm:"type:text" json:"description"`
	Image       string    `gorm:"size:1024" json:"image"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (Category) TableName() string {
	return "site_category"
}

// IsValidCategoryType reports whether typ is a known namespace
func IsValidCategoryType(typ string) bool {
	for _, t := range CategoryTypes {
		if t == typ {
			return true
		}
	}
	return false
}
