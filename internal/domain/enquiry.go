package domain

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EnquiryStatusNew        = "new"
	EnquiryStatusInProgress = "in-progress"
	EnquiryStatusResolved   = "resolved"
	EnquiryStatusSpam       = "spam"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// EnquiryStatuses in display order
var EnquiryStatuses = []string{EnquiryStatusNew, EnquiryStatusInProgress, EnquiryStatusResolved, EnquiryStatusSpam}

// EnquiryResponse is owned by its Enquiry and only ever appended.
type EnquiryResponse struct {
	Message     string    `json:"message"`
	RespondedBy string    `json:"respondedBy"`
	RespondedAt time.Time `json:"respondedAt"`
	SendEmail   bool      `json:"sendEmail"`
}

// ResponseList is stored as a JSON column on the enquiry row
type ResponseList = datatypes.JSONSlice[EnquiryResponse]

// Enquiry is a contact-form submission from the public site
type Enquiry struct {
	ID              int64                       `gorm:"primaryKey" json:"id,string"`
	Name            string                      `gorm:"size:200;not null" json:"name"`
	Email           string                      `gorm:"size:200;index;not null" json:"email"`
	Phone           string                      `gorm:"size:50" json:"phone"`
	Company         string                      `gorm:"size:200" json:"company"`
	Subject         string                      `gorm:"size:300" json:"subject"`
	Message         string                      `gorm:"type:text;not null" json:"message"`
	Product         string                      `gorm:"size:200;index" json:"product"` // product of interest, by name
	Source          string                      `gorm:"size:50" json:"source"`
	Status          string                      `gorm:"size:20;index;default:'new'" json:"status"`
	Priority        string                      `gorm:"size:20;index;default:'medium'" json:"priority"`
	IsRead          bool                        `gorm:"index;default:false" json:"isRead"`
	IsStarred       bool                        `gorm:"default:false" json:"isStarred"`
	Responses       ResponseList                `json:"responses"`
	ResponseCount   int                         `gorm:"default:0" json:"responseCount"`
	FirstResponseAt *time.Time                  `json:"firstResponseAt,omitempty"`
	Tags            datatypes.JSONSlice[string] `json:"tags"`
	CreatedAt       time.Time                   `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}

// TableName Specify table name
func (Enquiry) TableName() string {
	return "site_enquiry"
}

func IsValidEnquiryStatus(s string) bool {
	for _, v := range EnquiryStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func IsValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}
