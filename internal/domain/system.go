package domain

import (
	"time"
)

// SysOpr is an administrator account allowed to use the admin API
type SysOpr struct {
	ID        int64     `json:"id,string"`
	Realname  string    `json:"realname"`
	Email     string    `json:"email"`
	Username  string    `gorm:"size:100;uniqueIndex" json:"username"`
	Password  string    `json:"-"`
	Level     string    `json:"level"`
	Status    string    `json:"status"`
	LastLogin time.Time `json:"lastLogin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName Specify table name
func (SysOpr) TableName() string {
	return "sys_opr"
}
