package app

import (
	"errors"
	"strings"
	"time"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// checkSuper makes sure the configured admin account exists and is usable
func (a *Application) checkSuper() {
	superUsername := common.IfEmptyStr(a.appConfig.Auth.AdminUsername, "admin")
	defaultPassword := common.IfEmptyStr(a.appConfig.Auth.AdminPassword, "siteadmin")

	hashedPassword, err := common.HashPassword(defaultPassword)
	if err != nil {
		zap.L().Error("failed to hash default admin password", zap.Error(err))
		return
	}

	var operator domain.SysOpr
	err = a.gormDB.Where("username = ?", superUsername).First(&operator).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysOpr{
			ID:        common.UUIDint64(),
			Realname:  "administrator",
			Email:     common.NA,
			Username:  superUsername,
			Password:  hashedPassword,
			Level:     "super",
			Status:    common.ENABLED,
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("username", superUsername))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(operator.Password) == ""
	resetLevel := !strings.EqualFold(operator.Level, "super")
	resetStatus := !strings.EqualFold(operator.Status, common.ENABLED)

	if !resetPassword && !resetLevel && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		updates["password"] = hashedPassword
	}
	if resetLevel {
		updates["level"] = "super"
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}

	if err := a.gormDB.Model(&domain.SysOpr{}).Where("id = ?", operator.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("username", superUsername),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("levelReset", resetLevel),
		zap.Bool("statusEnabled", resetStatus))
}

// checkCategories creates the starter gallery and service categories.
// Product categories appear on first use and are never seeded.
func (a *Application) checkCategories() {
	defaults := []domain.Category{
		{Name: "Installation", Type: domain.CategoryTypeService, Description: "On-site installation work"},
		{Name: "Maintenance", Type: domain.CategoryTypeService, Description: "Scheduled maintenance and repair"},
		{Name: "Consulting", Type: domain.CategoryTypeService, Description: "Technical consulting"},
		{Name: "Projects", Type: domain.CategoryTypeGallery, Description: "Completed project photos"},
		{Name: "Facilities", Type: domain.CategoryTypeGallery, Description: "Workshop and office"},
	}

	for _, cat := range defaults {
		var count int64
		a.gormDB.Model(&domain.Category{}).Where("name = ? AND type = ?", cat.Name, cat.Type).Count(&count)
		if count > 0 {
			continue
		}
		cat.ID = common.UUIDint64()
		cat.CreatedAt = time.Now()
		cat.UpdatedAt = time.Now()
		if err := a.gormDB.Create(&cat).Error; err != nil {
			zap.L().Error("failed to create default category", zap.String("name", cat.Name), zap.Error(err))
		} else {
			zap.L().Info("initialized default category", zap.String("name", cat.Name), zap.String("type", cat.Type))
		}
	}
}
