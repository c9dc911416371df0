package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/events"
	"github.com/bizsite/siteadmin/internal/webserver"
	"github.com/bizsite/siteadmin/pkg/common"
)

// brochurePayload represents the brochure request structure
type brochurePayload struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	FileURL     string `json:"fileUrl" validate:"required,max=1024"`
	FileSize    int64  `json:"fileSize" validate:"gte=0"`
}

// brochureUpdatePayload relaxes validation rules for partial updates
type brochureUpdatePayload struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	FileURL     *string `json:"fileUrl" validate:"omitempty,min=1,max=1024"`
	FileSize    *int64  `json:"fileSize" validate:"omitempty,gte=0"`
}

// registerBrochureRoutes registers brochure API routes
func registerBrochureRoutes() {
	webserver.ApiGET("/brochures", ListBrochures)
	webserver.ApiGET("/brochures/:id", GetBrochure)
	webserver.ApiPOST("/brochures", CreateBrochure)
	webserver.ApiPUT("/brochures/:id", UpdateBrochure)
	webserver.ApiPATCH("/brochures/:id", UpdateBrochure)
	webserver.ApiDELETE("/brochures/:id", DeleteBrochure)
	webserver.ApiPATCH("/brochures/:id/activate", ActivateBrochure)

	webserver.PubGET("/brochures/active", GetActiveBrochure)
}

// ListBrochures retrieves the brochure list
func ListBrochures(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Brochure{})
	db = whereLike(db, c.QueryParam("q"), "title")
	if active := parseBoolQuery(c, "isActive"); active != nil {
		db = db.Where("is_active = ?", *active)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brochures", err.Error())
	}

	var brochures []domain.Brochure
	if err := db.Order(parseSort(c, map[string]string{"title": "title", "downloads": "downloads", "createdAt": "created_at"})).
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&brochures).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brochures", err.Error())
	}

	return paged(c, brochures, total, page, pageSize)
}

// GetBrochure retrieves a single brochure
func GetBrochure(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brochure ID", nil)
	}

	var b domain.Brochure
	if err := GetDB(c).Where("id = ?", id).First(&b).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "BROCHURE_NOT_FOUND", "Brochure not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brochure", err.Error())
	}

	return ok(c, b)
}

func brochureTitleTaken(c echo.Context, title string, excludeID int64) (bool, error) {
	var count int64
	err := GetDB(c).Model(&domain.Brochure{}).
		Where("LOWER(title) = ? AND id != ?", strings.ToLower(title), excludeID).
		Count(&count).Error
	return count > 0, err
}

// CreateBrochure creates an inactive brochure
func CreateBrochure(c echo.Context) error {
	var payload brochurePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse brochure parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	title := strings.TrimSpace(payload.Title)
	if taken, err := brochureTitleTaken(c, title, 0); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check brochure title", err.Error())
	} else if taken {
		return fail(c, http.StatusBadRequest, "DUPLICATE_TITLE", "Brochure title already exists", nil)
	}

	b := domain.Brochure{
		ID:          common.UUIDint64(),
		Title:       title,
		Description: payload.Description,
		FileURL:     strings.TrimSpace(payload.FileURL),
		FileSize:    payload.FileSize,
		IsActive:    false,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := GetDB(c).Create(&b).Error; isDuplicate(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_TITLE", "Brochure title already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create brochure", err.Error())
	}

	return created(c, b)
}

// UpdateBrochure updates brochure metadata; activation has its own endpoint
func UpdateBrochure(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brochure ID", nil)
	}

	var payload brochureUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse brochure parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var b domain.Brochure
	if err := GetDB(c).Where("id = ?", id).First(&b).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "BROCHURE_NOT_FOUND", "Brochure not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brochure", err.Error())
	}

	if payload.Title != nil {
		title := strings.TrimSpace(*payload.Title)
		if title != b.Title {
			if taken, err := brochureTitleTaken(c, title, id); err != nil {
				return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check brochure title", err.Error())
			} else if taken {
				return fail(c, http.StatusBadRequest, "DUPLICATE_TITLE", "Brochure title already exists", nil)
			}
		}
		b.Title = title
	}
	if payload.Description != nil {
		b.Description = *payload.Description
	}
	if payload.FileURL != nil {
		b.FileURL = strings.TrimSpace(*payload.FileURL)
	}
	if payload.FileSize != nil {
		b.FileSize = *payload.FileSize
	}
	b.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&b).Error; isDuplicate(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_TITLE", "Brochure title already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update brochure", err.Error())
	}

	return ok(c, b)
}

// DeleteBrochure deletes a brochure
func DeleteBrochure(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brochure ID", nil)
	}

	res := GetDB(c).Where("id = ?", id).Delete(&domain.Brochure{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete brochure", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "BROCHURE_NOT_FOUND", "Brochure not found", nil)
	}

	return okMessage(c, "Brochure deleted", map[string]interface{}{"id": id})
}

// ActivateBrochure makes one brochure the active one. All others are
// deactivated first, in the same transaction.
func ActivateBrochure(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid brochure ID", nil)
	}

	var b domain.Brochure
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&b).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Brochure{}).
			Where("is_active = ? AND id != ?", true, id).
			Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error; err != nil {
			return err
		}
		b.IsActive = true
		b.UpdatedAt = time.Now()
		return tx.Model(&b).Updates(map[string]interface{}{"is_active": true, "updated_at": b.UpdatedAt}).Error
	})
	if isNotFound(err) {
		return fail(c, http.StatusNotFound, "BROCHURE_NOT_FOUND", "Brochure not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to activate brochure", err.Error())
	}

	GetAppContext(c).Events().Publish(events.Event{
		Topic:      events.TopicBrochureActivated,
		EntityType: "brochure",
		EntityID:   b.ID,
		Title:      "Brochure activated",
		Detail:     b.Title,
	})

	return ok(c, b)
}

// GetActiveBrochure serves the brochure download link to the public site
func GetActiveBrochure(c echo.Context) error {
	var b domain.Brochure
	if err := GetDB(c).Where("is_active = ?", true).Order("updated_at DESC").First(&b).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "NO_ACTIVE_BROCHURE", "No active brochure is configured", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query brochure", err.Error())
	}

	err := GetDB(c).Model(&domain.Brochure{}).
		Where("id = ?", b.ID).
		UpdateColumn("downloads", gorm.Expr("downloads + ?", 1)).Error
	if err != nil {
		zap.L().Warn("increment brochure downloads failed", zap.String("namespace", "web"), zap.Int64("brochure_id", b.ID), zap.Error(err))
	} else {
		b.Downloads++
	}
	return ok(c, b)
}
