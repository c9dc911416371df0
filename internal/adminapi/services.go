package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/webserver"
	"github.com/bizsite/siteadmin/pkg/common"
)

type servicePayload struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Category    string   `json:"category" validate:"omitempty,max=100"`
	Status      string   `json:"status" validate:"omitempty,oneof=active in-progress completed inactive"`
	Price       float64  `json:"price" validate:"gte=0"`
	Duration    string   `json:"duration" validate:"omitempty,max=100"`
	Featured    bool     `json:"featured"`
	Image       string   `json:"image" validate:"omitempty,max=1024"`
	Features    []string `json:"features"`
	SortOrder   int      `json:"sortOrder"`
}

type serviceUpdatePayload struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Category    *string   `json:"category" validate:"omitempty,max=100"`
	Status      *string   `json:"status" validate:"omitempty,oneof=active in-progress completed inactive"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	Duration    *string   `json:"duration" validate:"omitempty,max=100"`
	Featured    *bool     `json:"featured"`
	Image       *string   `json:"image" validate:"omitempty,max=1024"`
	Features    *[]string `json:"features"`
	SortOrder   *int      `json:"sortOrder"`
}

var serviceSortColumns = map[string]string{
	"title":     "title",
	"price":     "price",
	"sortOrder": "sort_order",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

func registerServiceRoutes() {
	webserver.ApiGET("/services", ListServices)
	webserver.ApiGET("/services/:id", GetService)
	webserver.ApiPOST("/services", CreateService)
	webserver.ApiPUT("/services/:id", UpdateService)
	webserver.ApiPATCH("/services/:id", UpdateService)
	webserver.ApiDELETE("/services/:id", DeleteService)
}

// ListServices returns a paginated list of services
func ListServices(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.Service{})
	db = whereLike(db, c.QueryParam("q"), "title", "description")

	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		db = db.Where("category = ?", category)
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if featured := parseBoolQuery(c, "featured"); featured != nil {
		db = db.Where("featured = ?", *featured)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query services", err.Error())
	}

	var services []domain.Service
	if err := db.Order(parseSort(c, serviceSortColumns)).Offset((page-1)*pageSize).Limit(pageSize).Find(&services).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query services", err.Error())
	}

	return paged(c, services, total, page, pageSize)
}

// GetService returns a single service by ID
func GetService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}

	var s domain.Service
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query service", err.Error())
	}
	return ok(c, s)
}

// CreateService adds a service offering
func CreateService(c echo.Context) error {
	var payload servicePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse service parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	now := time.Now()
	s := domain.Service{
		ID:          common.UUIDint64(),
		Title:       strings.TrimSpace(payload.Title),
		Description: payload.Description,
		Category:    strings.TrimSpace(payload.Category),
		Status:      common.IfEmptyStr(payload.Status, domain.ServiceStatusActive),
		Price:       payload.Price,
		Duration:    payload.Duration,
		Featured:    payload.Featured,
		Image:       strings.TrimSpace(payload.Image),
		Features:    cleanTags(payload.Features),
		SortOrder:   payload.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.Title == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Title is required", nil)
	}

	if err := GetDB(c).Create(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create service", err.Error())
	}
	return created(c, s)
}

// UpdateService applies a partial update to a service
func UpdateService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}

	var payload serviceUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse service parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var s domain.Service
	if err := GetDB(c).Where("id = ?", id).First(&s).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query service", err.Error())
	}

	if payload.Title != nil {
		title := strings.TrimSpace(*payload.Title)
		if title == "" {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Title is required", nil)
		}
		s.Title = title
	}
	if payload.Description != nil {
		s.Description = *payload.Description
	}
	if payload.Category != nil {
		s.Category = strings.TrimSpace(*payload.Category)
	}
	if payload.Status != nil {
		s.Status = *payload.Status
	}
	if payload.Price != nil {
		s.Price = *payload.Price
	}
	if payload.Duration != nil {
		s.Duration = *payload.Duration
	}
	if payload.Featured != nil {
		s.Featured = *payload.Featured
	}
	if payload.Image != nil {
		s.Image = strings.TrimSpace(*payload.Image)
	}
	if payload.Features != nil {
		s.Features = cleanTags(*payload.Features)
	}
	if s.Features == nil {
		s.Features = []string{}
	}
	if payload.SortOrder != nil {
		s.SortOrder = *payload.SortOrder
	}
	s.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&s).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update service", err.Error())
	}
	return ok(c, s)
}

// DeleteService removes a service
func DeleteService(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid service ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Service{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete service", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "SERVICE_NOT_FOUND", "Service not found", nil)
	}
	return okMessage(c, "Service deleted", map[string]interface{}{"id": id})
}
