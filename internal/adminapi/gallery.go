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

type galleryPayload struct {
	Title       string `json:"title" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	ImageURL    string `json:"imageUrl" validate:"required,max=1024"`
	Category    string `json:"category" validate:"omitempty,max=100"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive"`
	Featured    bool   `json:"featured"`
	SortOrder   int    `json:"sortOrder"`
}

type galleryUpdatePayload struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,min=1,max=1024"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive"`
	Featured    *bool   `json:"featured"`
	SortOrder   *int    `json:"sortOrder"`
}

var gallerySortColumns = map[string]string{
	"title":     "title",
	"sortOrder": "sort_order",
	"createdAt": "created_at",
}

func registerGalleryRoutes() {
	webserver.ApiGET("/gallery", listGallery)
	webserver.ApiGET("/gallery/:id", getGalleryImage)
	webserver.ApiPOST("/gallery", createGalleryImage)
	webserver.ApiPUT("/gallery/:id", updateGalleryImage)
	webserver.ApiPATCH("/gallery/:id", updateGalleryImage)
	webserver.ApiDELETE("/gallery/:id", deleteGalleryImage)
}

func listGallery(c echo.Context) error {
	page, pageSize := parsePaginationWithDefault(c, 20)

	db := GetDB(c).Model(&domain.GalleryImage{})
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
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query gallery", err.Error())
	}

	var rows []domain.GalleryImage
	if err := db.Order(parseSort(c, gallerySortColumns)).Offset((page-1)*pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query gallery", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getGalleryImage(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid image ID", nil)
	}

	var img domain.GalleryImage
	if err := GetDB(c).Where("id = ?", id).First(&img).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "IMAGE_NOT_FOUND", "Gallery image not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query gallery image", err.Error())
	}
	return ok(c, img)
}

func createGalleryImage(c echo.Context) error {
	var payload galleryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse gallery parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	now := time.Now()
	img := domain.GalleryImage{
		ID:          common.UUIDint64(),
		Title:       strings.TrimSpace(payload.Title),
		Description: payload.Description,
		ImageURL:    strings.TrimSpace(payload.ImageURL),
		Category:    strings.TrimSpace(payload.Category),
		Status:      common.IfEmptyStr(payload.Status, "active"),
		Featured:    payload.Featured,
		SortOrder:   payload.SortOrder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if img.Title == "" || img.ImageURL == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Title and image URL are required", nil)
	}

	if err := GetDB(c).Create(&img).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create gallery image", err.Error())
	}
	return created(c, img)
}

func updateGalleryImage(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid image ID", nil)
	}

	var payload galleryUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse gallery parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var img domain.GalleryImage
	if err := GetDB(c).Where("id = ?", id).First(&img).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "IMAGE_NOT_FOUND", "Gallery image not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query gallery image", err.Error())
	}

	if payload.Title != nil {
		img.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		img.Description = *payload.Description
	}
	if payload.ImageURL != nil {
		img.ImageURL = strings.TrimSpace(*payload.ImageURL)
	}
	if payload.Category != nil {
		img.Category = strings.TrimSpace(*payload.Category)
	}
	if payload.Status != nil {
		img.Status = *payload.Status
	}
	if payload.Featured != nil {
		img.Featured = *payload.Featured
	}
	if payload.SortOrder != nil {
		img.SortOrder = *payload.SortOrder
	}
	if img.Title == "" || img.ImageURL == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Title and image URL are required", nil)
	}
	img.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&img).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update gallery image", err.Error())
	}
	return ok(c, img)
}

func deleteGalleryImage(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid image ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.GalleryImage{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete gallery image", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "IMAGE_NOT_FOUND", "Gallery image not found", nil)
	}
	return okMessage(c, "Gallery image deleted", map[string]interface{}{"id": id})
}
