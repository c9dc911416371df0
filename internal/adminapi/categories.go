package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bizsite/siteadmin/internal/catalog"
	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/events"
	"github.com/bizsite/siteadmin/internal/webserver"
)

type categoryPayload struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Type        string `json:"type" validate:"omitempty,oneof=product gallery service other"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Image       string `json:"image" validate:"omitempty,max=1024"`
}

// categoryUpdatePayload has no type field, the namespace is fixed at creation
type categoryUpdatePayload struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Image       *string `json:"image" validate:"omitempty,max=1024"`
}

var categorySortColumns = map[string]string{
	"name":       "name",
	"type":       "type",
	"usageCount": "usage_count",
	"createdAt":  "created_at",
}

// registerCategoryRoutes registers category CRUD routes
func registerCategoryRoutes() {
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/categories/:id", getCategory)
	webserver.ApiPOST("/categories", createCategory)
	webserver.ApiPOST("/categories/reconcile", reconcileCategories)
	webserver.ApiPUT("/categories/:id", updateCategory)
	webserver.ApiPATCH("/categories/:id", updateCategory)
	webserver.ApiDELETE("/categories/:id", deleteCategory)
}

// categoryError translates synchronizer errors into the API taxonomy
func categoryError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	case errors.Is(err, catalog.ErrDuplicate):
		return fail(c, http.StatusBadRequest, "CATEGORY_EXISTS", "Category name already exists", nil)
	case errors.Is(err, catalog.ErrInvalid):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to "+action+" category", err.Error())
}

func listCategories(c echo.Context) error {
	page, pageSize := parsePaginationWithDefault(c, 50)

	db := GetDB(c).Model(&domain.Category{})
	if typ := strings.TrimSpace(c.QueryParam("type")); typ != "" {
		db = db.Where("type = ?", typ)
	}
	db = whereLike(db, c.QueryParam("q"), "name")

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	var rows []domain.Category
	if err := db.Order(parseSort(c, categorySortColumns)).Offset((page-1)*pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}
	catalog.ClampAll(rows)

	return paged(c, rows, total, page, pageSize)
}

func getCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	var cat domain.Category
	if err := GetDB(c).Where("id = ?", id).First(&cat).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CATEGORY_NOT_FOUND", "Category not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query category", err.Error())
	}
	cat.UsageCount = catalog.ClampCount(cat.UsageCount)

	return ok(c, cat)
}

func createCategory(c echo.Context) error {
	var payload categoryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	cat := domain.Category{
		Name:        payload.Name,
		Type:        payload.Type,
		Description: payload.Description,
		Image:       strings.TrimSpace(payload.Image),
	}
	if err := GetAppContext(c).UsageSync().CreateCategory(c.Request().Context(), &cat); err != nil {
		return categoryError(c, err, "create")
	}

	return created(c, cat)
}

func updateCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	var payload categoryUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse category parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	appCtx := GetAppContext(c)
	ctx := c.Request().Context()

	res, err := appCtx.UsageSync().UpdateCategory(ctx, id, catalog.CategoryUpdate{
		Name:        payload.Name,
		Description: payload.Description,
		Image:       payload.Image,
	})
	if err != nil {
		return categoryError(c, err, "update")
	}
	cat := res.Category
	cat.UsageCount = catalog.ClampCount(cat.UsageCount)

	if res.Renamed() {
		appCtx.Events().Publish(events.Event{
			Topic:      events.TopicCategoryRenamed,
			EntityType: "category",
			EntityID:   cat.ID,
			Title:      "Category renamed",
			Detail:     fmt.Sprintf("%s renamed to %s, %d items relabelled", res.PreviousName, cat.Name, res.ProductsUpdated),
		})
	}

	return ok(c, map[string]interface{}{
		"category":        cat,
		"productsUpdated": res.ProductsUpdated,
	})
}

func deleteCategory(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid category ID", nil)
	}

	appCtx := GetAppContext(c)
	res, err := appCtx.UsageSync().DeleteCategory(c.Request().Context(), id)
	if err != nil {
		return categoryError(c, err, "delete")
	}

	appCtx.Events().Publish(events.Event{
		Topic:      events.TopicCategoryDeleted,
		EntityType: "category",
		EntityID:   id,
		Title:      "Category deleted",
		Detail:     fmt.Sprintf("%s removed, %d items moved to %s", res.Name, res.ProductsUpdated, domain.SentinelCategory),
	})

	return okMessage(c, "Category deleted", res)
}

// reconcileCategories recomputes product category usage counters on demand
func reconcileCategories(c echo.Context) error {
	fixes, err := GetAppContext(c).UsageSync().Reconcile(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "RECONCILE_FAILED", "Failed to reconcile category usage", err.Error())
	}
	if fixes == nil {
		fixes = []catalog.Correction{}
	}
	return ok(c, map[string]interface{}{
		"corrections": fixes,
	})
}
