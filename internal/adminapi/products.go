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

type productPayload struct {
	Name        string   `json:"name" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Category    string   `json:"category" validate:"omitempty,max=100"`
	Status      string   `json:"status" validate:"omitempty,oneof=Active Inactive"`
	Price       float64  `json:"price" validate:"gte=0"`
	Stock       int      `json:"stock" validate:"gte=0"`
	Rating      float64  `json:"rating" validate:"gte=0,lte=5"`
	ReviewCount int64    `json:"reviewCount" validate:"gte=0"`
	Featured    bool     `json:"featured"`
	Certified   bool     `json:"certified"`
	Popular     bool     `json:"popular"`
	Custom      bool     `json:"custom"`
	SKU         *string  `json:"sku" validate:"omitempty,max=64"`
	Image       string   `json:"image" validate:"omitempty,max=1024"`
	Tags        []string `json:"tags"`
}

type productUpdatePayload struct {
	Name        *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	Category    *string   `json:"category" validate:"omitempty,max=100"`
	Status      *string   `json:"status" validate:"omitempty,oneof=Active Inactive"`
	Price       *float64  `json:"price" validate:"omitempty,gte=0"`
	Stock       *int      `json:"stock" validate:"omitempty,gte=0"`
	Rating      *float64  `json:"rating" validate:"omitempty,gte=0,lte=5"`
	ReviewCount *int64    `json:"reviewCount" validate:"omitempty,gte=0"`
	Featured    *bool     `json:"featured"`
	Certified   *bool     `json:"certified"`
	Popular     *bool     `json:"popular"`
	Custom      *bool     `json:"custom"`
	SKU         *string   `json:"sku" validate:"omitempty,max=64"`
	Image       *string   `json:"image" validate:"omitempty,max=1024"`
	Tags        *[]string `json:"tags"`
}

var productSortColumns = map[string]string{
	"name":      "name",
	"price":     "price",
	"stock":     "stock",
	"views":     "views",
	"rating":    "rating",
	"category":  "category",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// registerProductRoutes registers product CRUD endpoints and the public catalog
func registerProductRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiPATCH("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)

	webserver.PubGET("/public/products", listPublicProducts)
	webserver.PubGET("/public/products/:id", getPublicProduct)
	webserver.PubPOST("/products/:id/view", recordProductView)
}

func productQuery(c echo.Context) *gorm.DB {
	db := GetDB(c).Model(&domain.Product{})
	db = whereLike(db, c.QueryParam("q"), "name", "description")
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		db = db.Where("category = ?", category)
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if featured := parseBoolQuery(c, "featured"); featured != nil {
		db = db.Where("featured = ?", *featured)
	}
	return db
}

func listProducts(c echo.Context) error {
	return queryProducts(c, productQuery(c))
}

func listPublicProducts(c echo.Context) error {
	return queryProducts(c, productQuery(c).Where("status = ?", domain.ProductStatusActive))
}

func queryProducts(c echo.Context, db *gorm.DB) error {
	page, pageSize := parsePaginationWithDefault(c, 12)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	err := db.Order(parseSort(c, productSortColumns)).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func loadProduct(c echo.Context, db *gorm.DB) (*domain.Product, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var p domain.Product
	if err := db.Where("id = ?", id).First(&p).Error; isNotFound(err) {
		return nil, fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return &p, nil
}

func getProduct(c echo.Context) error {
	p, err := loadProduct(c, GetDB(c))
	if p == nil {
		return err
	}
	return ok(c, p)
}

func getPublicProduct(c echo.Context) error {
	p, err := loadProduct(c, GetDB(c).Where("status = ?", domain.ProductStatusActive))
	if p == nil {
		return err
	}
	return ok(c, p)
}

// productCategory resolves a submitted label to the stored category spelling
func productCategory(c echo.Context, category string) string {
	return GetAppContext(c).UsageSync().CanonicalName(c.Request().Context(), category)
}

func normalizeSKU(sku *string) *string {
	if sku == nil {
		return nil
	}
	v := strings.TrimSpace(*sku)
	if v == "" {
		return nil
	}
	return &v
}

func skuTaken(c echo.Context, sku *string, excludeID int64) (bool, error) {
	if sku == nil {
		return false, nil
	}
	var exists int64
	if err := GetDB(c).Model(&domain.Product{}).Where("sku = ? AND id != ?", *sku, excludeID).Count(&exists).Error; err != nil {
		return false, err
	}
	return exists > 0, nil
}

func createProduct(c echo.Context) error {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	payload.Name = strings.TrimSpace(payload.Name)
	if payload.Name == "" {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name is required", nil)
	}
	sku := normalizeSKU(payload.SKU)
	if taken, err := skuTaken(c, sku, 0); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check product SKU", err.Error())
	} else if taken {
		return fail(c, http.StatusBadRequest, "PRODUCT_SKU_EXISTS", "Product SKU already exists", nil)
	}

	now := time.Now()
	p := domain.Product{
		ID:          common.UUIDint64(),
		Name:        payload.Name,
		Description: payload.Description,
		Category:    productCategory(c, payload.Category),
		Status:      common.IfEmptyStr(payload.Status, domain.ProductStatusActive),
		Price:       payload.Price,
		Stock:       payload.Stock,
		Rating:      payload.Rating,
		ReviewCount: payload.ReviewCount,
		Featured:    payload.Featured,
		Certified:   payload.Certified,
		Popular:     payload.Popular,
		Custom:      payload.Custom,
		SKU:         sku,
		Image:       strings.TrimSpace(payload.Image),
		Tags:        cleanTags(payload.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := GetDB(c).Create(&p).Error; isDuplicate(err) {
		return fail(c, http.StatusBadRequest, "PRODUCT_SKU_EXISTS", "Product SKU already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}

	ctx := c.Request().Context()
	appCtx := GetAppContext(c)
	appCtx.UsageSync().ProductCreated(ctx, p.Category)
	appCtx.Events().Publish(events.Event{
		Topic:      events.TopicProductCreated,
		EntityType: "product",
		EntityID:   p.ID,
		Title:      "New product added",
		Detail:     p.Name + " in " + p.Category,
	})

	return created(c, p)
}

func updateProduct(c echo.Context) error {
	p, err := loadProduct(c, GetDB(c))
	if p == nil {
		return err
	}

	var payload productUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	oldCategory := p.Category
	if payload.Name != nil {
		name := strings.TrimSpace(*payload.Name)
		if name == "" {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Name is required", nil)
		}
		p.Name = name
	}
	if payload.SKU != nil {
		sku := normalizeSKU(payload.SKU)
		if taken, err := skuTaken(c, sku, p.ID); err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to check product SKU", err.Error())
		} else if taken {
			return fail(c, http.StatusBadRequest, "PRODUCT_SKU_EXISTS", "Product SKU already exists", nil)
		}
		p.SKU = sku
	}
	if payload.Description != nil {
		p.Description = *payload.Description
	}
	if payload.Category != nil {
		p.Category = productCategory(c, *payload.Category)
	}
	if payload.Status != nil {
		p.Status = *payload.Status
	}
	if payload.Price != nil {
		p.Price = *payload.Price
	}
	if payload.Stock != nil {
		p.Stock = *payload.Stock
	}
	if payload.Rating != nil {
		p.Rating = *payload.Rating
	}
	if payload.ReviewCount != nil {
		p.ReviewCount = *payload.ReviewCount
	}
	if payload.Featured != nil {
		p.Featured = *payload.Featured
	}
	if payload.Certified != nil {
		p.Certified = *payload.Certified
	}
	if payload.Popular != nil {
		p.Popular = *payload.Popular
	}
	if payload.Custom != nil {
		p.Custom = *payload.Custom
	}
	if payload.Image != nil {
		p.Image = strings.TrimSpace(*payload.Image)
	}
	if payload.Tags != nil {
		p.Tags = cleanTags(*payload.Tags)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.UpdatedAt = time.Now()

	if err := GetDB(c).Save(p).Error; isDuplicate(err) {
		return fail(c, http.StatusBadRequest, "PRODUCT_SKU_EXISTS", "Product SKU already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}

	ctx := c.Request().Context()
	appCtx := GetAppContext(c)
	if p.Category != oldCategory {
		appCtx.UsageSync().ProductRecategorized(ctx, oldCategory, p.Category)
	}
	appCtx.Events().Publish(events.Event{
		Topic:      events.TopicProductUpdated,
		EntityType: "product",
		EntityID:   p.ID,
		Title:      "Product updated",
		Detail:     p.Name,
	})

	return ok(c, p)
}

func deleteProduct(c echo.Context) error {
	p, err := loadProduct(c, GetDB(c))
	if p == nil {
		return err
	}

	res := GetDB(c).Where("id = ?", p.ID).Delete(&domain.Product{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}

	ctx := c.Request().Context()
	appCtx := GetAppContext(c)
	appCtx.UsageSync().ProductDeleted(ctx, p.Category)
	appCtx.Events().Publish(events.Event{
		Topic:      events.TopicProductDeleted,
		EntityType: "product",
		EntityID:   p.ID,
		Title:      "Product removed",
		Detail:     p.Name,
	})

	return okMessage(c, "Product deleted", map[string]interface{}{"id": p.ID})
}

// recordProductView is called by the public site when a product page opens
func recordProductView(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	res := GetDB(c).Model(&domain.Product{}).
		Where("id = ? AND status = ?", id, domain.ProductStatusActive).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to record view", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	}

	var views int64
	if err := GetDB(c).Model(&domain.Product{}).Where("id = ?", id).Pluck("views", &views).Error; err != nil {
		zap.L().Warn("read product views failed", zap.String("namespace", "catalog"), zap.Int64("product_id", id), zap.Error(err))
	}
	return ok(c, map[string]interface{}{"id": id, "views": views})
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
