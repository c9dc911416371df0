package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/events"
	"github.com/bizsite/siteadmin/internal/webserver"
	"github.com/bizsite/siteadmin/pkg/common"
)

func registerClientRoutes() {
	webserver.ApiGET("/clients", listClients)
	webserver.ApiGET("/clients/:id", getClient)
	webserver.ApiPOST("/clients", createClient)
	webserver.ApiPUT("/clients/:id", updateClient)
	webserver.ApiPATCH("/clients/:id", updateClient)
	webserver.ApiDELETE("/clients/:id", deleteClient)
}

var clientSortColumns = map[string]string{
	"name":      "name",
	"company":   "company",
	"industry":  "industry",
	"createdAt": "created_at",
}

func listClients(c echo.Context) error {
	page, pageSize := parsePagination(c)

	base := GetDB(c).Model(&domain.Client{})
	base = whereLike(base, c.QueryParam("q"), "name", "company")
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		base = base.Where("status = ?", status)
	}
	if industry := strings.TrimSpace(c.QueryParam("industry")); industry != "" {
		base = base.Where("industry = ?", industry)
	}
	if featured := parseBoolQuery(c, "featured"); featured != nil {
		base = base.Where("featured = ?", *featured)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query clients", err.Error())
	}

	var clients []domain.Client
	if err := base.Order(parseSort(c, clientSortColumns)).Offset((page-1)*pageSize).Limit(pageSize).Find(&clients).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query clients", err.Error())
	}
	return paged(c, clients, total, page, pageSize)
}

func getClient(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid client ID", nil)
	}
	var cl domain.Client
	if err := GetDB(c).Where("id = ?", id).First(&cl).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query client", err.Error())
	}
	return ok(c, cl)
}

type clientPayload struct {
	Name        string `json:"name" validate:"omitempty,max=200"`
	Company     string `json:"company" validate:"omitempty,max=200"`
	Industry    string `json:"industry" validate:"omitempty,max=100"`
	Website     string `json:"website" validate:"omitempty,max=500"`
	Logo        string `json:"logo" validate:"omitempty,max=1024"`
	Description string `json:"description"`
	Testimonial string `json:"testimonial"`
	Status      string `json:"status" validate:"omitempty,oneof=active completed inactive"`
	Featured    *bool  `json:"featured"`
}

func clientNameTaken(c echo.Context, name string, excludeID int64) bool {
	var dup int64
	GetDB(c).Model(&domain.Client{}).Where("LOWER(name) = ? AND id != ?", strings.ToLower(name), excludeID).Count(&dup)
	return dup > 0
}

func createClient(c echo.Context) error {
	var payload clientPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse client parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	name := strings.TrimSpace(payload.Name)
	if name == "" {
		return fail(c, http.StatusBadRequest, "MISSING_NAME", "Client name is required", nil)
	}
	if clientNameTaken(c, name, 0) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_CLIENT", "Client with this name already exists", nil)
	}

	cl := domain.Client{
		ID:          common.UUIDint64(),
		Name:        name,
		Company:     payload.Company,
		Industry:    payload.Industry,
		Website:     payload.Website,
		Logo:        payload.Logo,
		Description: payload.Description,
		Testimonial: payload.Testimonial,
		Status:      common.IfEmptyStr(payload.Status, domain.ClientStatusActive),
		Featured:    payload.Featured != nil && *payload.Featured,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := GetDB(c).Create(&cl).Error; isDuplicate(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_CLIENT", "Client with this name already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create client", err.Error())
	}

	GetAppContext(c).Events().Publish(events.Event{
		Topic:      events.TopicClientCreated,
		EntityType: "client",
		EntityID:   cl.ID,
		Title:      "New client added",
		Detail:     cl.Name,
	})
	return created(c, cl)
}

func updateClient(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid client ID", nil)
	}
	var payload clientPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse client parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	var cl domain.Client
	if err := GetDB(c).Where("id = ?", id).First(&cl).Error; isNotFound(err) {
		return fail(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query client", err.Error())
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(payload.Name); name != "" && name != cl.Name {
		if clientNameTaken(c, name, id) {
			return fail(c, http.StatusBadRequest, "DUPLICATE_CLIENT", "Another client with this name already exists", nil)
		}
		updates["name"] = name
	}
	if payload.Company != "" {
		updates["company"] = payload.Company
	}
	if payload.Industry != "" {
		updates["industry"] = payload.Industry
	}
	if payload.Website != "" {
		updates["website"] = payload.Website
	}
	if payload.Logo != "" {
		updates["logo"] = payload.Logo
	}
	if payload.Description != "" {
		updates["description"] = payload.Description
	}
	if payload.Testimonial != "" {
		updates["testimonial"] = payload.Testimonial
	}
	if payload.Status != "" {
		updates["status"] = payload.Status
	}
	if payload.Featured != nil {
		updates["featured"] = *payload.Featured
	}
	updates["updated_at"] = time.Now()
	if err := GetDB(c).Model(&cl).Updates(updates).Error; isDuplicate(err) {
		return fail(c, http.StatusBadRequest, "DUPLICATE_CLIENT", "Another client with this name already exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update client", err.Error())
	}
	GetDB(c).Where("id = ?", id).First(&cl)
	return ok(c, cl)
}

func deleteClient(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid client ID", nil)
	}
	res := GetDB(c).Where("id = ?", id).Delete(&domain.Client{})
	if res.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete client", res.Error.Error())
	}
	if res.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "CLIENT_NOT_FOUND", "Client not found", nil)
	}
	return okMessage(c, "Client deleted", map[string]interface{}{"id": id})
}
