package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/enquiry"
	"github.com/bizsite/siteadmin/internal/webserver"
)

type enquiryPayload struct {
	Name     string   `json:"name" validate:"required,max=200"`
	Email    string   `json:"email" validate:"required,email,max=200"`
	Phone    string   `json:"phone" validate:"omitempty,max=50"`
	Company  string   `json:"company" validate:"omitempty,max=200"`
	Subject  string   `json:"subject" validate:"omitempty,max=300"`
	Message  string   `json:"message" validate:"required,max=5000"`
	Product  string   `json:"product" validate:"omitempty,max=200"`
	Source   string   `json:"source" validate:"omitempty,max=50"`
	Priority string   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Tags     []string `json:"tags"`
}

type enquiryUpdatePayload struct {
	Status    *string   `json:"status" validate:"omitempty,oneof=new in-progress resolved spam"`
	Priority  *string   `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Tags      *[]string `json:"tags"`
	IsRead    *bool     `json:"isRead"`
	IsStarred *bool     `json:"isStarred"`
}

type responsePayload struct {
	Message   string `json:"message"`
	SendEmail bool   `json:"sendEmail"`
}

// enquiryCSVRow is one line of the enquiry export
type enquiryCSVRow struct {
	ID        int64  `csv:"id"`
	CreatedAt string `csv:"created_at"`
	Name      string `csv:"name"`
	Email     string `csv:"email"`
	Phone     string `csv:"phone"`
	Company   string `csv:"company"`
	Subject   string `csv:"subject"`
	Product   string `csv:"product"`
	Status    string `csv:"status"`
	Priority  string `csv:"priority"`
	Responses int    `csv:"responses"`
	Message   string `csv:"message"`
}

var enquirySortColumns = map[string]string{
	"name":      "name",
	"status":    "status",
	"priority":  "priority",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// registerEnquiryRoutes registers the public submission and the admin inbox
func registerEnquiryRoutes() {
	webserver.PubPOST("/enquiries", submitEnquiry)

	webserver.ApiGET("/enquiries", listEnquiries)
	webserver.ApiGET("/enquiries/export", exportEnquiries)
	webserver.ApiGET("/enquiries/:id", getEnquiry)
	webserver.ApiPUT("/enquiries/:id", updateEnquiry)
	webserver.ApiPATCH("/enquiries/:id", updateEnquiry)
	webserver.ApiDELETE("/enquiries/:id", deleteEnquiry)
	webserver.ApiPOST("/enquiries/:id/responses", addEnquiryResponse)
	webserver.ApiPATCH("/enquiries/:id/star", toggleEnquiryStar)
	webserver.ApiPATCH("/enquiries/:id/read", toggleEnquiryRead)
}

func enquiryError(c echo.Context, err error, action string) error {
	switch {
	case errors.Is(err, enquiry.ErrNotFound):
		return fail(c, http.StatusNotFound, "ENQUIRY_NOT_FOUND", "Enquiry not found", nil)
	case errors.Is(err, enquiry.ErrInvalid):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	}
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to "+action+" enquiry", err.Error())
}

func submitEnquiry(c echo.Context) error {
	var payload enquiryPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse enquiry", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	e := domain.Enquiry{
		Name:     payload.Name,
		Email:    payload.Email,
		Phone:    strings.TrimSpace(payload.Phone),
		Company:  strings.TrimSpace(payload.Company),
		Subject:  strings.TrimSpace(payload.Subject),
		Message:  payload.Message,
		Product:  strings.TrimSpace(payload.Product),
		Source:   strings.TrimSpace(payload.Source),
		Priority: payload.Priority,
		Tags:     cleanTags(payload.Tags),
	}
	if err := GetAppContext(c).Enquiries().Submit(c.Request().Context(), &e); err != nil {
		return enquiryError(c, err, "submit")
	}

	return c.JSON(http.StatusCreated, webserver.Response{
		Success: true,
		Message: "Thank you for your enquiry. We will get back to you soon.",
		Data:    map[string]interface{}{"id": fmt.Sprint(e.ID), "status": e.Status},
	})
}

// parseDateQuery accepts any common date layout. A date without a time of
// day used as an upper bound covers that whole day.
func parseDateQuery(c echo.Context, name string, upper bool) (time.Time, bool, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := dateparse.ParseLocal(raw)
	if err != nil {
		return time.Time{}, false, err
	}
	if upper && !strings.Contains(raw, ":") {
		t = t.AddDate(0, 0, 1)
	}
	return t, true, nil
}

// enquiryFilter applies the list and export filters
func enquiryFilter(c echo.Context, db *gorm.DB) (*gorm.DB, error) {
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if priority := strings.TrimSpace(c.QueryParam("priority")); priority != "" {
		db = db.Where("priority = ?", priority)
	}
	if isRead := parseBoolQuery(c, "isRead"); isRead != nil {
		db = db.Where("is_read = ?", *isRead)
	}
	if isStarred := parseBoolQuery(c, "isStarred"); isStarred != nil {
		db = db.Where("is_starred = ?", *isStarred)
	}
	db = whereLike(db, c.QueryParam("q"), "name", "email", "company", "subject", "message")

	from, hasFrom, err := parseDateQuery(c, "from", false)
	if err != nil {
		return nil, err
	}
	if hasFrom {
		db = db.Where("created_at >= ?", from)
	}
	to, hasTo, err := parseDateQuery(c, "to", true)
	if err != nil {
		return nil, err
	}
	if hasTo {
		db = db.Where("created_at < ?", to)
	}
	return db, nil
}

func listEnquiries(c echo.Context) error {
	page, pageSize := parsePaginationWithDefault(c, 20)

	db, err := enquiryFilter(c, GetDB(c).Model(&domain.Enquiry{}))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Unable to parse date filter", err.Error())
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query enquiries", err.Error())
	}

	var rows []domain.Enquiry
	if err := db.Order(parseSort(c, enquirySortColumns)).Offset((page-1)*pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query enquiries", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

// exportEnquiries streams the filtered enquiries as CSV
func exportEnquiries(c echo.Context) error {
	db, err := enquiryFilter(c, GetDB(c).Model(&domain.Enquiry{}))
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_DATE", "Unable to parse date filter", err.Error())
	}

	var rows []domain.Enquiry
	if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query enquiries", err.Error())
	}

	out := make([]enquiryCSVRow, 0, len(rows))
	for _, e := range rows {
		out = append(out, enquiryCSVRow{
			ID:        e.ID,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
			Name:      e.Name,
			Email:     e.Email,
			Phone:     e.Phone,
			Company:   e.Company,
			Subject:   e.Subject,
			Product:   e.Product,
			Status:    e.Status,
			Priority:  e.Priority,
			Responses: e.ResponseCount,
			Message:   e.Message,
		})
	}

	filename := fmt.Sprintf("enquiries-%s.csv", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
	if err := gocsv.Marshal(out, c.Response()); err != nil {
		zap.L().Error("enquiry export failed", zap.String("namespace", "enquiry"), zap.Error(err))
		return err
	}
	return nil
}

func getEnquiry(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid enquiry ID", nil)
	}
	e, err := GetAppContext(c).Enquiries().Fetch(c.Request().Context(), id)
	if err != nil {
		return enquiryError(c, err, "query")
	}
	return ok(c, e)
}

func updateEnquiry(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid enquiry ID", nil)
	}

	var payload enquiryUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse enquiry parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	upd := enquiry.Update{
		Status:    payload.Status,
		Priority:  payload.Priority,
		IsRead:    payload.IsRead,
		IsStarred: payload.IsStarred,
	}
	if payload.Tags != nil {
		tags := cleanTags(*payload.Tags)
		upd.Tags = &tags
	}

	e, err := GetAppContext(c).Enquiries().Apply(c.Request().Context(), id, upd)
	if err != nil {
		return enquiryError(c, err, "update")
	}
	return ok(c, e)
}

func deleteEnquiry(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid enquiry ID", nil)
	}
	if err := GetAppContext(c).Enquiries().Delete(c.Request().Context(), id); err != nil {
		return enquiryError(c, err, "delete")
	}
	return okMessage(c, "Enquiry deleted", map[string]interface{}{"id": id})
}

func addEnquiryResponse(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid enquiry ID", nil)
	}

	var payload responsePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse response", nil)
	}
	if strings.TrimSpace(payload.Message) == "" {
		return fail(c, http.StatusBadRequest, "MISSING_MESSAGE", "Response message is required", nil)
	}

	e, err := GetAppContext(c).Enquiries().AddResponse(c.Request().Context(), id, domain.EnquiryResponse{
		Message:     payload.Message,
		RespondedBy: currentUsername(c),
		SendEmail:   payload.SendEmail,
	})
	if err != nil {
		return enquiryError(c, err, "respond to")
	}
	return okMessage(c, "Response added", e)
}

func toggleEnquiryStar(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid enquiry ID", nil)
	}
	e, err := GetAppContext(c).Enquiries().ToggleStar(c.Request().Context(), id)
	if err != nil {
		return enquiryError(c, err, "update")
	}
	return ok(c, e)
}

func toggleEnquiryRead(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid enquiry ID", nil)
	}
	e, err := GetAppContext(c).Enquiries().ToggleRead(c.Request().Context(), id)
	if err != nil {
		return enquiryError(c, err, "update")
	}
	return ok(c, e)
}
