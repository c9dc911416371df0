package adminapi

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/bizsite/siteadmin/internal/app"
	"github.com/bizsite/siteadmin/internal/webserver"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// defaultSort is applied when sortBy is missing or not whitelisted
const defaultSort = "created_at DESC"

// GetAppContext returns the application context attached by the web server
func GetAppContext(c echo.Context) app.AppContext {
	appCtx, _ := c.Get(webserver.AppContextKey).(app.AppContext)
	return appCtx
}

// GetDB returns the database handle bound to the request context
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, webserver.Response{Success: true, Data: data})
}

func created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, webserver.Response{Success: true, Data: data})
}

func okMessage(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, webserver.Response{Success: true, Data: data, Message: message})
}

func paged(c echo.Context, rows interface{}, total int64, page, pageSize int) error {
	totalPages := int64(math.Ceil(float64(total) / float64(pageSize)))
	return c.JSON(http.StatusOK, webserver.Response{
		Success: true,
		Data:    rows,
		Pagination: &webserver.Pagination{
			Page:       page,
			Limit:      pageSize,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// fail writes an error envelope. Details of server errors are only exposed
// in debug mode.
func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	if status >= http.StatusInternalServerError && !debugMode(c) {
		detail = nil
	}
	return c.JSON(status, webserver.Response{
		Success: false,
		Message: message,
		Error:   &webserver.ErrorInfo{Code: code, Details: detail},
	})
}

func debugMode(c echo.Context) bool {
	appCtx := GetAppContext(c)
	if appCtx == nil || appCtx.Config() == nil {
		return false
	}
	return appCtx.Config().System.Debug
}

// handleValidationError reports validator failures per field
func handleValidationError(c echo.Context, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
	}
	details := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, map[string]string{
			"field": lowerFirst(fe.Field()),
			"rule":  fe.Tag(),
			"param": fe.Param(),
		})
	}
	return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", details)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// parsePagination reads page and limit (pageSize is accepted as an alias)
func parsePagination(c echo.Context) (int, int) {
	return parsePaginationWithDefault(c, defaultPageSize)
}

func parsePaginationWithDefault(c echo.Context, defaultSize int) (int, int) {
	page := cast.ToInt(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	raw := c.QueryParam("limit")
	if raw == "" {
		raw = c.QueryParam("pageSize")
	}
	pageSize := cast.ToInt(raw)
	if pageSize <= 0 {
		pageSize = defaultSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// parseSort maps sortBy/order onto a whitelisted ORDER BY clause
func parseSort(c echo.Context, allowed map[string]string) string {
	field := strings.TrimSpace(c.QueryParam("sortBy"))
	if field == "" {
		field = strings.TrimSpace(c.QueryParam("sort"))
	}
	col, found := allowed[field]
	if !found {
		return defaultSort
	}
	order := "DESC"
	if strings.EqualFold(strings.TrimSpace(c.QueryParam("order")), "asc") {
		order = "ASC"
	}
	return col + " " + order
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// parseBoolQuery returns nil when the parameter is absent or not a boolean
func parseBoolQuery(c echo.Context, name string) *bool {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil
	}
	v, err := cast.ToBoolE(raw)
	if err != nil {
		return nil
	}
	return &v
}

// whereLike adds a case-insensitive substring match over columns
func whereLike(db *gorm.DB, q string, columns ...string) *gorm.DB {
	q = strings.TrimSpace(q)
	if q == "" || len(columns) == 0 {
		return db
	}
	isPostgres := db.Dialector.Name() == "postgres"
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		if isPostgres {
			conds = append(conds, col+" ILIKE ?")
			args = append(args, "%"+q+"%")
		} else {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, "%"+strings.ToLower(q)+"%")
		}
	}
	return db.Where(strings.Join(conds, " OR "), args...)
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func currentUsername(c echo.Context) string {
	if claims := webserver.CurrentUser(c); claims != nil {
		return claims.Username
	}
	return ""
}
