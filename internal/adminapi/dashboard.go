package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bizsite/siteadmin/internal/webserver"
)

func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard/stats", getDashboardStats)
	webserver.ApiGET("/dashboard/activity", getDashboardActivity)
}

// getDashboardStats returns the composed snapshot; any failed sub-query
// fails the whole request.
func getDashboardStats(c echo.Context) error {
	snap, err := GetAppContext(c).Dashboard().Stats(c.Request().Context(), c.QueryParam("timeRange"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DASHBOARD_ERROR", "Failed to compute dashboard statistics", err.Error())
	}
	return ok(c, snap)
}

func getDashboardActivity(c echo.Context) error {
	page, limit := parsePaginationWithDefault(c, 20)
	rows, total, err := GetAppContext(c).Events().Page(c.Request().Context(), page, limit)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query activity", err.Error())
	}
	return paged(c, rows, total, page, limit)
}
