package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/bizsite/siteadmin/internal/webserver"
	"github.com/bizsite/siteadmin/pkg/common"
)

type loginPayload struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

func registerAuthRoutes() {
	webserver.PubPOST("/auth/login", login)
	webserver.ApiGET("/auth/me", currentOperator)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var opr domain.SysOpr
	err := GetDB(c).Where("username = ?", strings.TrimSpace(payload.Username)).First(&opr).Error
	if err != nil && !isNotFound(err) {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operator", err.Error())
	}
	if err != nil || !common.CheckPassword(opr.Password, payload.Password) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
	}
	if opr.Status != common.ENABLED {
		return fail(c, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled", nil)
	}

	cfg := GetAppContext(c).Config()
	ttl := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, expires, err := webserver.IssueToken(cfg.Auth.Secret, &opr, ttl)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err.Error())
	}

	opr.LastLogin = time.Now()
	if err := GetDB(c).Model(&domain.SysOpr{}).Where("id = ?", opr.ID).Update("last_login", opr.LastLogin).Error; err != nil {
		zap.L().Warn("update last login failed", zap.String("namespace", "web"), zap.String("username", opr.Username), zap.Error(err))
	}

	return ok(c, map[string]interface{}{
		"token":     token,
		"expiresAt": expires,
		"user":      opr,
	})
}

func currentOperator(c echo.Context) error {
	claims := webserver.CurrentUser(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", nil)
	}
	var opr domain.SysOpr
	if err := GetDB(c).Where("username = ?", claims.Username).First(&opr).Error; isNotFound(err) {
		return fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Operator no longer exists", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operator", err.Error())
	}
	return ok(c, opr)
}
