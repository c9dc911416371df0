package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bizsite/siteadmin/internal/app"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// AppContextKey stores the app.AppContext on every request
	AppContextKey = "appCtx"
	// UserContextKey stores the parsed admin token
	UserContextKey = "user"

	apiPrefix = "/api/v1"
)

var server *AdminServer

// AdminServer is the HTTP front of the admin API and the public site API
type AdminServer struct {
	root   *echo.Echo
	api    *echo.Group
	public *echo.Group
	appCtx app.AppContext
}

// Init builds the global server; route registrars need it first
func Init(appCtx app.AppContext) {
	server = NewAdminServer(appCtx)
}

// NewAdminServer wires middleware, codecs and the two route groups
func NewAdminServer(appCtx app.AppContext) *AdminServer {
	cfg := appCtx.Config()
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = &JSONSerializer{}
	e.Validator = NewValidator()
	e.HTTPErrorHandler = errorHandler(cfg.System.Debug)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			zap.L().Error("panic recovered",
				zap.String("namespace", "web"),
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err),
				zap.ByteString("stack", stack),
			)
			return err
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("namespace", "web"),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Debug("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	public := e.Group(apiPrefix)
	api := e.Group(apiPrefix, echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(cfg.Auth.Secret),
		SigningMethod: echojwt.AlgorithmHS256,
		ContextKey:    UserContextKey,
		NewClaimsFunc: newClaims,
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusUnauthorized, Response{
				Success: false,
				Message: "Authentication required",
				Error:   &ErrorInfo{Code: "UNAUTHORIZED"},
			})
		},
	}))

	return &AdminServer{root: e, api: api, public: public, appCtx: appCtx}
}

// Handler exposes the router, mainly for tests
func Handler() http.Handler {
	return server.root
}

// Listen serves until ctx is cancelled, then shuts down gracefully
func Listen(ctx context.Context) error {
	cfg := server.appCtx.Config()
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	zap.L().Info("admin api listening", zap.String("namespace", "web"), zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.root.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "start http server")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.root.Shutdown(shutdownCtx)
	}
}

// ApiGET registers an authenticated GET route under /api/v1
func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiPATCH(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PATCH(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

// PubGET registers an anonymous GET route under /api/v1
func PubGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.public.GET(path, h, m...)
}

func PubPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.public.POST(path, h, m...)
}
