package webserver

import (
	"strconv"
	"time"

	"github.com/bizsite/siteadmin/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthClaims is the admin token payload
type AuthClaims struct {
	Username string `json:"username"`
	Level    string `json:"level"`
	jwt.RegisteredClaims
}

func newClaims(echo.Context) jwt.Claims {
	return new(AuthClaims)
}

// IssueToken signs an HS256 token for opr valid for ttl
func IssueToken(secret string, opr *domain.SysOpr, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("auth secret is not configured")
	}
	now := time.Now()
	expires := now.Add(ttl)
	claims := AuthClaims{
		Username: opr.Username,
		Level:    opr.Level,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(opr.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return token, expires, nil
}

// CurrentUser returns the claims of the authenticated admin, or nil
func CurrentUser(c echo.Context) *AuthClaims {
	token, ok := c.Get(UserContextKey).(*jwt.Token)
	if !ok || token == nil {
		return nil
	}
	claims, _ := token.Claims.(*AuthClaims)
	return claims
}
