package utils

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// TokenData is what we need from the identity provider's token: the
// stable subject identifier plus display claims.
type TokenData struct {
	Sub   string
	Email string
	Name  string
}

var ErrNoToken = errors.New("no bearer token in request")

// ParseTokenDataCtx extracts the Cognito claims from the Authorization
// header. Signature verification happened upstream (the token was issued
// by the pool we exchange credentials with); here we only read the
// already-authenticated caller identity.
func ParseTokenDataCtx(c echo.Context) (*TokenData, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, ErrNoToken
	}

	raw := strings.TrimPrefix(header, "Bearer ")
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, err
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("token has no sub claim")
	}

	data := &TokenData{Sub: sub}
	if email, ok := claims["email"].(string); ok {
		data.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		data.Name = name
	}
	return data, nil
}
