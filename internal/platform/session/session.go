// Package session implements cookie-based login for the clinic staff.
// There is a single shared system password; each staff member identifies
// themselves by username at login, and the username is carried in a signed
// JWT cookie for the lifetime of the session.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// CookieName is the cookie that carries the session token.
const CookieName = "auth"

// Manager issues and validates session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewManager creates a session manager. Tokens are signed with HS256 using
// secret and expire after ttlHours. secure controls the cookie Secure flag
// and should be true outside development.
func NewManager(secret string, ttlHours int, secure bool) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    time.Duration(ttlHours) * time.Hour,
		secure: secure,
	}
}

// IssueToken creates a signed token identifying username.
func (m *Manager) IssueToken(username string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns the username it identifies.
func (m *Manager) ParseToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("session token has no subject")
	}
	return claims.Subject, nil
}

// Cookie builds the session cookie for a signed token.
func (m *Manager) Cookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds an expired cookie that removes the session.
func (m *Manager) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Guard rejects requests without a valid session cookie. The authenticated
// username is stored in the context under "username" so handlers can stamp
// records with who created them.
func (m *Manager) Guard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Request().Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "กรุณาเข้าสู่ระบบ")
			}

			username, err := m.ParseToken(cookie.Value)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "เซสชันหมดอายุ กรุณาเข้าสู่ระบบใหม่")
			}

			c.Set("username", username)
			return next(c)
		}
	}
}

// Username returns the authenticated username stored by Guard.
func Username(c echo.Context) string {
	name, _ := c.Get("username").(string)
	return name
}
