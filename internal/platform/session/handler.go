package session

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdoc/clinicdoc/internal/platform/apperror"
)

// Handler serves the login and logout endpoints.
type Handler struct {
	manager        *Manager
	systemPassword string
	logger         zerolog.Logger
}

func NewHandler(manager *Manager, systemPassword string, logger zerolog.Logger) *Handler {
	return &Handler{
		manager:        manager,
		systemPassword: systemPassword,
		logger:         logger,
	}
}

// RegisterRoutes mounts the auth endpoints on g. These routes sit outside
// the session guard: login must be reachable without a cookie.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/auth/login", h.Login)
	g.POST("/auth/logout", h.Logout)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username"`
}

// Login validates the shared system password and issues a session cookie
// carrying the supplied username.
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("กรุณากรอกชื่อผู้ใช้และรหัสผ่าน")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return apperror.Validation("กรุณากรอกชื่อผู้ใช้และรหัสผ่าน")
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.systemPassword)) != 1 {
		h.logger.Warn().Str("username", req.Username).Msg("failed login attempt")
		return echo.NewHTTPError(http.StatusUnauthorized, "รหัสผ่านไม่ถูกต้อง")
	}

	token, err := h.manager.IssueToken(req.Username, time.Now())
	if err != nil {
		return apperror.Persistence("เกิดข้อผิดพลาดในระบบ", err)
	}

	c.SetCookie(h.manager.Cookie(token))
	h.logger.Info().Str("username", req.Username).Msg("login")

	return c.JSON(http.StatusOK, loginResponse{Success: true, Username: req.Username})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c echo.Context) error {
	c.SetCookie(h.manager.ClearCookie())
	return c.JSON(http.StatusOK, map[string]string{"message": "ออกจากระบบสำเร็จ"})
}
