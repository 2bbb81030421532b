package assessment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdoc/clinicdoc/internal/platform/apperror"
	"github.com/clinicdoc/clinicdoc/internal/platform/session"
	"github.com/clinicdoc/clinicdoc/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/assessments", h.List)
	g.POST("/assessments", h.Create)
	g.GET("/assessments/:id", h.Get)
	g.PATCH("/assessments/:id", h.Update)
	g.DELETE("/assessments/:id", h.Delete)
	g.GET("/assessments/:id/report", h.Report)

	g.GET("/admin/assessments", h.AdminList)
	g.DELETE("/admin/assessments/bulk-delete", h.BulkDelete)
	g.GET("/admin/stats", h.AdminStats)

	g.GET("/reports/stats", h.Stats)
}

func (h *Handler) List(c echo.Context) error {
	list, err := h.svc.ListRecent(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("ข้อมูลไม่ถูกต้อง")
	}
	a, err := h.svc.Create(c.Request().Context(), &req, session.Username(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NotFound("ไม่พบข้อมูลการประเมิน")
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NotFound("ไม่พบข้อมูลการประเมิน")
	}
	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return apperror.Validation("ข้อมูลไม่ถูกต้อง")
	}
	a, err := h.svc.Update(c.Request().Context(), id, body, session.Username(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NotFound("ไม่พบข้อมูลการประเมิน")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "ลบข้อมูลสำเร็จ"})
}

func (h *Handler) Report(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.NotFound("ไม่พบข้อมูลการประเมิน")
	}
	text, err := h.svc.Report(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"report": text})
}

func (h *Handler) AdminList(c echo.Context) error {
	params := pagination.FromContext(c)
	list, total, err := h.svc.AdminList(c.Request().Context(), AdminQuery{
		Search:    c.QueryParam("search"),
		Diagnosis: c.QueryParam("diagnosis"),
		DateFrom:  c.QueryParam("dateFrom"),
		DateTo:    c.QueryParam("dateTo"),
		Limit:     params.Limit,
		Offset:    params.Offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(list, total, params.Limit, params.Offset))
}

type bulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

func (h *Handler) BulkDelete(c echo.Context) error {
	var req bulkDeleteRequest
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("กรุณาระบุ ID ที่ต้องการลบ")
	}
	if err := h.svc.BulkDelete(c.Request().Context(), req.IDs); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("ลบข้อมูล %d รายการสำเร็จ", len(req.IDs)),
	})
}

func (h *Handler) AdminStats(c echo.Context) error {
	stats, err := h.svc.AdminStats(c.Request().Context(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Stats serves the filtered statistics report. The response echoes the
// requested window and diagnosis so the dashboard can label itself.
func (h *Handler) Stats(c echo.Context) error {
	diagnosis := c.QueryParam("diagnosis")
	dateFrom := c.QueryParam("dateFrom")
	dateTo := c.QueryParam("dateTo")

	report, err := h.svc.Stats(c.Request().Context(), diagnosis, dateFrom, dateTo, time.Now())
	if err != nil {
		return err
	}

	scope := diagnosis
	if scope == "" {
		scope = "ทั้งหมด"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"stats":       report.Stats,
		"percentages": report.Percentages,
		"dateRange": map[string]interface{}{
			"from": nullable(dateFrom),
			"to":   nullable(dateTo),
		},
		"diagnosis": scope,
	})
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
