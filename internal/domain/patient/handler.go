package patient

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdoc/clinicdoc/internal/platform/apperror"
	"github.com/clinicdoc/clinicdoc/internal/platform/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/patients", h.ListPatients)
	g.POST("/patients", h.CreatePatient)
	g.GET("/patients/search", h.SearchPatient)
	g.GET("/patients/:id", h.GetPatient)
	g.PATCH("/patients/:id", h.UpdatePatient)
	g.DELETE("/patients/:id", h.DeletePatient)

	g.POST("/admissions", h.CreateAdmission)
	g.PATCH("/admissions/:id", h.UpdateAdmission)

	g.POST("/progress-notes", h.CreateProgressNote)
	g.GET("/progress-notes", h.ListProgressNotes)
	g.GET("/progress-notes/:id", h.GetProgressNote)
	g.DELETE("/progress-notes/:id", h.DeleteProgressNote)
}

func (h *Handler) ListPatients(c echo.Context) error {
	patients, err := h.svc.ListPatients(c.Request().Context(), c.QueryParam("search"), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apperror.Validation("Hospital Number, First Name, and Last Name are required")
	}
	p.CreatedBy = session.Username(c)

	if err := h.svc.RegisterPatient(c.Request().Context(), &p); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid id")
	}
	detail, err := h.svc.GetPatientDetail(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid id")
	}
	var upd PatientUpdate
	if err := c.Bind(&upd); err != nil {
		return apperror.Validation("invalid request body")
	}
	p, err := h.svc.UpdatePatient(c.Request().Context(), id, upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid id")
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) SearchPatient(c echo.Context) error {
	result, err := h.svc.SearchByHN(c.Request().Context(), c.QueryParam("hn"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) CreateAdmission(c echo.Context) error {
	var a Admission
	if err := c.Bind(&a); err != nil {
		return apperror.Validation("Admission Number, Patient ID, and Bed Number are required")
	}
	if err := h.svc.CreateAdmission(c.Request().Context(), &a); err != nil {
		return err
	}
	a.ProgressNotes = []*ProgressNote{}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) UpdateAdmission(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid id")
	}
	var upd AdmissionUpdate
	if err := c.Bind(&upd); err != nil {
		return apperror.Validation("invalid request body")
	}
	a, err := h.svc.UpdateAdmission(c.Request().Context(), id, upd)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CreateProgressNote(c echo.Context) error {
	var n ProgressNote
	if err := c.Bind(&n); err != nil {
		return apperror.Validation("Admission ID is required")
	}
	n.CreatedBy = session.Username(c)

	if err := h.svc.CreateNote(c.Request().Context(), &n); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) ListProgressNotes(c echo.Context) error {
	admissionID, err := uuid.Parse(c.QueryParam("admissionId"))
	if err != nil {
		return apperror.Validation("invalid admissionId")
	}
	notes, err := h.svc.ListNotes(c.Request().Context(), admissionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, notes)
}

func (h *Handler) GetProgressNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid id")
	}
	n, err := h.svc.GetNote(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) DeleteProgressNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperror.Validation("invalid id")
	}
	if err := h.svc.DeleteNote(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}
