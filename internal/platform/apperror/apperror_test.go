package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Validation("missing field"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("duplicate"), http.StatusConflict},
		{Persistence("query failed", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{echo.NewHTTPError(http.StatusUnauthorized, "no"), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if got := Status(tc.err); got != tc.status {
			t.Errorf("Status(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}

func TestFromStorage_NoRows(t *testing.T) {
	appErr := FromStorage(pgx.ErrNoRows, "not found", "dup", "failed")
	if appErr.Kind != KindNotFound {
		t.Errorf("expected KindNotFound, got %d", appErr.Kind)
	}
	if appErr.Message != "not found" {
		t.Errorf("expected not-found message, got %s", appErr.Message)
	}
}

func TestFromStorage_UniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505"}
	appErr := FromStorage(fmt.Errorf("insert: %w", pgErr), "not found", "dup", "failed")
	if appErr.Kind != KindConflict {
		t.Errorf("expected KindConflict, got %d", appErr.Kind)
	}
}

func TestFromStorage_Other(t *testing.T) {
	appErr := FromStorage(errors.New("connection reset"), "not found", "dup", "failed")
	if appErr.Kind != KindPersistence {
		t.Errorf("expected KindPersistence, got %d", appErr.Kind)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !IsUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Error("expected unique violation to be detected")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Error("expected foreign key violation not to match")
	}
	if IsUniqueViolation(errors.New("plain")) {
		t.Error("expected plain error not to match")
	}
}

func TestHTTPErrorHandler_AppError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := HTTPErrorHandler(zerolog.Nop())
	handler(NotFound("ไม่พบข้อมูลการประเมิน"), c)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["error"] != "ไม่พบข้อมูลการประเมิน" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestHTTPErrorHandler_UnknownError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := HTTPErrorHandler(zerolog.Nop())
	handler(errors.New("internal detail that must not leak"), c)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body["error"] != "เกิดข้อผิดพลาดในระบบ" {
		t.Errorf("expected generic message, got %s", body["error"])
	}
}
