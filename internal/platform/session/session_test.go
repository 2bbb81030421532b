package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", 8, false)

	token, err := m.IssueToken("nurse01", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	username, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if username != "nurse01" {
		t.Errorf("expected nurse01, got %s", username)
	}
}

func TestParseToken_Expired(t *testing.T) {
	m := NewManager("test-secret", 8, false)

	token, err := m.IssueToken("nurse01", time.Now().Add(-9*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.ParseToken(token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	m := NewManager("test-secret", 8, false)
	other := NewManager("other-secret", 8, false)

	token, err := m.IssueToken("nurse01", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := other.ParseToken(token); err == nil {
		t.Error("expected token signed with different secret to be rejected")
	}
}

func TestGuard_MissingCookie(t *testing.T) {
	m := NewManager("test-secret", 8, false)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	err := m.Guard()(handler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestGuard_ValidCookie(t *testing.T) {
	m := NewManager("test-secret", 8, false)
	token, err := m.IssueToken("nurse01", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if Username(c) != "nurse01" {
			t.Errorf("expected username in context, got %s", Username(c))
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := m.Guard()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newLoginContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestLogin_Success(t *testing.T) {
	m := NewManager("test-secret", 8, false)
	h := NewHandler(m, "clinic-pass", zerolog.Nop())

	c, rec := newLoginContext(t, `{"username":"nurse01","password":"clinic-pass"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || resp.Username != "nurse01" {
		t.Errorf("unexpected response: %+v", resp)
	}

	cookies := rec.Result().Cookies()
	var found bool
	for _, ck := range cookies {
		if ck.Name == CookieName && ck.Value != "" {
			found = true
			if !ck.HttpOnly {
				t.Error("expected HttpOnly cookie")
			}
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	m := NewManager("test-secret", 8, false)
	h := NewHandler(m, "clinic-pass", zerolog.Nop())

	c, _ := newLoginContext(t, `{"username":"nurse01","password":"wrong"}`)
	err := h.Login(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	m := NewManager("test-secret", 8, false)
	h := NewHandler(m, "clinic-pass", zerolog.Nop())

	for _, body := range []string{`{}`, `{"username":"nurse01"}`, `{"password":"clinic-pass"}`, `{"username":"  ","password":"clinic-pass"}`} {
		c, _ := newLoginContext(t, body)
		if err := h.Login(c); err == nil {
			t.Errorf("expected error for body %s", body)
		}
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	m := NewManager("test-secret", 8, false)
	h := NewHandler(m, "clinic-pass", zerolog.Nop())

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Logout(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cookies := rec.Result().Cookies()
	var cleared bool
	for _, ck := range cookies {
		if ck.Name == CookieName && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected session cookie to be cleared")
	}
}
