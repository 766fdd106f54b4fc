package directory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestHandlerCreateUser(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"full_name":"Tran Thi Mai","email":"mai@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateUser(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}

	var u User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if u.Role != RoleUser || u.Status != StatusActive {
		t.Errorf("defaults not applied: role=%q status=%q", u.Role, u.Status)
	}
}

func TestHandlerCreateUserDuplicateEmail(t *testing.T) {
	svc, users, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	existing := &User{ID: uuid.New(), FullName: "Le Van An", Email: "an@example.com", Role: RoleUser, Status: StatusActive}
	users.users[existing.ID] = existing

	body := `{"full_name":"Someone Else","email":"an@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateUser(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("err = %v, want 409 HTTPError", err)
	}
}

func TestHandlerGetChildNotFound(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetChild(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("err = %v, want 404 HTTPError", err)
	}
}

func TestHandlerCreateChild(t *testing.T) {
	svc, users, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	parent := &User{ID: uuid.New(), FullName: "Pham Thu Ha", Email: "ha@example.com", Role: RoleUser, Status: StatusActive}
	users.users[parent.ID] = parent

	birth := time.Now().AddDate(-2, 0, 0).Format(time.RFC3339)
	body := `{"parent_id":"` + parent.ID.String() + `","full_name":"Pham Minh Khoa","gender":"male","birth_date":"` + birth + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateChild(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}

	var child Child
	if err := json.Unmarshal(rec.Body.Bytes(), &child); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !child.Active {
		t.Error("new child should be active")
	}
}
