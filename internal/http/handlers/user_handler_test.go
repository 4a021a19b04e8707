package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
	"github.com/lensworks/go-lens-backend/internal/services"
)

// ---------- CreateUser ----------

func TestCreateUser_BadJSON_Success_Duplicate_Role(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Bad JSON / missing fields -> 400
	{
		h := newStubHandlers()
		r := gin.New()
		r.POST("/users", h.CreateUser)

		for _, body := range []string{"{bad", `{"id":"u1"}`} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString(body))
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("body %q -> %d", body, w.Code)
			}
		}
	}

	// Success -> 201
	{
		svc := stubUserSvc{
			create: func(ctx context.Context, id, name, role string) (*domain.User, error) {
				return &domain.User{ID: id, Name: name, Role: role}, nil
			},
		}
		h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, svc, stubHistSvc{}, stubSearchSvc{})
		r := gin.New()
		r.POST("/users", h.CreateUser)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users",
			bytes.NewBufferString(`{"id":"u1","name":"Asha Verma","role":"Employee"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
		}
		var out domain.User
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.ID != "u1" || out.Name != "Asha Verma" || out.Role != "Employee" {
			t.Fatalf("unexpected user: %#v", out)
		}
	}

	// Duplicate ID -> 409
	{
		svc := stubUserSvc{
			create: func(context.Context, string, string, string) (*domain.User, error) {
				return nil, services.ErrDuplicateUser
			},
		}
		h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, svc, stubHistSvc{}, stubSearchSvc{})
		r := gin.New()
		r.POST("/users", h.CreateUser)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users",
			bytes.NewBufferString(`{"id":"u1","name":"X","role":"Admin"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusConflict {
			t.Fatalf("duplicate -> %d", w.Code)
		}
	}

	// Unknown role -> 400
	{
		svc := stubUserSvc{
			create: func(context.Context, string, string, string) (*domain.User, error) {
				return nil, services.ErrInvalidRole
			},
		}
		h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, svc, stubHistSvc{}, stubSearchSvc{})
		r := gin.New()
		r.POST("/users", h.CreateUser)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users",
			bytes.NewBufferString(`{"id":"u1","name":"X","role":"Owner"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("bad role -> %d", w.Code)
		}
	}
}

// ---------- GetUser / ListUsers ----------

func TestGetUser_Success_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	{
		h := newStubHandlers()
		r := gin.New()
		r.GET("/users/:id", h.GetUser)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/u1", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("get -> %d", w.Code)
		}
	}

	{
		svc := stubUserSvc{
			get: func(context.Context, string) (*domain.User, error) { return nil, services.ErrUserNotFound },
		}
		h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, svc, stubHistSvc{}, stubSearchSvc{})
		r := gin.New()
		r.GET("/users/:id", h.GetUser)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/missing", nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("missing -> %d", w.Code)
		}
	}
}

func TestListUsers_Success_Error(t *testing.T) {
	gin.SetMode(gin.TestMode)

	{
		svc := stubUserSvc{
			list: func(context.Context) ([]domain.User, error) {
				return []domain.User{{ID: "u1", Name: "Amit"}, {ID: "u2", Name: "Zara"}}, nil
			},
		}
		h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, svc, stubHistSvc{}, stubSearchSvc{})
		r := gin.New()
		r.GET("/users", h.ListUsers)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("list -> %d", w.Code)
		}
		var out ListUsersResponse
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if len(out.Users) != 2 || out.Users[0].Name != "Amit" {
			t.Fatalf("unexpected users: %#v", out.Users)
		}
	}

	{
		svc := stubUserSvc{
			list: func(context.Context) ([]domain.User, error) { return nil, gorm.ErrInvalidField },
		}
		h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, svc, stubHistSvc{}, stubSearchSvc{})
		r := gin.New()
		r.GET("/users", h.ListUsers)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users", nil))
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("error -> %d", w.Code)
		}
	}
}

// ---------- SetUserToken ----------

func TestSetUserToken_Blank_Success_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Missing or whitespace token -> 400
	{
		h := newStubHandlers()
		r := gin.New()
		r.PUT("/users/:id/token", h.SetUserToken)

		for _, body := range []string{"{bad", `{}`, `{"token":"   "}`} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPut, "/users/u1/token", bytes.NewBufferString(body))
			r.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("body %q -> %d", body, w.Code)
			}
			var er ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
				t.Fatalf("json: %v", err)
			}
			if er.Message != "token required" {
				t.Fatalf("message %q", er.Message)
			}
		}
	}

	// Success -> 204, args pass through
	{
		var got struct{ id, token string }
		svc := stubUserSvc{
			setToken: func(ctx context.Context, id, token string) error {
				got.id, got.token = id, token
				return nil
			},
		}
		h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, svc, stubHistSvc{}, stubSearchSvc{})
		r := gin.New()
		r.PUT("/users/:id/token", h.SetUserToken)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/users/u1/token", bytes.NewBufferString(`{"token":"device-token"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("set token -> %d", w.Code)
		}
		if got.id != "u1" || got.token != "device-token" {
			t.Fatalf("service args mismatch: %+v", got)
		}
	}

	// Unknown user -> 404
	{
		svc := stubUserSvc{
			setToken: func(context.Context, string, string) error { return services.ErrUserNotFound },
		}
		h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, svc, stubHistSvc{}, stubSearchSvc{})
		r := gin.New()
		r.PUT("/users/:id/token", h.SetUserToken)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/users/missing/token", bytes.NewBufferString(`{"token":"t"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("missing -> %d", w.Code)
		}
	}
}
