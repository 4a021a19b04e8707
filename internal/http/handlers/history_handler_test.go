package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

func TestListHistory_KindsAndPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got struct {
		kind           string
		page, pageSize int
	}
	svc := stubHistSvc{
		listPage: func(ctx context.Context, kind string, page, pageSize int) ([]domain.HistoryRecord, int64, error) {
			got.kind, got.page, got.pageSize = kind, page, pageSize
			return []domain.HistoryRecord{{ID: "h1", Kind: kind}}, 41, nil
		},
	}
	h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, stubUserSvc{}, svc, stubSearchSvc{})
	r := gin.New()
	r.GET("/history/clients", h.ListClientHistory)
	r.GET("/history/vendors", h.ListVendorHistory)

	// Client side
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/history/clients?page=2&page_size=10", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("clients -> %d body=%s", w.Code, w.Body.String())
	}
	if got.kind != domain.HistoryClient || got.page != 2 || got.pageSize != 10 {
		t.Fatalf("service args mismatch: %+v", got)
	}
	var out ListHistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.History) != 1 || out.History[0].ID != "h1" {
		t.Fatalf("unexpected history: %#v", out.History)
	}
	if out.Pagination.Total != 41 || out.Pagination.TotalPages != 5 || !out.Pagination.HasNext {
		t.Fatalf("pagination mismatch: %#v", out.Pagination)
	}

	// Vendor side routes to the other kind
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/vendors", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("vendors -> %d", w.Code)
	}
	if got.kind != domain.HistoryVendor {
		t.Fatalf("vendor kind not passed: %q", got.kind)
	}
}

func TestListHistory_Error(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := stubHistSvc{
		listPage: func(context.Context, string, int, int) ([]domain.HistoryRecord, int64, error) {
			return nil, 0, gorm.ErrInvalidField
		},
	}
	h := New(stubOrderSvc{}, stubFulfilSvc{}, stubRecordSvc{}, stubUserSvc{}, svc, stubSearchSvc{})
	r := gin.New()
	r.GET("/history/clients", h.ListClientHistory)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/history/clients", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("error -> %d", w.Code)
	}
}
