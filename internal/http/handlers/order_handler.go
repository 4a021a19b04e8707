// Order and requirement HTTP handlers: wiring, service contracts, and the
// order-submission endpoint.
//
//   - POST /orders  (submit a client order; merges into a grouped requirement)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/lensworks/go-lens-backend/internal/domain"
	"github.com/lensworks/go-lens-backend/internal/lens"
	"github.com/lensworks/go-lens-backend/internal/search"
	"github.com/lensworks/go-lens-backend/internal/services"
	"github.com/lensworks/go-lens-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// OrderService defines order and requirement lifecycle operations consumed
// by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type OrderService interface {
	// Submit merges one client order into the grouped requirement for its spec.
	Submit(ctx context.Context, spec lens.Spec, clientName string, qty decimal.Decimal, updatedBy string) (*domain.GroupedRequirement, error)
	// EditSpec changes the lens attributes of a requirement, re-keying it.
	EditSpec(ctx context.Context, oldKey string, newSpec lens.Spec, updatedBy string) (*domain.GroupedRequirement, error)
	// Comment sets or replaces the requirement's comment.
	Comment(ctx context.Context, key, text, updatedBy string) error
	// Delete removes a requirement.
	Delete(ctx context.Context, key, initiator string) error
	// List returns the open requirements.
	List(ctx context.Context) ([]domain.GroupedRequirement, error)
	// Get returns one requirement by grouping key.
	Get(ctx context.Context, key string) (*domain.GroupedRequirement, error)
}

// FulfilService applies vendor purchases to requirements.
type FulfilService interface {
	Fulfil(ctx context.Context, key, vendor string, totalPrice, qty decimal.Decimal, updatedBy, initiator string) (*services.FulfilmentResult, error)
}

// RecordService reconciles completed and partial fulfilment records.
type RecordService interface {
	GetCompleted(ctx context.Context, id string) (*domain.CompletedRecord, error)
	GetPartial(ctx context.Context, id string) (*domain.PartialRecord, error)
	ListCompleted(ctx context.Context, page, pageSize int) ([]domain.CompletedRecord, int64, error)
	ListPartial(ctx context.Context, page, pageSize int) ([]domain.PartialRecord, int64, error)
	EditCompleted(ctx context.Context, id, vendor string, price, qty decimal.Decimal, updatedBy string) (*domain.CompletedRecord, error)
	EditPartial(ctx context.Context, id, vendor string, price, newQty decimal.Decimal, updatedBy string) (*services.FulfilmentResult, error)
	AllocatePartial(ctx context.Context, id string, assignments []services.Allocation, updatedBy string) (*domain.CompletedRecord, error)
}

// UserService manages staff accounts.
type UserService interface {
	Create(ctx context.Context, id, name, role string) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	SetToken(ctx context.Context, id, token string) error
}

// HistoryService exposes the audit log.
type HistoryService interface {
	ListPage(ctx context.Context, kind string, page, pageSize int) ([]domain.HistoryRecord, int64, error)
}

// SearchService answers free-text queries over requirements and records.
type SearchService interface {
	Search(ctx context.Context, q string, k int) ([]search.Result, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for orders, requirements, records, users,
// history, and search. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	orderSvc   OrderService
	fulfilSvc  FulfilService
	recordSvc  RecordService
	userSvc    UserService
	historySvc HistoryService
	searchSvc  SearchService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(orderSvc OrderService, fulfilSvc FulfilService, recordSvc RecordService, userSvc UserService, historySvc HistoryService, searchSvc SearchService) *Handlers {
	return &Handlers{
		orderSvc:   orderSvc,
		fulfilSvc:  fulfilSvc,
		recordSvc:  recordSvc,
		userSvc:    userSvc,
		historySvc: historySvc,
		searchSvc:  searchSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// SubmitOrderRequest is the JSON payload for submitting a client order.
type SubmitOrderRequest struct {
	// Spec holds the lens attributes; validated against the catalog.
	Spec lens.Spec `json:"spec" binding:"required"`
	// ClientName identifies the ordering client (1–128 chars).
	ClientName string `json:"clientName" binding:"required" example:"Sharma Opticals"`
	// Quantity is the ordered lens count; accepts JSON number or string.
	Quantity decimal.Decimal `json:"quantity" swaggertype:"number" example:"2"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func paginationFor(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// failFromService maps service-layer sentinel errors onto HTTP responses,
// falling back to a 500 with the given domain code.
func failFromService(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrRequirementNotFound),
		errors.Is(err, services.ErrRecordNotFound),
		errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, services.ErrConflict):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrDuplicateUser):
		fail(c, http.StatusConflict, ErrCodeConflict, err.Error())
	case errors.Is(err, services.ErrInvalidSpec),
		errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrMissingVendor),
		errors.Is(err, services.ErrMissingClient),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidUser):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrExceedsRemaining),
		errors.Is(err, services.ErrExceedsRequirement),
		errors.Is(err, services.ErrQuantityImmutable),
		errors.Is(err, services.ErrAllocationMismatch),
		errors.Is(err, services.ErrAllocationOverdraw):
		fail(c, http.StatusUnprocessableEntity, fallbackCode, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

//
// Handlers
//

// SubmitOrder godoc
// @ID          submitOrder
// @Summary     Submit a client lens order
// @Description Validates the lens spec and merges the order into the grouped requirement for its grouping key. A client ordering the same spec again accumulates quantity.
// @Tags        Orders
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       body             body    handlers.SubmitOrderRequest  true  "Order payload"
//
// @Success     201  {object}  domain.GroupedRequirement
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Concurrent modification"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders [post]
func (h *Handlers) SubmitOrder(c *gin.Context) {
	var req SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	g, err := h.orderSvc.Submit(c.Request.Context(), req.Spec, req.ClientName, req.Quantity, userID(c))
	if err != nil {
		failFromService(c, err, ErrCodeSubmitFailed)
		return
	}
	ok(c, http.StatusCreated, g)
}
