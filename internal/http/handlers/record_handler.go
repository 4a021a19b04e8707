// Fulfilment record HTTP handlers.
//
// This file exposes REST endpoints for reconciling fulfilment records:
//   - GET  /records/completed[/{id}]       (list/fetch, ETag on list)
//   - PUT  /records/completed/{id}         (vendor/price correction)
//   - GET  /records/partial[/{id}]         (list/fetch)
//   - PUT  /records/partial/{id}           (edit; may promote to completed)
//   - POST /records/partial/{id}/allocate  (explicit client allocation)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
	"github.com/lensworks/go-lens-backend/internal/repo"
	"github.com/lensworks/go-lens-backend/internal/services"
)

// EditRecordRequest is the JSON payload for editing a fulfilment record.
// For completed records the quantity must match the stored value; only
// vendor and price may change.
type EditRecordRequest struct {
	Vendor string `json:"vendor" binding:"required" example:"Prime Lens Co"`
	// Price is the corrected total price; accepts JSON number or string.
	Price decimal.Decimal `json:"price" swaggertype:"number" example:"425.00"`
	// Quantity; accepts JSON number or string.
	Quantity decimal.Decimal `json:"quantity" swaggertype:"number" example:"3"`
}

// AllocateRequest is the JSON payload for explicitly allocating a partial
// fulfilment to clients.
type AllocateRequest struct {
	Assignments []services.Allocation `json:"assignments" binding:"required"`
}

// ListCompletedResponse wraps a page of completed records.
type ListCompletedResponse struct {
	Records    []domain.CompletedRecord `json:"records"`
	Pagination Pagination               `json:"pagination"`
}

// ListPartialResponse wraps a page of partial records.
type ListPartialResponse struct {
	Records    []domain.PartialRecord `json:"records"`
	Pagination Pagination             `json:"pagination"`
}

// recordsETag writes a weak ETag from record-table stats and reports whether
// the client's copy is current.
func (h *Handlers) recordsETag(c *gin.Context) bool {
	var db *gorm.DB
	if svc, okType := h.recordSvc.(*services.RecordService); okType {
		db = svc.DB
	}
	if db == nil {
		return false
	}
	count, maxTS, err := repo.RecordsStats(c.Request.Context(), db)
	if err != nil {
		return false
	}
	var ts int64
	if maxTS != nil {
		ts = maxTS.Unix()
	}
	etag := fmt.Sprintf(`W/"records:%d:%d"`, count, ts)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}

// ListCompletedRecords godoc
// @ID          listCompletedRecords
// @Summary     List completed records (paginated)
// @Tags        Records
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListCompletedResponse
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /records/completed [get]
func (h *Handlers) ListCompletedRecords(c *gin.Context) {
	if h.recordsETag(c) {
		return
	}
	page, pageSize := clampPagination(c)
	items, total, err := h.recordSvc.ListCompleted(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListCompletedResponse{
		Records:    items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// GetCompletedRecord godoc
// @ID          getCompletedRecord
// @Summary     Fetch one completed record
// @Tags        Records
// @Produce     json
//
// @Param       id  path  string  true  "Record ID"
//
// @Success     200  {object} domain.CompletedRecord
// @Failure     404  {object} handlers.ErrorResponse "Record not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /records/completed/{id} [get]
func (h *Handlers) GetCompletedRecord(c *gin.Context) {
	rec, err := h.recordSvc.GetCompleted(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, rec)
}

// EditCompletedRecord godoc
// @ID          editCompletedRecord
// @Summary     Correct a completed record
// @Description Updates vendor and price; every client allocation is re-derived from the new unit price. The fulfilled quantity is immutable.
// @Tags        Records
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       id         path    string  true  "Record ID"
// @Param       body       body    handlers.EditRecordRequest  true  "Correction payload"
//
// @Success     200  {object} domain.CompletedRecord
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Record not found"
// @Failure     422  {object} handlers.ErrorResponse "Quantity changed"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /records/completed/{id} [put]
func (h *Handlers) EditCompletedRecord(c *gin.Context) {
	var req EditRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	rec, err := h.recordSvc.EditCompleted(c.Request.Context(), c.Param("id"), req.Vendor, req.Price, req.Quantity, userID(c))
	if err != nil {
		failFromService(c, err, ErrCodeEditFailed)
		return
	}
	ok(c, http.StatusOK, rec)
}

// ListPartialRecords godoc
// @ID          listPartialRecords
// @Summary     List partial records (paginated)
// @Tags        Records
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
// @Param       page           query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListPartialResponse
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /records/partial [get]
func (h *Handlers) ListPartialRecords(c *gin.Context) {
	if h.recordsETag(c) {
		return
	}
	page, pageSize := clampPagination(c)
	items, total, err := h.recordSvc.ListPartial(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPartialResponse{
		Records:    items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// GetPartialRecord godoc
// @ID          getPartialRecord
// @Summary     Fetch one partial record
// @Tags        Records
// @Produce     json
//
// @Param       id  path  string  true  "Record ID"
//
// @Success     200  {object} domain.PartialRecord
// @Failure     404  {object} handlers.ErrorResponse "Record not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /records/partial/{id} [get]
func (h *Handlers) GetPartialRecord(c *gin.Context) {
	rec, err := h.recordSvc.GetPartial(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, rec)
}

// EditPartialRecord godoc
// @ID          editPartialRecord
// @Summary     Edit a partial record
// @Description Corrects vendor, price, or quantity. The quantity delta reconciles against the requirement's partially-allotted counter; an edit that closes the requirement promotes the record to completed.
// @Tags        Records
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       id         path    string  true  "Record ID"
// @Param       body       body    handlers.EditRecordRequest  true  "Edit payload"
//
// @Success     200  {object} services.FulfilmentResult
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Record or requirement not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     422  {object} handlers.ErrorResponse "Quantity exceeds requirement"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /records/partial/{id} [put]
func (h *Handlers) EditPartialRecord(c *gin.Context) {
	var req EditRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	res, err := h.recordSvc.EditPartial(c.Request.Context(), c.Param("id"), req.Vendor, req.Price, req.Quantity, userID(c))
	if err != nil {
		failFromService(c, err, ErrCodeEditFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// AllocatePartialRecord godoc
// @ID          allocatePartialRecord
// @Summary     Allocate a partial record to clients
// @Description Assigns the partial fulfilment explicitly to named clients. Assignments must sum to the record's quantity; assigned units are deducted from the requirement's client lines and the partial record is resolved into a completed one.
// @Tags        Records
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       id               path    string  true  "Record ID"
// @Param       body             body    handlers.AllocateRequest  true  "Assignments"
//
// @Success     200  {object} domain.CompletedRecord
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Record or requirement not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     422  {object} handlers.ErrorResponse "Assignments do not reconcile"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /records/partial/{id}/allocate [post]
func (h *Handlers) AllocatePartialRecord(c *gin.Context) {
	var req AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Assignments) == 0 {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "assignments required")
		return
	}
	rec, err := h.recordSvc.AllocatePartial(c.Request.Context(), c.Param("id"), req.Assignments, userID(c))
	if err != nil {
		failFromService(c, err, ErrCodeAllocateFailed)
		return
	}
	ok(c, http.StatusOK, rec)
}
