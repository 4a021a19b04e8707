// Requirement HTTP handlers.
//
// This file exposes REST endpoints for grouped requirements:
//   - GET    /requirements               (list open, ETag support)
//   - GET    /requirements/{key}         (fetch one)
//   - PUT    /requirements/{key}/spec    (edit attributes; re-keys)
//   - POST   /requirements/{key}/fulfil  (vendor purchase)
//   - PUT    /requirements/{key}/comment (upsert comment)
//   - DELETE /requirements/{key}         (remove)
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lensworks/go-lens-backend/internal/domain"
	"github.com/lensworks/go-lens-backend/internal/lens"
	"github.com/lensworks/go-lens-backend/internal/repo"
	"github.com/lensworks/go-lens-backend/internal/services"
)

// EditSpecRequest is the JSON payload for editing a requirement's lens
// attributes.
type EditSpecRequest struct {
	Spec lens.Spec `json:"spec" binding:"required"`
}

// FulfilRequest is the JSON payload for fulfilling a requirement.
type FulfilRequest struct {
	// Vendor that supplied the lenses (1–128 chars).
	Vendor string `json:"vendor" binding:"required" example:"Prime Lens Co"`
	// Price is the total purchase price; accepts JSON number or string.
	Price decimal.Decimal `json:"price" swaggertype:"number" example:"450.00"`
	// Quantity purchased; accepts JSON number or string.
	Quantity decimal.Decimal `json:"quantity" swaggertype:"number" example:"3"`
}

// CommentRequest is the JSON payload for commenting on a requirement.
type CommentRequest struct {
	Text string `json:"text" binding:"required" example:"Vendor promised delivery Friday"`
}

// ListRequirementsResponse wraps the open requirements.
type ListRequirementsResponse struct {
	Requirements []domain.GroupedRequirement `json:"requirements"`
}

// ListRequirements godoc
// @ID          listRequirements
// @Summary     List open requirements
// @Description Returns every grouped requirement with open quantity remaining. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Requirements
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {object} handlers.ListRequirementsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requirements [get]
func (h *Handlers) ListRequirements(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okType := h.orderSvc.(*services.OrderService); okType {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.RequirementsStats(ctx, db)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"requirements:%d:%d"`, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, err := h.orderSvc.List(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListRequirementsResponse{Requirements: items})
}

// GetRequirement godoc
// @ID          getRequirement
// @Summary     Fetch one requirement
// @Tags        Requirements
// @Produce     json
//
// @Param       key  path  string  true  "Grouping key"
//
// @Success     200  {object} domain.GroupedRequirement
// @Failure     404  {object} handlers.ErrorResponse "Requirement not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requirements/{key} [get]
func (h *Handlers) GetRequirement(c *gin.Context) {
	g, err := h.orderSvc.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		failFromService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, g)
}

// EditRequirementSpec godoc
// @ID          editRequirementSpec
// @Summary     Edit a requirement's lens attributes
// @Description Changes the spec of a requirement. The grouping key derives from the attributes, so the requirement is re-keyed; orders, the partially-allotted counter, and the comment carry over.
// @Tags        Requirements
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       key        path    string  true  "Current grouping key"
// @Param       body       body    handlers.EditSpecRequest  true  "New attributes"
//
// @Success     200  {object} domain.GroupedRequirement
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Requirement not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requirements/{key}/spec [put]
func (h *Handlers) EditRequirementSpec(c *gin.Context) {
	var req EditSpecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	g, err := h.orderSvc.EditSpec(c.Request.Context(), c.Param("key"), req.Spec, userID(c))
	if err != nil {
		failFromService(c, err, ErrCodeEditFailed)
		return
	}
	ok(c, http.StatusOK, g)
}

// FulfilRequirement godoc
// @ID          fulfilRequirement
// @Summary     Fulfil a requirement
// @Description Records a vendor purchase. A purchase leaving the requirement with strictly less than 0.001 open completes it: a completed record with proportional client allocations is written and the requirement removed. Anything less is held as a partial record.
// @Tags        Requirements
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"
// @Param       Idempotency-Key  header  string  false "Retry-safe request key"
// @Param       key              path    string  true  "Grouping key"
// @Param       body             body    handlers.FulfilRequest  true  "Purchase payload"
//
// @Success     200  {object} services.FulfilmentResult
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Requirement not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     422  {object} handlers.ErrorResponse "Quantity exceeds remaining"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requirements/{key}/fulfil [post]
func (h *Handlers) FulfilRequirement(c *gin.Context) {
	var req FulfilRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	uid := userID(c)
	res, err := h.fulfilSvc.Fulfil(c.Request.Context(), c.Param("key"), req.Vendor, req.Price, req.Quantity, uid, uid)
	if err != nil {
		failFromService(c, err, ErrCodeFulfilFailed)
		return
	}
	ok(c, http.StatusOK, res)
}

// CommentRequirement godoc
// @ID          commentRequirement
// @Summary     Comment on a requirement
// @Description Sets or replaces the requirement's single comment and notifies admins.
// @Tags        Requirements
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       key        path    string  true  "Grouping key"
// @Param       body       body    handlers.CommentRequest  true  "Comment payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Requirement not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requirements/{key}/comment [put]
func (h *Handlers) CommentRequirement(c *gin.Context) {
	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "comment text required")
		return
	}

	if err := h.orderSvc.Comment(c.Request.Context(), c.Param("key"), req.Text, userID(c)); err != nil {
		failFromService(c, err, ErrCodeEditFailed)
		return
	}
	noContent(c)
}

// DeleteRequirement godoc
// @ID          deleteRequirement
// @Summary     Delete a requirement
// @Description Removes a requirement and its client orders and notifies admins.
// @Tags        Requirements
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"
// @Param       key        path    string  true  "Grouping key"
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Requirement not found"
// @Failure     409  {object} handlers.ErrorResponse "Concurrent modification"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /requirements/{key} [delete]
func (h *Handlers) DeleteRequirement(c *gin.Context) {
	if err := h.orderSvc.Delete(c.Request.Context(), c.Param("key"), userID(c)); err != nil {
		failFromService(c, err, ErrCodeEditFailed)
		return
	}
	noContent(c)
}
