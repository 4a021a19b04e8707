// Audit history HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

// ListHistoryResponse wraps a page of audit entries.
type ListHistoryResponse struct {
	History    []domain.HistoryRecord `json:"history"`
	Pagination Pagination             `json:"pagination"`
}

func (h *Handlers) listHistory(c *gin.Context, kind string) {
	page, pageSize := clampPagination(c)
	items, total, err := h.historySvc.ListPage(c.Request.Context(), kind, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListHistoryResponse{
		History:    items,
		Pagination: paginationFor(page, pageSize, total),
	})
}

// ListClientHistory godoc
// @ID          listClientHistory
// @Summary     List client-side order history
// @Tags        History
// @Produce     json
//
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListHistoryResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /history/clients [get]
func (h *Handlers) ListClientHistory(c *gin.Context) {
	h.listHistory(c, domain.HistoryClient)
}

// ListVendorHistory godoc
// @ID          listVendorHistory
// @Summary     List vendor-side purchase history
// @Tags        History
// @Produce     json
//
// @Param       page       query  int  false "Page number"    minimum(1) default(1)
// @Param       page_size  query  int  false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListHistoryResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /history/vendors [get]
func (h *Handlers) ListVendorHistory(c *gin.Context) {
	h.listHistory(c, domain.HistoryVendor)
}
