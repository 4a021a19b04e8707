// Free-text search HTTP handler.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-lens-backend/internal/search"
	"github.com/lensworks/go-lens-backend/internal/utils"
)

// SearchResponse wraps ranked search hits.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// Search godoc
// @ID          search
// @Summary     Search requirements and records
// @Description Ranks open requirements and fulfilment records against a free-text query. "k" bounds the number of hits.
// @Tags        Search
// @Produce     json
//
// @Param       q  query  string  true  "Query text"
// @Param       k  query  int     false "Max hits" minimum(1) default(5)
//
// @Success     200  {object} handlers.SearchResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing query"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /search [get]
func (h *Handlers) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "query parameter 'q' is required")
		return
	}
	k := utils.AtoiDefault(c.Query("k"), 0)

	results, err := h.searchSvc.Search(c.Request.Context(), q, k)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: q, Results: results})
}
