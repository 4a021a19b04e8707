// Staff account HTTP handlers.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lensworks/go-lens-backend/internal/domain"
)

// CreateUserRequest is the JSON payload for registering a staff account.
type CreateUserRequest struct {
	ID   string `json:"id" binding:"required" example:"user123"`
	Name string `json:"name" binding:"required" example:"Asha Verma"`
	// Role must be Admin or Employee.
	Role string `json:"role" binding:"required" example:"Employee"`
}

// SetTokenRequest is the JSON payload for updating a device token.
type SetTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ListUsersResponse wraps all staff accounts.
type ListUsersResponse struct {
	Users []domain.User `json:"users"`
}

// CreateUser godoc
// @ID          createUser
// @Summary     Register a staff account
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateUserRequest  true  "Account payload"
//
// @Success     201  {object} domain.User
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "ID already registered"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users [post]
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	u, err := h.userSvc.Create(c.Request.Context(), req.ID, req.Name, req.Role)
	if err != nil {
		failFromService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusCreated, u)
}

// GetUser godoc
// @ID          getUser
// @Summary     Fetch one staff account
// @Tags        Users
// @Produce     json
//
// @Param       id  path  string  true  "User ID"
//
// @Success     200  {object} domain.User
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id} [get]
func (h *Handlers) GetUser(c *gin.Context) {
	u, err := h.userSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromService(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, u)
}

// ListUsers godoc
// @ID          listUsers
// @Summary     List staff accounts
// @Tags        Users
// @Produce     json
//
// @Success     200  {object} handlers.ListUsersResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users [get]
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.userSvc.List(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListUsersResponse{Users: users})
}

// SetUserToken godoc
// @ID          setUserToken
// @Summary     Update a user's push token
// @Description Stores the device registration token used for admin notifications.
// @Tags        Users
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "User ID"
// @Param       body  body  handlers.SetTokenRequest  true  "Token payload"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "User not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /users/{id}/token [put]
func (h *Handlers) SetUserToken(c *gin.Context) {
	var req SetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Token) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token required")
		return
	}
	if err := h.userSvc.SetToken(c.Request.Context(), c.Param("id"), req.Token); err != nil {
		failFromService(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}
