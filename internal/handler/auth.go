package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/soc-console/internal/mockapi"
	"github.com/kube-rca/soc-console/internal/model"
)

type AuthHandler struct {
	svc *mockapi.AuthService
}

func NewAuthHandler(svc *mockapi.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login godoc
// @Summary Login
// @Description Wrong passwords and unapproved accounts both yield 400.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Username and password"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	resp, err := h.svc.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, mockapi.ErrUnauthorized) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: mockapi.LoginFailedMessage})
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout godoc
// @Summary Logout
// @Description Revokes the access token used for the request.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MessageResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if user := GetAuthUser(c); user != nil {
		h.svc.Logout(user)
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: "Logged out successfully"})
}

// RequestAccess godoc
// @Summary Request an account
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body model.AccessRequest true "Email and requested role"
// @Success 201 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /access-requests [post]
func (h *AuthHandler) RequestAccess(c *gin.Context) {
	var req model.AccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	if _, err := h.svc.RequestAccess(req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.MessageResponse{
		Message: "Your access request has been submitted. Await admin approval.",
	})
}

// Register godoc
// @Summary Complete a registration
// @Tags accounts
// @Accept json
// @Produce json
// @Param token path string true "Registration token"
// @Param request body model.RegistrationRequest true "Account details"
// @Success 201 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /registrations/{token} [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return
	}

	if err := h.svc.Register(c.Param("token"), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model.MessageResponse{Message: "Account created successfully. Please log in."})
}

// writeError maps store and auth errors onto status codes. Messages of
// mockapi.Error values are passed through; anything else is a 500.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, mockapi.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, mockapi.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, mockapi.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, mockapi.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, mockapi.ErrConflict):
		status = http.StatusConflict
	}

	msg := "server error"
	var apiErr *mockapi.Error
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	} else if status != http.StatusInternalServerError {
		msg = err.Error()
	}
	c.JSON(status, model.ErrorResponse{Error: msg})
}
