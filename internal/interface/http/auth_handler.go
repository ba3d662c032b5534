package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/prasetya/cardvault/internal/application"
	"github.com/prasetya/cardvault/internal/interface/middleware"
	"github.com/prasetya/cardvault/pkg/helpers"
	"github.com/prasetya/cardvault/pkg/response"
	"github.com/prasetya/cardvault/pkg/validation"
)

type AuthHandler struct {
	Svc     *app.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *app.AuthService, logger *logrus.Logger, cookieDomain string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain, cookieSecure)}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,pwd"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register POST /api/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrDuplicateEmail) {
			response.Error[any](c, http.StatusBadRequest, "email already registered", nil)
			return
		}
		h.Logger.WithError(err).Error("register failed")
		response.Error[any](c, http.StatusInternalServerError, "registration failed", nil)
		return
	}
	response.OK(c, http.StatusCreated, gin.H{"id": u.ID}, "user registered")
}

// Login POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	res, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// unknown email and wrong password share one response shape
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	h.Cookies.SetAccessToken(c, res.Token, res.TokenExpiry)
	response.OK(c, http.StatusOK, gin.H{
		"token":   res.Token,
		"user_id": res.UserID,
	}, "login successful")
}

// Logout POST /api/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.OK(c, http.StatusOK, gin.H{"logged_out": true}, "logged out")
}

// Profile GET /api/profile returns the caller's record minus the password hash.
func (h *AuthHandler) Profile(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	u, err := h.Svc.Profile(c.Request.Context(), uid)
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"id":                 u.ID,
		"name":               u.Name,
		"email":              u.Email,
		"stripe_customer_id": u.StripeCustomerID,
		"billing_info":       u.Billing,
		"last4":              u.CardLast4,
		"created_at":         u.CreatedAt,
		"updated_at":         u.UpdatedAt,
	}, "profile")
}
