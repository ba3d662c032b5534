package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	app "github.com/prasetya/cardvault/internal/application"
	"github.com/prasetya/cardvault/internal/domain/entity"
	"github.com/prasetya/cardvault/internal/interface/middleware"
	"github.com/prasetya/cardvault/pkg/response"
	"github.com/prasetya/cardvault/pkg/validation"
)

type BillingHandler struct {
	Svc    *app.BillingService
	Logger *logrus.Logger
}

func NewBillingHandler(svc *app.BillingService, logger *logrus.Logger) *BillingHandler {
	return &BillingHandler{Svc: svc, Logger: logger}
}

type billingInfoRequest struct {
	BillingInfo struct {
		Address    string `json:"address" binding:"required"`
		City       string `json:"city" binding:"required"`
		State      string `json:"state" binding:"required"`
		PostalCode string `json:"postal_code" binding:"required"`
	} `json:"billing_info" binding:"required"`
}

func (r *billingInfoRequest) toEntity() entity.BillingInfo {
	return entity.BillingInfo{
		Address:    r.BillingInfo.Address,
		City:       r.BillingInfo.City,
		State:      r.BillingInfo.State,
		PostalCode: r.BillingInfo.PostalCode,
	}
}

type paymentIntentRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Currency string `json:"currency"`
}

type paymentMethodRequest struct {
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

type chargeRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Currency string `json:"currency"`
}

// fail maps service errors onto the error taxonomy of the API. Unclassified
// provider/store failures pass their message through with a 502.
func (h *BillingHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrUserNotFound):
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	case errors.Is(err, app.ErrCustomerNotFound):
		response.Error[any](c, http.StatusBadRequest, "no billing customer on file", nil)
	case errors.Is(err, app.ErrInvalidPaymentMethod):
		response.Error[any](c, http.StatusBadRequest, "invalid payment method", nil)
	case errors.Is(err, app.ErrNoDefaultPaymentMethod):
		response.Error[any](c, http.StatusBadRequest, "customer has no default payment method", nil)
	default:
		h.Logger.WithError(err).Error("billing operation failed")
		response.Error[any](c, http.StatusBadGateway, "payment provider error", err.Error())
	}
}

// CreateCustomer POST /api/create-customer: ensure a remote customer exists
// and overwrite the stored billing info.
func (h *BillingHandler) CreateCustomer(c *gin.Context) {
	var req billingInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	customerID, err := h.Svc.EnsureCustomer(c.Request.Context(), uid, req.toEntity())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"stripe_customer_id": customerID}, "customer ready")
}

// UpdateBillingInfo POST /api/update-billing-info
func (h *BillingHandler) UpdateBillingInfo(c *gin.Context) {
	var req billingInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	if err := h.Svc.UpdateBillingInfo(c.Request.Context(), uid, req.toEntity()); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"updated": true}, "billing information updated")
}

// CreateSetupIntent POST /api/create-setup-intent
func (h *BillingHandler) CreateSetupIntent(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	secret, err := h.Svc.CreateSetupIntent(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"client_secret": secret}, "setup intent created")
}

// CreatePaymentIntent POST /api/create-payment-intent
func (h *BillingHandler) CreatePaymentIntent(c *gin.Context) {
	var req paymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	secret, err := h.Svc.CreatePaymentIntent(c.Request.Context(), uid, req.Amount, req.Currency)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"client_secret": secret}, "payment intent created")
}

// SavePaymentMethod POST /api/save-payment-method and
// POST /api/retrieve-payment-method: attach a confirmed payment method,
// make it the default and record its last four digits.
func (h *BillingHandler) SavePaymentMethod(c *gin.Context) {
	var req paymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	last4, err := h.Svc.SavePaymentMethod(c.Request.Context(), uid, req.PaymentMethodID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"last4": last4}, "card saved as default")
}

// Charge POST /api/charge: one off-session charge against the default card.
func (h *BillingHandler) Charge(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	uid := c.GetString(middleware.CtxUserIDKey)
	res, err := h.Svc.Charge(c.Request.Context(), uid, req.Amount, req.Currency)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"payment_intent_id": res.IntentID,
		"status":            res.Status,
		"amount":            res.Amount,
		"currency":          res.Currency,
	}, "charge submitted")
}

// CustomerInfo GET /api/get-customer-info: whether a default payment
// method is set, to gate the charge flow client-side.
func (h *BillingHandler) CustomerInfo(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	pm, err := h.Svc.DefaultPaymentMethod(c.Request.Context(), uid)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{
		"default_payment_method": pm,
		"has_default":            pm != "",
	}, "customer info")
}
