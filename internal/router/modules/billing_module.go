package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/prasetya/cardvault/internal/interface/http"
	"github.com/prasetya/cardvault/internal/interface/middleware"
	"github.com/prasetya/cardvault/pkg/helpers"
)

// BillingModule wires the card-on-file flow. Every route sits behind the
// token guard and resolves the customer from the authenticated user, never
// from the request body. Payment routes are deliberately not rate-limited.
type BillingModule struct {
	Handler *handlers.BillingHandler
	JWT     *helpers.JWTManager
}

func NewBillingModule(h *handlers.BillingHandler, jwt *helpers.JWTManager) *BillingModule {
	return &BillingModule{Handler: h, JWT: jwt}
}

func (m *BillingModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	{
		auth.POST("/create-customer", m.Handler.CreateCustomer)
		auth.POST("/update-billing-info", m.Handler.UpdateBillingInfo)
		auth.POST("/create-setup-intent", m.Handler.CreateSetupIntent)
		auth.POST("/create-payment-intent", m.Handler.CreatePaymentIntent)
		auth.POST("/save-payment-method", m.Handler.SavePaymentMethod)
		// kept as an alias of save-payment-method for wizard compatibility
		auth.POST("/retrieve-payment-method", m.Handler.SavePaymentMethod)
		auth.POST("/charge", m.Handler.Charge)
		auth.GET("/get-customer-info", m.Handler.CustomerInfo)
	}
}
