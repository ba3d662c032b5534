package router

import (
	app "github.com/prasetya/cardvault/internal/application"
	"github.com/prasetya/cardvault/internal/container"
	pginfra "github.com/prasetya/cardvault/internal/infrastructure/postgres"
	handlers "github.com/prasetya/cardvault/internal/interface/http"
	"github.com/prasetya/cardvault/internal/router/modules"
)

// InitModules builds the application services from container singletons and
// registers every feature module with the router registry. Called once at
// startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	repo := pginfra.NewUserRepository(container.GetPGPool())

	// A nil *RabbitPublisher must stay a nil interface, or the publish
	// guard in the billing service would pass and dereference it.
	var pub app.ReceiptPublisher
	if rp := container.GetRabbitPub(); rp != nil {
		pub = rp
	}

	authSvc := app.NewAuthService(repo, container.GetJWT(), container.GetRedis(), container.GetLogger())
	billingSvc := app.NewBillingService(
		repo,
		container.GetGateway(),
		pub,
		container.GetMetrics(),
		container.GetLogger(),
		cfg.StripeDefaultCurrency,
		cfg.MailSendEnabled,
	)

	authHandler := handlers.NewAuthHandler(authSvc, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
	billingHandler := handlers.NewBillingHandler(billingSvc, container.GetLogger())

	r.Add(modules.NewAuthModule(authHandler, container.GetJWT()))
	r.Add(modules.NewBillingModule(billingHandler, container.GetJWT()))
	r.Add(modules.NewMetricsModule())
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
