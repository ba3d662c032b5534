package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prasetya/cardvault/internal/container"
	handlers "github.com/prasetya/cardvault/internal/interface/http"
	"github.com/prasetya/cardvault/internal/interface/middleware"
	"github.com/prasetya/cardvault/pkg/helpers"
)

// AuthModule wires registration, login and profile routes.
// Public: POST /api/register, POST /api/login
// Protected: POST /api/logout, GET /api/profile
type AuthModule struct {
	Handler *handlers.AuthHandler
	JWT     *helpers.JWTManager
}

func NewAuthModule(h *handlers.AuthHandler, jwt *helpers.JWTManager) *AuthModule {
	return &AuthModule{Handler: h, JWT: jwt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	// Public with IP-based rate limits; private/loopback IPs bypass.
	registerLimiter := middleware.RateLimit(container.GetRedis(), 5, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())
	loginLimiter := middleware.RateLimit(container.GetRedis(), 10, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/login", loginLimiter, m.Handler.Login)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.GET("/profile", m.Handler.Profile)
	}
}
