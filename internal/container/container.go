package container

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/prasetya/cardvault/config"
	"github.com/prasetya/cardvault/internal/infrastructure/stripepay"
	"github.com/prasetya/cardvault/internal/metrics"
	"github.com/prasetya/cardvault/pkg/helpers"
)

// app-level container to share constructed components across packages.
// Router modules auto-wire themselves from these singletons.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	gateway     stripepay.Gateway

	jwtManager *helpers.JWTManager
	rabbitPub  *helpers.RabbitPublisher

	collector *metrics.Collector
	registry  *prometheus.Registry
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config { return cfg }
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger { return logger }
func SetPGPool(p *pgxpool.Pool) { pgPool = p }
func GetPGPool() *pgxpool.Pool { return pgPool }
func SetRedis(r *redis.Client) { redisClient = r }
func GetRedis() *redis.Client { return redisClient }
func SetGateway(g stripepay.Gateway) { gateway = g }
func GetGateway() stripepay.Gateway { return gateway }
func SetJWT(m *helpers.JWTManager) { jwtManager = m }
func GetJWT() *helpers.JWTManager {
	if jwtManager != nil {
		return jwtManager
	}
	return helpers.DefaultJWT()
}

func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher { return rabbitPub }

func SetMetrics(reg *prometheus.Registry, c *metrics.Collector) {
	registry = reg
	collector = c
}
func GetMetrics() *metrics.Collector { return collector }
func GetMetricsRegistry() *prometheus.Registry { return registry }
