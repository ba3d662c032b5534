package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/prasetya/cardvault/internal/container"
	"github.com/prasetya/cardvault/internal/metrics"
)

// MetricsModule exposes the Prometheus scrape endpoint.
type MetricsModule struct{}

func NewMetricsModule() *MetricsModule { return &MetricsModule{} }

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	reg := container.GetMetricsRegistry()
	if reg == nil {
		return
	}
	rg.GET("/metrics", gin.WrapH(metrics.Handler(reg)))
}
