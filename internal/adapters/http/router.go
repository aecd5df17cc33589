// Package http - Router configuration for REST API.
//
// Router собирает handlers в единую точку входа. Весь разбор запроса,
// CORS, request id, логирование и метрики делает adapter, поэтому на
// уровне gin остаются только recovery и трассировка.
//
// Pattern: Composition Root
// - Все зависимости собираются здесь
// - Handlers получают только нужные им use cases
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Haleralex/edgeapi/internal/adapters/http/adapter"
	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
	"github.com/Haleralex/edgeapi/internal/adapters/http/handlers"
	"github.com/Haleralex/edgeapi/internal/adapters/http/transport/ginadapter"
)

// ============================================
// Router Configuration
// ============================================

// RouterConfig - конфигурация роутера.
type RouterConfig struct {
	// Logger для ошибок роутера
	Logger *slog.Logger
	// Adapter - конвейер, через который проходят все запросы API
	Adapter *adapter.Adapter
	// Health - health/ready handler
	Health *handlers.HealthHandler
	// ServiceName для spans otelgin
	ServiceName string
	// Environment (development, staging, production)
	Environment string
}

// DefaultRouterConfig - конфигурация по умолчанию для development.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:      slog.Default(),
		Adapter:     adapter.New(adapter.DefaultConfig(), slog.Default()),
		Health:      handlers.NewHealthHandler(nil, "dev", "unknown"),
		ServiceName: "edgeapi",
		Environment: "development",
	}
}

// ============================================
// Resource Providers
// ============================================

// ResourceRoutes - маршруты одного ресурса. Реализуется
// handlers.ResourceHandler.
type ResourceRoutes interface {
	CollectionRoutes() common.Routes
	ItemRoutes() common.Routes
}

type mountedResource struct {
	name   string
	routes ResourceRoutes
}

// ============================================
// Router Builder
// ============================================

// RouterBuilder - builder для создания роутера.
//
// Pattern: Builder
// - Позволяет пошагово настроить роутер
// - Проще тестировать
type RouterBuilder struct {
	config    *RouterConfig
	resources []mountedResource
}

// NewRouterBuilder создаёт новый builder.
func NewRouterBuilder(config *RouterConfig) *RouterBuilder {
	if config == nil {
		config = DefaultRouterConfig()
	}
	return &RouterBuilder{
		config: config,
	}
}

// WithResource монтирует ресурс на /v1/<name> и /v1/<name>/:id.
func (b *RouterBuilder) WithResource(name string, routes ResourceRoutes) *RouterBuilder {
	b.resources = append(b.resources, mountedResource{name: name, routes: routes})
	return b
}

// Build создаёт сконфигурированный Gin Engine.
func (b *RouterBuilder) Build() *gin.Engine {
	if b.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// ============================================
	// Global Middleware
	// ============================================

	// adapter сам ловит panic в handlers, gin.Recovery страхует всё остальное
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(b.config.ServiceName))

	// ============================================
	// Metrics / Health
	// ============================================

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a := b.config.Adapter
	if b.config.Health != nil {
		health, ready := b.config.Health.Routes()
		router.Any("/health", ginadapter.Handler(a, "health", health))
		router.Any("/ready", ginadapter.Handler(a, "ready", ready))
	}

	// ============================================
	// API v1 Routes
	// ============================================

	v1 := router.Group("/v1")
	for _, res := range b.resources {
		v1.Any("/"+res.name, ginadapter.Handler(a, res.name, res.routes.CollectionRoutes()))
		v1.Any("/"+res.name+"/:"+handlers.IDParam, ginadapter.Handler(a, res.name+".item", res.routes.ItemRoutes()))
	}

	// ============================================
	// 404 Handler
	// ============================================

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, common.ErrorEnvelope{Error: "Endpoint not found"})
	})

	return router
}

// ============================================
// Quick Setup Functions
// ============================================

// NewRouter создаёт роутер с базовой конфигурацией (для простых случаев).
func NewRouter(config *RouterConfig) *gin.Engine {
	return NewRouterBuilder(config).Build()
}
