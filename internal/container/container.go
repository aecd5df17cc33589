// Package container - Dependency Injection container for the application.
//
// Container управляет жизненным циклом всех зависимостей:
// - Создание (Initialize, HTTP сервер собирается лениво)
// - Доступ (getters)
// - Закрытие (cleanup)
//
// Один и тот же контейнер обслуживает локальный сервер (cmd/api) и
// Lambda функции (cmd/lambda): разница только в транспорте.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/edgeapi/internal/adapters/http"
	"github.com/Haleralex/edgeapi/internal/adapters/http/adapter"
	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
	"github.com/Haleralex/edgeapi/internal/adapters/http/handlers"
	"github.com/Haleralex/edgeapi/internal/adapters/http/transport/lambdaadapter"
	"github.com/Haleralex/edgeapi/internal/application/ports"
	"github.com/Haleralex/edgeapi/internal/application/usecases/resource"
	"github.com/Haleralex/edgeapi/internal/config"
	"github.com/Haleralex/edgeapi/internal/domain/entities"
	"github.com/Haleralex/edgeapi/internal/infrastructure/persistence/memory"
	"github.com/Haleralex/edgeapi/internal/infrastructure/persistence/postgres"
	"github.com/Haleralex/edgeapi/internal/infrastructure/persistence/rowmap"
	"github.com/Haleralex/edgeapi/internal/pkg/logger"
	"github.com/Haleralex/edgeapi/internal/pkg/telemetry"
)

// Имена ресурсов API. Совпадают с сегментом пути /v1/<name> и с таблицами.
const (
	ProjectsResource = "projects"
	ProfilesResource = "profiles"
)

// ErrUnknownFunction - lambda.function не соответствует ни одному маршруту.
var ErrUnknownFunction = errors.New("unknown lambda function")

// ============================================
// Container
// ============================================

// Container - DI контейнер приложения.
type Container struct {
	config *config.Config
	logger *slog.Logger

	// Infrastructure
	pool            *pgxpool.Pool
	shutdownTracing telemetry.ShutdownFunc
	projectMapper   *rowmap.Mapper[entities.Project]
	profileMapper   *rowmap.Mapper[entities.Profile]
	initialized     bool

	// Repositories
	projectRepo ports.ResourceRepository[entities.Project]
	profileRepo ports.ResourceRepository[entities.Profile]

	// Unit of Work
	uow ports.UnitOfWork

	// Use Cases
	projects *resource.Service[entities.Project]
	profiles *resource.Service[entities.Profile]

	// HTTP
	adapter        *adapter.Adapter
	health         *handlers.HealthHandler
	projectHandler *handlers.ResourceHandler[entities.Project]
	profileHandler *handlers.ResourceHandler[entities.Profile]
	httpServer     *http.Server
}

// New создаёт новый контейнер с заданной конфигурацией.
func New(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// ============================================
// Initialization
// ============================================

// Initialize инициализирует все зависимости, кроме HTTP сервера.
// Повторный вызов ничего не делает.
func (c *Container) Initialize(ctx context.Context) error {
	if c.initialized {
		return nil
	}

	if c.logger == nil {
		c.logger = c.initLogger()
	}
	c.logger.Info("Initializing application container...",
		slog.String("driver", c.config.Database.Driver),
	)

	// 1. Tracing
	if err := c.initTelemetry(ctx); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	// 2. Database
	if c.config.Database.Driver == config.DriverPostgres && c.pool == nil {
		if err := c.initDatabase(ctx); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		c.logger.Info("Database connected")
	}

	// 3. Repositories
	if err := c.initRepositories(); err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	// 4. Use Cases
	c.initUseCases()

	// 5. Handlers
	c.initHandlers()

	c.initialized = true
	c.logger.Info("Container initialization complete")
	return nil
}

// initLogger инициализирует логгер.
func (c *Container) initLogger() *slog.Logger {
	var output io.Writer = os.Stdout
	if c.config.Log.Output == "stderr" {
		output = os.Stderr
	}

	return logger.Setup(&logger.Config{
		Level:     c.config.Log.Level,
		Format:    c.config.Log.Format,
		Output:    output,
		AddSource: c.config.Log.AddSource,
	})
}

// initTelemetry регистрирует TracerProvider.
func (c *Container) initTelemetry(ctx context.Context) error {
	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        c.config.Telemetry.Enabled,
		Endpoint:       c.config.Telemetry.Endpoint,
		Insecure:       c.config.Telemetry.Insecure,
		SampleRatio:    c.config.Telemetry.SampleRatio,
		ServiceName:    c.config.App.Name,
		ServiceVersion: c.config.App.Version,
		Environment:    c.config.App.Environment,
	})
	if err != nil {
		return err
	}
	c.shutdownTracing = shutdown
	return nil
}

// initDatabase инициализирует подключение к БД.
func (c *Container) initDatabase(ctx context.Context) error {
	db := c.config.Database

	pool, err := postgres.NewConnectionPool(ctx, postgres.Config{
		DSN:             db.URL,
		Host:            db.Host,
		Port:            db.Port,
		Database:        db.Database,
		User:            db.User,
		Password:        db.Password,
		SSLMode:         db.SSLMode,
		MaxConns:        db.MaxConnections,
		MinConns:        db.MinConnections,
		MaxConnLifetime: db.MaxConnLifetime,
		MaxConnIdleTime: db.MaxConnIdleTime,
		ConnectTimeout:  db.ConnectTimeout,
	})
	if err != nil {
		return err
	}

	c.pool = pool
	return nil
}

// initRepositories инициализирует репозитории.
func (c *Container) initRepositories() error {
	var err error
	if c.projectMapper, err = rowmap.New[entities.Project]("Project"); err != nil {
		return err
	}
	if c.profileMapper, err = rowmap.New[entities.Profile]("Profile"); err != nil {
		return err
	}

	exact := c.config.Pagination.ExactCount()

	if c.pool != nil {
		c.projectRepo = postgres.NewTableRepository(c.pool, ProjectsResource, c.projectMapper, exact)
		c.profileRepo = postgres.NewTableRepository(c.pool, ProfilesResource, c.profileMapper, exact)
		isolation, err := postgres.ParseIsolation(c.config.Database.TxIsolation)
		if err != nil {
			return err
		}
		c.uow = postgres.NewUnitOfWork(c.pool).
			WithIsolation(isolation).
			WithRetries(c.config.Database.TxRetries)
		return nil
	}

	c.projectRepo = memory.NewRepository(c.projectMapper, exact)
	c.profileRepo = memory.NewRepository(c.profileMapper, exact)
	c.uow = memory.UnitOfWork{}
	return nil
}

// initUseCases инициализирует use cases.
func (c *Container) initUseCases() {
	validator := resource.NewValidator()

	c.projects = resource.NewService("Project", c.projectRepo, c.uow, validator)
	c.profiles = resource.NewService("Profile", c.profileRepo, c.uow, validator)
}

// initHandlers инициализирует adapter и handlers.
func (c *Container) initHandlers() {
	c.adapter = adapter.New(AdapterConfig(c.config), c.logger)

	if c.pool != nil {
		pool := c.pool
		c.health = handlers.NewHealthHandler(pool, c.config.App.Version, c.config.App.BuildTime).
			WithStats(func() any { return postgres.GetPoolStats(pool) })
	} else {
		c.health = handlers.NewHealthHandler(nil, c.config.App.Version, c.config.App.BuildTime)
	}

	c.projectHandler = handlers.NewResourceHandler[entities.Project](c.projects)
	c.profileHandler = handlers.NewResourceHandler[entities.Profile](c.profiles)
}

// AdapterConfig переводит настройки приложения в adapter.Config.
func AdapterConfig(cfg *config.Config) adapter.Config {
	out := adapter.Config{
		MaxBodySize:           cfg.Adapter.MaxBodySize,
		ValidateContentType:   cfg.Adapter.ValidateContentType,
		MultiValueQueryParams: cfg.Adapter.MultiValueQueryParams,
	}

	if cfg.CORS.Enabled {
		out.CORS = &adapter.CORSOptions{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     cfg.CORS.AllowedMethods,
			AllowHeaders:     cfg.CORS.AllowedHeaders,
			ExposeHeaders:    cfg.CORS.ExposedHeaders,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           int(cfg.CORS.MaxAge / time.Second),
		}
	}

	return out
}

// ============================================
// Routes
// ============================================

// routeTable - маршруты по имени функции (lambda.function).
func (c *Container) routeTable() map[string]common.Routes {
	health, ready := c.health.Routes()
	return map[string]common.Routes{
		ProjectsResource:           c.projectHandler.CollectionRoutes(),
		ProjectsResource + ".item": c.projectHandler.ItemRoutes(),
		ProfilesResource:           c.profileHandler.CollectionRoutes(),
		ProfilesResource + ".item": c.profileHandler.ItemRoutes(),
		"health":                   health,
		"ready":                    ready,
	}
}

// Functions возвращает отсортированные имена маршрутов для Lambda.
func (c *Container) Functions() []string {
	table := c.routeTable()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LambdaHandler возвращает handler для функции name
// (например, "projects" или "profiles.item").
func (c *Container) LambdaHandler(name string) (*lambdaadapter.Handler, error) {
	routes, ok := c.routeTable()[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	return lambdaadapter.New(c.adapter, name, routes), nil
}

// ============================================
// HTTP Server
// ============================================

// Router собирает gin роутер со всеми ресурсами.
func (c *Container) Router() *gin.Engine {
	return http.NewRouterBuilder(&http.RouterConfig{
		Logger:      c.logger,
		Adapter:     c.adapter,
		Health:      c.health,
		ServiceName: c.config.App.Name,
		Environment: c.config.App.Environment,
	}).
		WithResource(ProjectsResource, c.projectHandler).
		WithResource(ProfilesResource, c.profileHandler).
		Build()
}

// HTTPServer возвращает HTTP сервер, создавая его при первом вызове.
// nil до Initialize.
func (c *Container) HTTPServer() *http.Server {
	if !c.initialized {
		return nil
	}
	if c.httpServer == nil {
		c.httpServer = http.NewServer(c.config.Server, c.Router(), c.logger)
	}
	return c.httpServer
}

// ============================================
// Getters
// ============================================

// Config возвращает конфигурацию.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger возвращает логгер.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Pool возвращает пул соединений к БД (nil для driver=memory).
func (c *Container) Pool() *pgxpool.Pool {
	return c.pool
}

// Adapter возвращает конвейер запросов.
func (c *Container) Adapter() *adapter.Adapter {
	return c.adapter
}

// UnitOfWork возвращает Unit of Work.
func (c *Container) UnitOfWork() ports.UnitOfWork {
	return c.uow
}

// Projects возвращает use cases проектов.
func (c *Container) Projects() *resource.Service[entities.Project] {
	return c.projects
}

// Profiles возвращает use cases профилей.
func (c *Container) Profiles() *resource.Service[entities.Profile] {
	return c.profiles
}

// ============================================
// Shutdown
// ============================================

// Shutdown выполняет graceful shutdown всех компонентов.
func (c *Container) Shutdown(ctx context.Context) error {
	if c.logger != nil {
		c.logger.Info("Shutting down container...")
	}

	var errs []error

	// 1. HTTP Server
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	// 2. Tracing: сбросить накопленные spans
	if c.shutdownTracing != nil {
		if err := c.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}

	// 3. Database (даём время на завершение транзакций)
	if c.pool != nil {
		done := make(chan struct{})
		go func() {
			c.pool.Close()
			close(done)
		}()

		select {
		case <-done:
			c.logger.Info("Database connection closed")
		case <-ctx.Done():
			c.logger.Warn("Database close timeout")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	if c.logger != nil {
		c.logger.Info("Container shutdown complete")
	}
	return nil
}

// ============================================
// Run
// ============================================

// Run запускает HTTP сервер и ожидает сигнал завершения или отмену ctx.
func (c *Container) Run(ctx context.Context) error {
	server := c.HTTPServer()
	if server == nil {
		return errors.New("container is not initialized")
	}

	c.logger.Info("Starting edgeapi server",
		slog.String("version", c.config.App.Version),
		slog.String("environment", c.config.App.Environment),
		slog.String("address", c.config.Server.Address()),
	)

	return server.Run(ctx)
}

// ============================================
// Builder Pattern (Alternative)
// ============================================

// ContainerBuilder - builder для создания контейнера с кастомными компонентами.
type ContainerBuilder struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// NewBuilder создаёт новый builder.
func NewBuilder(cfg *config.Config) *ContainerBuilder {
	return &ContainerBuilder{
		cfg: cfg,
	}
}

// WithLogger устанавливает кастомный логгер.
func (b *ContainerBuilder) WithLogger(logger *slog.Logger) *ContainerBuilder {
	b.logger = logger
	return b
}

// WithPool устанавливает готовый пул соединений.
func (b *ContainerBuilder) WithPool(pool *pgxpool.Pool) *ContainerBuilder {
	b.pool = pool
	return b
}

// Build создаёт и инициализирует контейнер.
func (b *ContainerBuilder) Build(ctx context.Context) (*Container, error) {
	c := New(b.cfg)
	c.logger = b.logger
	c.pool = b.pool

	if err := c.Initialize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
