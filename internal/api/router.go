package api

import (
	"github.com/gin-gonic/gin"

	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/auth"
	"github.com/artur-silva-empresa/Texdex/internal/realtime"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/metrics"
	"github.com/artur-silva-empresa/Texdex/pkg/middleware"
)

// DefaultMaxUploadBytes bounds an uploaded import file
const DefaultMaxUploadBytes = 50 << 20

// Dependencies holds everything the HTTP layer calls into
type Dependencies struct {
	ServiceName string
	Orders      *application.OrderService
	Queries     *application.OrderQueryService
	Imports     *application.ImportService
	Sync        *application.LedgerSync
	Hub         *realtime.Hub
	Credentials *auth.Credentials
	Tokens      *auth.TokenIssuer
	Metrics     *metrics.Metrics
	Logger      *logging.Logger
	// Ready reports whether the ledger is reachable
	Ready          func() error
	MaxUploadBytes int64
}

// NewRouter builds the gin engine with the standard middleware stack and every route
func NewRouter(deps *Dependencies) *gin.Engine {
	RegisterValidations()
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if deps.Ready == nil {
		deps.Ready = func() error { return nil }
	}
	logger := deps.Logger

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(deps.ServiceName, logger.Logger))
	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}
	router.Use(middleware.SimpleTracingMiddleware(deps.ServiceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(deps.ServiceName))
	router.GET("/ready", middleware.ReadinessCheck(deps.ServiceName, deps.Ready))
	if deps.Metrics != nil {
		router.GET("/metrics", middleware.MetricsEndpoint(deps.Metrics))
	}

	v1 := router.Group("/api/v1")
	v1.POST("/auth/login", loginHandler(deps.Credentials, deps.Tokens, logger))

	authed := v1.Group("")
	authed.Use(middleware.Authenticate(deps.Tokens))
	admin := middleware.RequireRole(auth.RoleAdmin)
	{
		authed.GET("/auth/me", meHandler(deps.Credentials))

		orders := authed.Group("/orders")
		{
			orders.GET("", listOrdersHandler(deps.Queries, logger))
			orders.GET("/filters", filterOptionsHandler(deps.Queries, logger))
			orders.GET("/:orderId", getOrderHandler(deps.Queries, logger))
			orders.PUT("/:orderId", admin, updateOrderHandler(deps.Orders, logger))
			orders.PUT("/:orderId/sectors/:sectorId/observation", setObservationHandler(deps.Orders, logger))
			orders.DELETE("/:orderId", admin, deleteOrderHandler(deps.Orders, logger))
			orders.DELETE("", admin, clearLedgerHandler(deps.Orders, logger))
		}

		documents := authed.Group("/documents", admin)
		{
			documents.PUT("/:docNr/priority", setDocumentPriorityHandler(deps.Orders, logger))
			documents.PUT("/:docNr/manual", setDocumentManualHandler(deps.Orders, logger))
			documents.PUT("/:docNr/sectors/:sectorId/stop-reason", setDocumentStopReasonHandler(deps.Orders, logger))
			documents.DELETE("/:docNr", deleteDocumentHandler(deps.Orders, logger))
		}

		imports := authed.Group("/imports")
		{
			imports.GET("", listImportLogsHandler(deps.Queries, logger))
			imports.POST("", admin, importHandler(deps.Imports, deps.MaxUploadBytes, logger))
			imports.POST("/preview", admin, previewImportHandler(deps.Imports, deps.Queries, deps.MaxUploadBytes, logger))
		}

		authed.GET("/dashboard", dashboardHandler(deps.Queries))
		authed.GET("/alerts", alertsHandler(deps.Queries))

		authed.GET("/stop-reasons", getStopReasonsHandler(deps.Orders, logger))
		authed.PUT("/stop-reasons", admin, updateStopReasonsHandler(deps.Orders, logger))

		exports := authed.Group("/exports")
		{
			exports.GET("/excel", exportExcelHandler(deps.Queries, logger))
			exports.GET("/sqlite", exportSQLiteHandler(deps.Queries, logger))
		}

		authed.GET("/stream", streamHandler(deps.Hub, deps.Sync, deps.Queries))
		authed.GET("/sync/status", syncStatusHandler(deps.Sync))
	}

	return router
}

func responder(c *gin.Context, logger *logging.Logger) *middleware.ErrorResponder {
	return middleware.NewErrorResponder(c, logger.Logger).WithMapper(MapError)
}

// principalName returns the caller's username, or "" when unauthenticated
func principalName(c *gin.Context) string {
	if p := middleware.GetPrincipal(c); p != nil {
		return p.Username
	}
	return ""
}
