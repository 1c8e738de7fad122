package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/auth"
	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/errors"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/middleware"
)

const weekCurrent = "current"

// bindQuery binds and validates query parameters
func bindQuery(c *gin.Context, obj any) *errors.AppError {
	if err := c.ShouldBindQuery(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("invalid query", middleware.ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid query: " + err.Error())
	}
	return nil
}

// toListQuery resolves the week parameter against now
func toListQuery(req ListOrdersRequest, now time.Time) (application.ListOrdersQuery, *errors.AppError) {
	query := application.ListOrdersQuery{
		Status:          domain.OrderState(req.Status),
		Priority:        req.Priority,
		ManualOnly:      req.Manual,
		Client:          req.Client,
		Reference:       req.Reference,
		DocSeries:       req.DocSeries,
		HasObservations: req.HasObservations,
		FulfilledOnly:   req.Fulfilled,
		Sector:          domain.SectorID(req.Sector),
		SectorState:     domain.SectorState(req.SectorState),
		Search:          req.Search,
		Page:            req.Page,
		PageSize:        req.PageSize,
	}

	switch req.Week {
	case "":
	case weekCurrent:
		query.Week = &now
	default:
		day, err := time.ParseInLocation(time.DateOnly, req.Week, now.Location())
		if err != nil {
			return query, errors.ErrValidationWithFields("invalid query", map[string]string{
				"week": "must be current or a date (YYYY-MM-DD)",
			})
		}
		query.Week = &day
	}
	return query, nil
}

func listOrdersHandler(queries *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		var req ListOrdersRequest
		if appErr := bindQuery(c, &req); appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}
		query, appErr := toListQuery(req, queries.Now())
		if appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}

		result := queries.ListOrders(query)

		middleware.AddSpanAttributes(c, map[string]any{
			"orders.total": result.Total,
			"orders.page":  result.Page,
		})

		c.JSON(http.StatusOK, result)
	}
}

func filterOptionsHandler(queries *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req FilterOptionsRequest
		if appErr := bindQuery(c, &req); appErr != nil {
			responder(c, logger).RespondWithAppError(appErr)
			return
		}
		c.JSON(http.StatusOK, queries.FilterOptions(req.DocSeries, req.Client))
	}
}

func getOrderHandler(queries *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("orderId")
		middleware.AddSpanAttributes(c, map[string]any{"order.id": orderID})

		order, err := queries.GetOrder(orderID)
		if err != nil {
			responder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func updateOrderHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		var req UpdateOrderRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}

		cmd := application.UpdateOrderCommand{
			OrderID:        c.Param("orderId"),
			User:           principalName(c),
			Priority:       req.Priority,
			IsManual:       req.IsManual,
			Observations:   req.Observations,
			StopReasons:    req.StopReasons,
			PredictedDates: req.PredictedDates,
		}
		middleware.AddSpanAttributes(c, map[string]any{"order.id": cmd.OrderID})

		order, err := service.UpdateOrder(c.Request.Context(), cmd)
		if err != nil {
			r.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func setObservationHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		sector, err := domain.ParseAnnotationKey(c.Param("sectorId"))
		if err != nil {
			r.RespondWithError(err)
			return
		}
		principal := middleware.GetPrincipal(c)
		if !auth.CanAnnotate(principal, sector) {
			r.RespondForbidden("you may not annotate sector " + string(sector))
			return
		}

		var req ObservationRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}

		cmd := application.SetObservationCommand{
			OrderID: c.Param("orderId"),
			Sector:  sector,
			Text:    req.Text,
			User:    principal.Username,
		}
		middleware.AddSpanAttributes(c, map[string]any{
			"order.id":  cmd.OrderID,
			"sector.id": string(sector),
		})

		order, err := service.SetObservation(c.Request.Context(), cmd)
		if err != nil {
			r.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func deleteOrderHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd := application.DeleteOrderCommand{OrderID: c.Param("orderId"), User: principalName(c)}
		if err := service.DeleteOrder(c.Request.Context(), cmd); err != nil {
			responder(c, logger).RespondWithError(err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func clearLedgerHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := service.ClearLedger(c.Request.Context(), application.ClearLedgerCommand{User: principalName(c)})
		if err != nil {
			responder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func setDocumentPriorityHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		var req DocumentPriorityRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}

		result, err := service.SetDocumentPriority(c.Request.Context(), application.SetDocumentPriorityCommand{
			DocNr:    c.Param("docNr"),
			Priority: req.Priority,
			User:     principalName(c),
		})
		if err != nil {
			r.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func setDocumentManualHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		var req DocumentManualRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}

		result, err := service.SetDocumentManual(c.Request.Context(), application.SetDocumentManualCommand{
			DocNr:    c.Param("docNr"),
			IsManual: *req.IsManual,
			User:     principalName(c),
		})
		if err != nil {
			r.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func setDocumentStopReasonHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		sector, err := domain.ParseAnnotationKey(c.Param("sectorId"))
		if err != nil {
			r.RespondWithError(err)
			return
		}

		var req StopReasonRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}

		result, err := service.SetDocumentStopReason(c.Request.Context(), application.SetDocumentStopReasonCommand{
			DocNr:  c.Param("docNr"),
			Sector: sector,
			Label:  req.Label,
			User:   principalName(c),
		})
		if err != nil {
			r.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func deleteDocumentHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := service.DeleteDocument(c.Request.Context(), application.DeleteDocumentCommand{
			DocNr: c.Param("docNr"),
			User:  principalName(c),
		})
		if err != nil {
			responder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func getStopReasonsHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tree, err := service.GetStopReasons(c.Request.Context())
		if err != nil {
			responder(c, logger).RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, StopReasonsResponse{Reasons: tree, Labels: tree.Flatten()})
	}
}

func updateStopReasonsHandler(service *application.OrderService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		var req StopReasonsRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}

		tree, err := service.UpdateStopReasons(c.Request.Context(), application.UpdateStopReasonsCommand{
			Hierarchy: req.Reasons,
			User:      principalName(c),
		})
		if err != nil {
			r.RespondWithError(err)
			return
		}
		c.JSON(http.StatusOK, StopReasonsResponse{Reasons: tree, Labels: tree.Flatten()})
	}
}

func dashboardHandler(queries *application.OrderQueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, queries.Dashboard())
	}
}

func alertsHandler(queries *application.OrderQueryService) gin.HandlerFunc {
	return func(c *gin.Context) {
		alerts := queries.Alerts()
		c.JSON(http.StatusOK, gin.H{"orders": alerts, "total": len(alerts)})
	}
}

func syncStatusHandler(sync *application.LedgerSync) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, sync.Status())
	}
}
