package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/infrastructure/export"
	"github.com/artur-silva-empresa/Texdex/pkg/errors"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
)

const (
	contentTypeXLSX   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeSQLite = "application/vnd.sqlite3"
)

func attachment(c *gin.Context, filename, contentType string, body []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, body)
}

func exportExcelHandler(queries *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		orders, _, err := queries.ExportData(c.Request.Context())
		if err != nil {
			r.RespondWithError(err)
			return
		}

		now := queries.Now()
		var buf bytes.Buffer
		if err := export.WriteExcel(&buf, orders, now); err != nil {
			r.RespondWithAppError(errors.ErrInternal("could not build spreadsheet").Wrap(err))
			return
		}

		logger.Audit(c.Request.Context(), "export", "orders", "excel", principalName(c), map[string]any{"orders": len(orders)})
		attachment(c, export.ExcelFilename(now), contentTypeXLSX, buf.Bytes())
	}
}

func exportSQLiteHandler(queries *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		orders, headers, err := queries.ExportData(c.Request.Context())
		if err != nil {
			r.RespondWithError(err)
			return
		}

		var buf bytes.Buffer
		if err := export.WriteSQLiteTo(&buf, orders, headers); err != nil {
			r.RespondWithAppError(errors.ErrInternal("could not build database backup").Wrap(err))
			return
		}

		logger.Audit(c.Request.Context(), "export", "orders", "sqlite", principalName(c), map[string]any{"orders": len(orders)})
		attachment(c, export.SQLiteFilename(queries.Now()), contentTypeSQLite, buf.Bytes())
	}
}
