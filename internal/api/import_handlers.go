package api

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/errors"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/middleware"
)

const (
	uploadField       = "file"
	defaultImportLogs = 50
	maxPreviewOrders  = application.DefaultPageSize
	maxPreviewSamples = 20
)

// openUpload reads the multipart file field, bounded by maxBytes
func openUpload(c *gin.Context, maxBytes int64) (*multipart.FileHeader, multipart.File, *errors.AppError) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	header, err := c.FormFile(uploadField)
	if err != nil {
		return nil, nil, errors.ErrBadRequest("multipart field \"file\" is required (max upload size exceeded or missing)").Wrap(err)
	}
	if !application.IsSupportedFile(header.Filename) {
		return nil, nil, application.UnsupportedFileError(header.Filename)
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, errors.ErrBadRequest("could not read upload").Wrap(err)
	}
	return header, file, nil
}

func importHandler(service *application.ImportService, maxBytes int64, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		header, file, appErr := openUpload(c, maxBytes)
		if appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}
		defer file.Close()

		middleware.AddSpanAttributes(c, map[string]any{
			"import.filename": header.Filename,
			"import.size":     header.Size,
		})

		result, err := service.Import(c.Request.Context(), application.ImportCommand{
			Filename: header.Filename,
			Content:  file,
			User:     principalName(c),
		})
		if err != nil {
			r.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

func previewImportHandler(service *application.ImportService, queries *application.OrderQueryService, maxBytes int64, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		header, file, appErr := openUpload(c, maxBytes)
		if appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}
		defer file.Close()

		result, err := service.Preview(application.ImportCommand{
			Filename: header.Filename,
			Content:  file,
			User:     principalName(c),
		})
		if err != nil {
			r.RespondWithError(err)
			return
		}

		now := queries.Now()
		dtos := application.ToOrderDTOs(result.Orders, now)
		states := make(map[string]int)
		for _, dto := range dtos {
			states[string(dto.State)]++
		}

		resp := PreviewResponse{
			Filename: header.Filename,
			Records:  len(result.Orders),
			Skipped:  result.Skipped,
			Warnings: len(result.Warnings),
			States:   states,
			Orders:   dtos[:min(len(dtos), maxPreviewOrders)],
		}
		if len(result.Warnings) > 0 {
			resp.Samples = result.Warnings[:min(len(result.Warnings), maxPreviewSamples)]
		}
		c.JSON(http.StatusOK, resp)
	}
}

func listImportLogsHandler(queries *application.OrderQueryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		var req ImportLogsRequest
		if appErr := bindQuery(c, &req); appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}
		if req.Limit == 0 {
			req.Limit = defaultImportLogs
		}

		logs, err := queries.ImportLogs(c.Request.Context(), req.Limit)
		if err != nil {
			r.RespondWithError(err)
			return
		}
		if logs == nil {
			logs = []*domain.ImportLog{}
		}
		c.JSON(http.StatusOK, gin.H{"imports": logs, "total": len(logs)})
	}
}
