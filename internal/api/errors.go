package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/artur-silva-empresa/Texdex/internal/application"
	"github.com/artur-silva-empresa/Texdex/internal/auth"
	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/internal/ingest"
	"github.com/artur-silva-empresa/Texdex/pkg/errors"
)

// MapError turns service errors into API errors. Typed sentinels are matched
// first; anything else falls back to message-based mapping.
func MapError(err error) *errors.AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var partial *application.PartialMergeError
	switch {
	case stderrors.As(err, &partial):
		return errors.ErrMergeFailed().Wrap(err)
	case stderrors.Is(err, ingest.ErrDecodeFailed):
		return errors.ErrDecodeFailed().Wrap(err)
	case stderrors.Is(err, application.ErrEmptyImport):
		return errors.NewAppError(errors.CodeValidationError, err.Error(), http.StatusUnprocessableEntity).Wrap(err)
	case stderrors.Is(err, domain.ErrImportInProgress):
		return errors.ErrConflict(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrOrderNotFound):
		return errors.ErrNotFound("order").Wrap(err)
	case stderrors.Is(err, domain.ErrDocumentNotFound):
		return errors.ErrNotFound("document").Wrap(err)
	case stderrors.Is(err, domain.ErrInvalidPriority),
		stderrors.Is(err, domain.ErrUnknownSector),
		stderrors.Is(err, domain.ErrInvalidOrderID),
		stderrors.Is(err, domain.ErrInvalidStopReasons):
		return errors.ErrValidation(err.Error()).Wrap(err)
	case stderrors.Is(err, auth.ErrInvalidCredentials):
		return errors.ErrUnauthorized(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrBatchTooLarge):
		return errors.ErrInternal("").Wrap(err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.ErrTimeout("request").Wrap(err)
	}
	return errors.MapDomainError(err)
}
