package api

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/middleware"
)

var registerOnce sync.Once

// RegisterValidations installs the domain validator tags. Must run before
// middleware.Setup initializes the validator.
func RegisterValidations() {
	registerOnce.Do(func() {
		middleware.RegisterValidation(middleware.CustomValidation{
			Tag: "sector_id",
			Func: func(fl validator.FieldLevel) bool {
				return domain.SectorID(fl.Field().String()).IsValid()
			},
			Message: "must be a production sector",
		})
		middleware.RegisterValidation(middleware.CustomValidation{
			Tag: "annotation_key",
			Func: func(fl validator.FieldLevel) bool {
				return domain.SectorID(fl.Field().String()).IsAnnotationKey()
			},
			Message: "must be a production sector or planning",
		})
		middleware.RegisterValidation(middleware.CustomValidation{
			Tag: "priority_level",
			Func: func(fl validator.FieldLevel) bool {
				return domain.Priority(fl.Field().Int()).IsValid()
			},
			Message: "must be 0 (none) to 3 (low)",
		})
		middleware.RegisterValidation(middleware.CustomValidation{
			Tag: "order_id",
			Func: func(fl validator.FieldLevel) bool {
				return domain.ValidateOrderID(fl.Field().String()) == nil
			},
			Message: "must look like <document>-<item>",
		})
	})
}
