package middleware

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/artur-silva-empresa/Texdex/pkg/errors"
)

// CustomValidation is a domain rule exposed as a validator tag
type CustomValidation struct {
	Tag     string
	Func    validator.Func
	Message string
}

var (
	validate     *validator.Validate
	validateOnce sync.Once

	customMu          sync.RWMutex
	customValidations []CustomValidation
	customMessages    = map[string]string{}
)

// RegisterValidation adds a custom validator tag. Must be called before InitValidator.
func RegisterValidation(cv CustomValidation) {
	customMu.Lock()
	defer customMu.Unlock()
	customValidations = append(customValidations, cv)
	customMessages[cv.Tag] = cv.Message
}

func jsonTagName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}

func configure(v *validator.Validate) {
	customMu.RLock()
	defer customMu.RUnlock()
	for _, cv := range customValidations {
		_ = v.RegisterValidation(cv.Tag, cv.Func)
	}
	v.RegisterTagNameFunc(jsonTagName)
}

// InitValidator initializes the validator with custom validators and installs
// them on gin's binding engine too
func InitValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		configure(validate)

		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			configure(v)
		}
	})

	return validate
}

// ValidationErrorFormatter formats validation errors into a map
func ValidationErrorFormatter(err error) map[string]string {
	fields := make(map[string]string)

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			fields[e.Field()] = formatValidationError(e)
		}
	}

	return fields
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "oneof":
		return "must be one of: " + e.Param()
	}

	customMu.RLock()
	msg, ok := customMessages[e.Tag()]
	customMu.RUnlock()
	if ok {
		return msg
	}
	return "is invalid"
}

// BindAndValidate binds request body and validates it
func BindAndValidate(c *gin.Context, obj any) *errors.AppError {
	if err := c.ShouldBindJSON(obj); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return errors.ErrValidationWithFields("validation failed", ValidationErrorFormatter(validationErrors))
		}
		return errors.ErrBadRequest("invalid request body: " + err.Error())
	}
	return nil
}

// SanitizeString removes null bytes and trims whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// InputSanitizer middleware sanitizes query parameters
func InputSanitizer() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Request.URL.Query()
		for key, values := range query {
			for i, v := range values {
				values[i] = SanitizeString(v)
			}
			query[key] = values
		}
		c.Request.URL.RawQuery = query.Encode()

		c.Next()
	}
}

// ContentType middleware requires JSON bodies on writes, except multipart uploads
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "PATCH":
			contentType := c.GetHeader("Content-Type")
			jsonBody := strings.HasPrefix(contentType, "application/json")
			upload := strings.HasPrefix(contentType, "multipart/form-data")
			if !jsonBody && !upload && c.Request.ContentLength > 0 {
				AbortWithAppError(c, &errors.AppError{
					Code:       "INVALID_CONTENT_TYPE",
					Message:    "Content-Type must be application/json or multipart/form-data",
					HTTPStatus: 415,
				})
				return
			}
		}
		c.Next()
	}
}
