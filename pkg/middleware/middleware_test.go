package middleware

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artur-silva-empresa/Texdex/pkg/errors"
)

type stubVerifier map[string]*Principal

func (s stubVerifier) Verify(token string) (*Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, stderrors.New("bad token")
}

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidation(CustomValidation{
		Tag:     "even_len",
		Func:    func(fl validator.FieldLevel) bool { return len(fl.Field().String())%2 == 0 },
		Message: "must have even length",
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter(verifier TokenVerifier) *gin.Engine {
	r := gin.New()
	Setup(r, DefaultConfig("test", discardLogger()))
	api := r.Group("/api", Authenticate(verifier))
	api.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, GetPrincipal(c))
	})
	api.DELETE("/admin-only", RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthenticate(t *testing.T) {
	verifier := stubVerifier{
		"admin-token":  {Username: "plan", Role: "admin", Sector: "all"},
		"viewer-token": {Username: "tecelagem", Role: "viewer", Sector: "weaving"},
	}
	router := newRouter(verifier)

	tests := []struct {
		name   string
		method string
		path   string
		header string
		status int
	}{
		{"missing token", http.MethodGet, "/api/whoami", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/whoami", "Bearer nope", http.StatusUnauthorized},
		{"valid header", http.MethodGet, "/api/whoami", "Bearer viewer-token", http.StatusOK},
		{"lower-case scheme", http.MethodGet, "/api/whoami", "bearer viewer-token", http.StatusOK},
		{"query token", http.MethodGet, "/api/whoami?access_token=viewer-token", "", http.StatusOK},
		{"viewer forbidden", http.MethodDelete, "/api/admin-only", "Bearer viewer-token", http.StatusForbidden},
		{"admin allowed", http.MethodDelete, "/api/admin-only", "Bearer admin-token", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestErrorResponder_RendersAppError(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/boom", func(c *gin.Context) {
		NewErrorResponder(c, discardLogger()).RespondWithError(errors.ErrNotFound("order").WithDetail("id", "DOC1-1"))
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeNotFound, body.Code)
	assert.Equal(t, "req-42", body.RequestID)
	assert.Equal(t, "DOC1-1", body.Details["id"])
}

func TestErrorResponder_CustomMapper(t *testing.T) {
	sentinel := stderrors.New("special")
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		NewErrorResponder(c, discardLogger()).
			WithMapper(func(err error) *errors.AppError {
				if stderrors.Is(err, sentinel) {
					return errors.ErrConflict("mapped")
				}
				return errors.MapDomainError(err)
			}).
			RespondWithError(sentinel)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBindAndValidate_CustomTag(t *testing.T) {
	type body struct {
		Code string `json:"code" binding:"required,even_len"`
	}

	r := gin.New()
	InitValidator()
	r.POST("/v", func(c *gin.Context) {
		var b body
		if appErr := BindAndValidate(c, &b); appErr != nil {
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v", strings.NewReader(`{"code":"abc"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must have even length")
}

func TestContentType_AllowsMultipart(t *testing.T) {
	r := gin.New()
	r.Use(ContentType())
	r.POST("/upload", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	for ct, want := range map[string]int{
		"multipart/form-data; boundary=x": http.StatusAccepted,
		"application/json":                http.StatusAccepted,
		"text/plain":                      http.StatusUnsupportedMediaType,
	} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("payload"))
		req.Header.Set("Content-Type", ct)
		r.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, ct)
	}
}

func TestNoRoute(t *testing.T) {
	r := gin.New()
	r.NoRoute(NoRoute())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ROUTE_NOT_FOUND")
}
