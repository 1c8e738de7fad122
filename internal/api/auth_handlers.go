package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artur-silva-empresa/Texdex/internal/auth"
	"github.com/artur-silva-empresa/Texdex/pkg/errors"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
	"github.com/artur-silva-empresa/Texdex/pkg/middleware"
)

func loginHandler(creds *auth.Credentials, tokens *auth.TokenIssuer, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		r := responder(c, logger)

		var req LoginRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			r.RespondWithAppError(appErr)
			return
		}

		principal, err := creds.Authenticate(req.Username, req.Password)
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("Login rejected", "username", req.Username, "clientIP", c.ClientIP())
			r.RespondWithError(err)
			return
		}

		token, expiresAt, err := tokens.Issue(principal)
		if err != nil {
			r.RespondWithAppError(errors.ErrInternal("could not issue token").Wrap(err))
			return
		}

		logger.Audit(c.Request.Context(), "login", "session", principal.Username, principal.Username, map[string]any{
			"role":   principal.Role,
			"sector": principal.Sector,
		})

		c.JSON(http.StatusOK, LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			User:      toUserResponse(creds, principal),
		})
	}
}

func meHandler(creds *auth.Credentials) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, toUserResponse(creds, middleware.GetPrincipal(c)))
	}
}

func toUserResponse(creds *auth.Credentials, p *middleware.Principal) UserResponse {
	return UserResponse{
		Username: p.Username,
		Name:     creds.DisplayName(p.Username),
		Role:     p.Role,
		Sector:   p.Sector,
	}
}
