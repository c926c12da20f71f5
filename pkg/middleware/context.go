package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	bramblecontext "github.com/Ramsey-B/bramble/pkg/context"
)

// Context attaches the request id to the request context and echoes it back
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := bramblecontext.SetRequestID(req.Context(), requestID)
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}
