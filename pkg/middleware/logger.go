package middleware

import (
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	bramblecontext "github.com/Ramsey-B/bramble/pkg/context"
	"github.com/Ramsey-B/bramble/pkg/metrics"
)

// Logger logs one line per request and counts it
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			stop := time.Now()
			metrics.HTTPRequestsTotal.WithLabelValues(req.Method, c.Path(), strconv.Itoa(res.Status)).Inc()

			logger.WithContext(req.Context()).WithFields(map[string]any{
				"request_id":    bramblecontext.GetRequestID(req.Context()),
				"method":        req.Method,
				"uri":           req.RequestURI,
				"status":        res.Status,
				"route":         c.Path(),
				"remote_ip":     c.RealIP(),
				"user_agent":    req.UserAgent(),
				"response_time": stop.Sub(start),
				"response_size": strconv.FormatInt(res.Size, 10),
			}).Info("Request")

			return nil
		}
	}
}
