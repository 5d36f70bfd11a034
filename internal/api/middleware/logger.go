package middleware

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RequestLogger writes one zerolog entry per request. Errors are handed to
// the global error handler first so the logged status is the one the client
// received.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			var ev *zerolog.Event
			switch {
			case v.Status >= 500:
				ev = log.Error()
			case v.Status >= 400:
				ev = log.Warn()
			default:
				ev = log.Info()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
