package middleware

import (
	"time"

	"github.com/amankumarsingh77/media-muxer/internal/config"
	"github.com/amankumarsingh77/media-muxer/pkg/logger"
	"github.com/amankumarsingh77/media-muxer/pkg/utils"
	"github.com/labstack/echo/v4"
)

type MiddlewareManager struct {
	cfg     *config.Config
	origins []string
	logger  logger.Logger
}

// Middleware manager constructor
func NewMiddlewareManager(cfg *config.Config, origins []string, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{cfg: cfg, origins: origins, logger: logger}
}

// Origins is the CORS allow list handed to echo's CORS middleware.
func (mw *MiddlewareManager) Origins() []string {
	if len(mw.origins) == 0 {
		return []string{"*"}
	}
	return mw.origins
}

func (mw *MiddlewareManager) RequestLoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		res := c.Response()
		mw.logger.Infof("RequestID: %s, Method: %s, URI: %s, Status: %v, Size: %v, Time: %s, IP: %s",
			utils.GetRequestID(c), req.Method, req.URL.String(), res.Status, res.Size, time.Since(start), utils.GetIPAddress(c))
		return nil
	}
}
