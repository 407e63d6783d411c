package utils

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
)

func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func GetIPAddress(c echo.Context) string {
	return c.Request().RemoteAddr
}

// GetJobID reads the :job_id path parameter.
func GetJobID(c echo.Context) (string, error) {
	id := strings.TrimSpace(c.Param("job_id"))
	if id == "" {
		return "", fmt.Errorf("job id is required")
	}
	return id, nil
}
