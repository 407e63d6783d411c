package jobs

import "github.com/labstack/echo/v4"

type Handler interface {
	Submit() echo.HandlerFunc
	Status() echo.HandlerFunc
	Cancel() echo.HandlerFunc
	List() echo.HandlerFunc
	Artifact() echo.HandlerFunc
}
