package health

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cmms.GO/api"
	"cmms.GO/app"
)

func init() {
	api.RegisterRoute(RegisterHealthRoute)
}

// RegisterHealthRoute answers 200 while the database responds.
func RegisterHealthRoute(e *echo.Echo, a *app.App) {
	e.GET("/health", func(c echo.Context) error {
		sqlDB, err := a.DB.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "down", "error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
}
