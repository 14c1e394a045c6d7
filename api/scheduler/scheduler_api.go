package scheduler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"cmms.GO/api"
	"cmms.GO/app"
	"cmms.GO/core/actor"
	"cmms.GO/core/apperr"
	"cmms.GO/service/scheduler"
)

func init() {
	api.RegisterModule(RegisterSchedulerRoutes)
}

// RegisterSchedulerRoutes exposes pause control and run status.
//
// Pause and resume act on the caller's organization. With ?scope=global an
// administrator pauses the loop for every organization instead.
func RegisterSchedulerRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/scheduler")

	g.GET("/status", func(c echo.Context) error {
		st, err := a.Control.Status(api.Ctx(c), api.Org(c))
		return api.Respond(c, http.StatusOK, echo.Map{"schedulers": st}, err)
	})

	scope := func(c echo.Context) (uint, error) {
		if c.QueryParam("scope") != "global" {
			return api.Org(c), nil
		}
		if !actor.IsAdmin(api.Ctx(c)) {
			return 0, &apperr.ForbiddenError{Action: "pause schedulers globally"}
		}
		return 0, nil
	}

	g.GET("/:name", func(c echo.Context) error {
		org, err := scope(c)
		if err != nil {
			return api.Error(c, err)
		}
		p, err := a.Control.Paused(api.Ctx(c), c.Param("name"), org)
		return api.Respond(c, http.StatusOK, echo.Map{"paused": p}, err)
	})

	toggle := func(paused bool) echo.HandlerFunc {
		return func(c echo.Context) error {
			org, err := scope(c)
			if err != nil {
				return api.Error(c, err)
			}
			if err := a.Control.SetPaused(api.Ctx(c), c.Param("name"), org, paused); err != nil {
				return api.Error(c, err)
			}
			return c.JSON(http.StatusOK, echo.Map{"paused": paused})
		}
	}
	g.POST("/:name/pause", toggle(true))
	g.POST("/:name/resume", toggle(false))

	// Runs one tick now, for every organization.
	g.POST("/:name/run", func(c echo.Context) error {
		if !actor.IsAdmin(api.Ctx(c)) {
			return api.Error(c, &apperr.ForbiddenError{Action: "run schedulers"})
		}
		l, ok := a.Schedulers.Get(c.Param("name"))
		if !ok {
			return api.Error(c, apperr.Validation("name", "unknown scheduler %q", c.Param("name")))
		}
		res, err := l.Tick(actor.System(api.Ctx(c)))
		if errors.Is(err, scheduler.ErrSkipped) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "scheduler is paused or already running"})
		}
		return api.Respond(c, http.StatusOK, res, err)
	})
}
