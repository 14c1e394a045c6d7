package cyclecount

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"cmms.GO/api"
	"cmms.GO/app"
	ccEntity "cmms.GO/model/entity/cyclecount"
	"cmms.GO/service/cyclecount"
)

func init() {
	api.RegisterModule(RegisterCycleCountRoutes)
}

type recordRequest struct {
	Counts []cyclecount.LineCount `json:"counts"`
}

type flagRequest struct {
	Value bool `json:"value"`
}

func RegisterCycleCountRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/cycle-counts")
	svc := a.CycleCounts

	g.POST("", func(c echo.Context) error {
		var f cyclecount.Filters
		if err := api.Bind(c, &f); err != nil {
			return api.Error(c, err)
		}
		d, err := svc.CreateCycleCount(api.Ctx(c), api.Org(c), f)
		return api.Respond(c, http.StatusCreated, d, err)
	})

	// GET /api/cycle-counts?status=PLANNED,IN_PROGRESS&limit=
	g.GET("", func(c echo.Context) error {
		var status []ccEntity.Status
		if s := c.QueryParam("status"); s != "" {
			for _, st := range strings.Split(s, ",") {
				status = append(status, ccEntity.Status(strings.ToUpper(strings.TrimSpace(st))))
			}
		}
		limit, err := api.QueryInt(c, "limit", 50)
		if err != nil {
			return api.Error(c, err)
		}
		items, err := svc.List(api.Ctx(c), api.Org(c), status, limit)
		return api.Respond(c, http.StatusOK, echo.Map{"items": items}, err)
	})

	// plans are registered before /:id so the static segment wins
	p := g.Group("/plans")

	p.POST("", func(c echo.Context) error {
		var in cyclecount.PlanInput
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		plan, err := svc.CreatePlan(api.Ctx(c), api.Org(c), in)
		return api.Respond(c, http.StatusCreated, plan, err)
	})

	p.GET("", func(c echo.Context) error {
		items, err := svc.ListPlans(api.Ctx(c), api.Org(c))
		return api.Respond(c, http.StatusOK, echo.Map{"items": items}, err)
	})

	// Creates the weekly and monthly transacted-parts plans if missing.
	p.POST("/defaults", func(c echo.Context) error {
		items, err := svc.EnsureDefaultPlans(api.Ctx(c), api.Org(c))
		return api.Respond(c, http.StatusOK, echo.Map{"items": items}, err)
	})

	p.GET("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		plan, err := svc.GetPlan(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, plan, err)
	})

	p.PUT("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in cyclecount.PlanInput
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		plan, err := svc.UpdatePlan(api.Ctx(c), api.Org(c), id, in)
		return api.Respond(c, http.StatusOK, plan, err)
	})

	p.POST("/:id/paused", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in flagRequest
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		plan, err := svc.SetPlanPaused(api.Ctx(c), api.Org(c), id, in.Value)
		return api.Respond(c, http.StatusOK, plan, err)
	})

	p.POST("/:id/active", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in flagRequest
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		plan, err := svc.SetPlanActive(api.Ctx(c), api.Org(c), id, in.Value)
		return api.Respond(c, http.StatusOK, plan, err)
	})

	p.POST("/:id/run", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		d, err := svc.RunPlanNow(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusCreated, d, err)
	})

	p.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		if err := svc.DeletePlan(api.Ctx(c), api.Org(c), id); err != nil {
			return api.Error(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	})

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		d, err := svc.Get(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, d, err)
	})

	g.POST("/:id/counts", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in recordRequest
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		d, err := svc.RecordCycleCount(api.Ctx(c), api.Org(c), id, in.Counts)
		return api.Respond(c, http.StatusOK, d, err)
	})

	g.POST("/:id/cancel", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		s, err := svc.CancelCycleCount(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, s, err)
	})
}
