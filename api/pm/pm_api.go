package pm

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"cmms.GO/api"
	"cmms.GO/app"
	pmRepo "cmms.GO/model/repository/pm"
	"cmms.GO/service/pm"
)

func init() {
	api.RegisterModule(RegisterPMRoutes)
}

type flagRequest struct {
	Value bool `json:"value"`
}

func RegisterPMRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/pms")
	svc := a.PM

	g.POST("", func(c echo.Context) error {
		var in pm.DefinitionInput
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		d, err := svc.Create(api.Ctx(c), api.Org(c), in)
		return api.Respond(c, http.StatusCreated, d, err)
	})

	// GET /api/pms?asset_id=&active=true&limit=&offset=
	g.GET("", func(c echo.Context) error {
		var f pmRepo.ListFilter
		if v, err := api.QueryInt(c, "asset_id", 0); err != nil {
			return api.Error(c, err)
		} else if v > 0 {
			id := uint(v)
			f.AssetID = &id
		}
		switch c.QueryParam("active") {
		case "true", "1":
			t := true
			f.IsActive = &t
		case "false", "0":
			v := false
			f.IsActive = &v
		}
		var err error
		if f.Limit, err = api.QueryInt(c, "limit", 50); err != nil {
			return api.Error(c, err)
		}
		if f.Offset, err = api.QueryInt(c, "offset", 0); err != nil {
			return api.Error(c, err)
		}
		items, total, err := svc.List(api.Ctx(c), api.Org(c), f)
		if err != nil {
			return api.Error(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"items": items, "total": total})
	})

	// GET /api/pms/due?days_ahead=7
	g.GET("/due", func(c echo.Context) error {
		days, err := api.QueryInt(c, "days_ahead", 7)
		if err != nil {
			return api.Error(c, err)
		}
		items, err := svc.ListDue(api.Ctx(c), api.Org(c), days)
		return api.Respond(c, http.StatusOK, echo.Map{"items": items}, err)
	})

	g.POST("/job-plans", func(c echo.Context) error {
		var in pm.JobPlanInput
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		jp, err := svc.CreateJobPlan(api.Ctx(c), api.Org(c), in)
		return api.Respond(c, http.StatusCreated, jp, err)
	})

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		d, err := svc.Get(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, d, err)
	})

	g.PUT("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in pm.DefinitionInput
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		d, err := svc.Update(api.Ctx(c), api.Org(c), id, in)
		return api.Respond(c, http.StatusOK, d, err)
	})

	g.POST("/:id/paused", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in flagRequest
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		d, err := svc.SetPaused(api.Ctx(c), api.Org(c), id, in.Value)
		return api.Respond(c, http.StatusOK, d, err)
	})

	g.POST("/:id/active", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in flagRequest
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		d, err := svc.SetActive(api.Ctx(c), api.Org(c), id, in.Value)
		return api.Respond(c, http.StatusOK, d, err)
	})

	// Generates the next work order now, ignoring the due date.
	g.POST("/:id/generate", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		wo, err := svc.GenerateNow(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusCreated, wo, err)
	})

	g.DELETE("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		if err := svc.Delete(api.Ctx(c), api.Org(c), id); err != nil {
			return api.Error(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	})
}
