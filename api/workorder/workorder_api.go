package workorder

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"cmms.GO/api"
	"cmms.GO/app"
	woEntity "cmms.GO/model/entity/workorder"
	woRepo "cmms.GO/model/repository/workorder"
	"cmms.GO/service/inventory"
	"cmms.GO/service/workorder"
)

func init() {
	api.RegisterModule(RegisterWorkOrderRoutes)
}

type transitionRequest struct {
	Status woEntity.Status `json:"status"`
	workorder.TransitionInput
}

type materialRequest struct {
	PartID      uint    `json:"part_id"`
	StoreroomID uint    `json:"storeroom_id"`
	Quantity    float64 `json:"quantity"`
	Notes       string  `json:"notes"`
}

func RegisterWorkOrderRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/work-orders")
	svc := a.WorkOrders

	g.POST("", func(c echo.Context) error {
		var in workorder.CreateInput
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		wo, err := svc.Create(api.Ctx(c), api.Org(c), in)
		return api.Respond(c, http.StatusCreated, wo, err)
	})

	// GET /api/work-orders?status=OPEN,IN_PROGRESS&asset_id=&limit=&offset=
	g.GET("", func(c echo.Context) error {
		var f woRepo.ListFilter
		if s := c.QueryParam("status"); s != "" {
			for _, st := range strings.Split(s, ",") {
				f.Status = append(f.Status, woEntity.Status(strings.ToUpper(strings.TrimSpace(st))))
			}
		}
		if v, err := api.QueryInt(c, "asset_id", 0); err != nil {
			return api.Error(c, err)
		} else if v > 0 {
			id := uint(v)
			f.AssetID = &id
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

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		d, err := svc.Detail(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, d, err)
	})

	g.POST("/:id/transition", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var req transitionRequest
		if err := api.Bind(c, &req); err != nil {
			return api.Error(c, err)
		}
		to := woEntity.Status(strings.ToUpper(string(req.Status)))
		wo, err := svc.Transition(api.Ctx(c), api.Org(c), id, to, req.TransitionInput)
		return api.Respond(c, http.StatusOK, wo, err)
	})

	g.GET("/:id/history", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		h, err := svc.History(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, h, err)
	})

	g.POST("/:id/labor", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in workorder.LaborInput
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		lt, err := svc.AddLabor(api.Ctx(c), api.Org(c), id, in)
		return api.Respond(c, http.StatusCreated, lt, err)
	})

	material := func(issue bool) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := api.ID(c, "id")
			if err != nil {
				return api.Error(c, err)
			}
			var body materialRequest
			if err := api.Bind(c, &body); err != nil {
				return api.Error(c, err)
			}
			req := inventory.MaterialRequest{
				OrganizationID: api.Org(c),
				WorkOrderID:    id,
				PartID:         body.PartID,
				StoreroomID:    body.StoreroomID,
				Quantity:       body.Quantity,
				Notes:          body.Notes,
			}
			var mt *woEntity.MaterialTransaction
			if issue {
				mt, err = a.Inventory.IssueMaterial(api.Ctx(c), req)
			} else {
				mt, err = a.Inventory.ReturnMaterial(api.Ctx(c), req)
			}
			return api.Respond(c, http.StatusCreated, mt, err)
		}
	}
	g.POST("/:id/materials", material(true))
	g.POST("/:id/materials/return", material(false))

	g.POST("/:id/reservations", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var req inventory.ReserveRequest
		if err := api.Bind(c, &req); err != nil {
			return api.Error(c, err)
		}
		req.OrganizationID, req.WorkOrderID = api.Org(c), id
		r, err := a.Inventory.Reserve(api.Ctx(c), req)
		return api.Respond(c, http.StatusCreated, r, err)
	})

	g.POST("/:id/tasks", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in workorder.TaskInput
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		t, err := svc.AddTask(api.Ctx(c), api.Org(c), id, in)
		return api.Respond(c, http.StatusCreated, t, err)
	})

	g.POST("/:id/tasks/:taskId/complete", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		taskID, err := api.ID(c, "taskId")
		if err != nil {
			return api.Error(c, err)
		}
		t, err := svc.CompleteTask(api.Ctx(c), api.Org(c), id, taskID)
		return api.Respond(c, http.StatusOK, t, err)
	})

	g.POST("/:id/comments", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var body struct {
			Body string `json:"body"`
		}
		if err := api.Bind(c, &body); err != nil {
			return api.Error(c, err)
		}
		cm, err := svc.AddComment(api.Ctx(c), api.Org(c), id, body.Body)
		return api.Respond(c, http.StatusCreated, cm, err)
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
