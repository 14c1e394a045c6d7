package stock

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"cmms.GO/api"
	"cmms.GO/app"
	"cmms.GO/core/apperr"
	invEntity "cmms.GO/model/entity/inventory"
	"cmms.GO/service/inventory"
)

func init() {
	api.RegisterModule(RegisterStockRoutes)
}

func RegisterStockRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/inventory")
	svc := a.Inventory

	g.POST("/parts", func(c echo.Context) error {
		var p invEntity.Part
		if err := api.Bind(c, &p); err != nil {
			return api.Error(c, err)
		}
		p.ID, p.OrganizationID = 0, api.Org(c)
		err := svc.CreatePart(api.Ctx(c), &p)
		return api.Respond(c, http.StatusCreated, &p, err)
	})

	g.POST("/storerooms", func(c echo.Context) error {
		var sr invEntity.Storeroom
		if err := api.Bind(c, &sr); err != nil {
			return api.Error(c, err)
		}
		sr.ID, sr.OrganizationID = 0, api.Org(c)
		err := svc.CreateStoreroom(api.Ctx(c), &sr)
		return api.Respond(c, http.StatusCreated, &sr, err)
	})

	// PUT /api/inventory/stock-levels – replenishment settings for one part/storeroom
	g.PUT("/stock-levels", func(c echo.Context) error {
		var body struct {
			PartID      uint `json:"part_id"`
			StoreroomID uint `json:"storeroom_id"`
			inventory.StockSettings
		}
		if err := api.Bind(c, &body); err != nil {
			return api.Error(c, err)
		}
		sl, err := svc.UpsertStockLevel(api.Ctx(c), api.Org(c), body.PartID, body.StoreroomID, body.StockSettings)
		return api.Respond(c, http.StatusOK, sl, err)
	})

	g.GET("/stock", func(c echo.Context) error {
		partID, err := api.QueryInt(c, "part_id", 0)
		if err != nil {
			return api.Error(c, err)
		}
		storeroomID, err := api.QueryInt(c, "storeroom_id", 0)
		if err != nil {
			return api.Error(c, err)
		}
		if partID <= 0 || storeroomID <= 0 {
			return api.Error(c, apperr.Validation("part_id", "part_id and storeroom_id are required"))
		}
		sl, err := svc.StockLevel(api.Ctx(c), api.Org(c), uint(partID), uint(storeroomID))
		return api.Respond(c, http.StatusOK, sl, err)
	})

	// GET /api/inventory/balances?storeroom_id=1&part_ids=1,2,3
	g.GET("/balances", func(c echo.Context) error {
		storeroomID, err := api.QueryInt(c, "storeroom_id", 0)
		if err != nil {
			return api.Error(c, err)
		}
		var ids []uint
		for _, s := range strings.Split(c.QueryParam("part_ids"), ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			id, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return api.Error(c, apperr.Validation("part_ids", "invalid id %q", s))
			}
			ids = append(ids, uint(id))
		}
		b, err := svc.Balances(api.Ctx(c), api.Org(c), uint(storeroomID), ids)
		return api.Respond(c, http.StatusOK, b, err)
	})

	g.GET("/low-stock", func(c echo.Context) error {
		var storeroom *uint
		if v, err := api.QueryInt(c, "storeroom_id", 0); err != nil {
			return api.Error(c, err)
		} else if v > 0 {
			id := uint(v)
			storeroom = &id
		}
		rows, err := svc.LowStock(api.Ctx(c), api.Org(c), storeroom)
		return api.Respond(c, http.StatusOK, rows, err)
	})

	g.GET("/parts/:id/transactions", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		limit, err := api.QueryInt(c, "limit", 100)
		if err != nil {
			return api.Error(c, err)
		}
		rows, err := svc.Transactions(api.Ctx(c), api.Org(c), id, limit)
		return api.Respond(c, http.StatusOK, rows, err)
	})

	g.POST("/adjustments", func(c echo.Context) error {
		var adj inventory.Adjustment
		if err := api.Bind(c, &adj); err != nil {
			return api.Error(c, err)
		}
		adj.OrganizationID = api.Org(c)
		pt, err := svc.Adjust(api.Ctx(c), adj)
		if err == nil && pt == nil {
			return c.NoContent(http.StatusNoContent)
		}
		return api.Respond(c, http.StatusCreated, pt, err)
	})

	g.DELETE("/reservations/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		if err := svc.ReleaseReservation(api.Ctx(c), api.Org(c), id); err != nil {
			return api.Error(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	})

	po := g.Group("/purchase-orders")

	po.POST("", func(c echo.Context) error {
		var in inventory.POInput
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		out, err := svc.CreatePO(api.Ctx(c), api.Org(c), in)
		return api.Respond(c, http.StatusCreated, out, err)
	})

	po.GET("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		out, err := svc.GetPO(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, out, err)
	})

	po.POST("/:id/transition", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var body struct {
			Status invEntity.POStatus `json:"status"`
		}
		if err := api.Bind(c, &body); err != nil {
			return api.Error(c, err)
		}
		out, err := svc.TransitionPO(api.Ctx(c), api.Org(c), id, invEntity.POStatus(strings.ToUpper(string(body.Status))))
		return api.Respond(c, http.StatusOK, out, err)
	})

	// POST /api/inventory/purchase-orders/:id/receive – all lines or none
	po.POST("/:id/receive", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var body struct {
			Lines []inventory.ReceiptLine `json:"lines"`
		}
		if err := api.Bind(c, &body); err != nil {
			return api.Error(c, err)
		}
		out, err := svc.ReceivePOLines(api.Ctx(c), api.Org(c), id, body.Lines)
		return api.Respond(c, http.StatusOK, out, err)
	})
}
