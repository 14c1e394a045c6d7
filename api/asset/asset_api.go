package asset

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"cmms.GO/api"
	"cmms.GO/app"
	assetEntity "cmms.GO/model/entity/asset"
)

func init() {
	api.RegisterModule(RegisterAssetRoutes)
}

type assetRequest struct {
	AssetNum    string                  `json:"asset_num"`
	Name        string                  `json:"name"`
	Status      assetEntity.Status      `json:"status"`
	Criticality assetEntity.Criticality `json:"criticality"`
	Category    string                  `json:"category"`
}

type readingRequest struct {
	Name    string     `json:"name"`
	Reading float64    `json:"reading"`
	ReadAt  *time.Time `json:"read_at"`
}

func RegisterAssetRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/assets")
	svc := a.Assets

	g.POST("", func(c echo.Context) error {
		var in assetRequest
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		as := &assetEntity.Asset{
			OrganizationID: api.Org(c),
			AssetNum:       in.AssetNum,
			Name:           in.Name,
			Status:         in.Status,
			Criticality:    in.Criticality,
			Category:       in.Category,
		}
		err := svc.Create(api.Ctx(c), as)
		return api.Respond(c, http.StatusCreated, as, err)
	})

	g.GET("/:id", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		as, err := svc.Get(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, as, err)
	})

	g.GET("/:id/meters", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		items, err := svc.Meters(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, echo.Map{"items": items}, err)
	})

	g.POST("/:id/meters", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		var in readingRequest
		if err := api.Bind(c, &in); err != nil {
			return api.Error(c, err)
		}
		m, err := svc.RecordMeterReading(api.Ctx(c), api.Org(c), id, in.Name, in.Reading, in.ReadAt)
		return api.Respond(c, http.StatusOK, m, err)
	})

	g.GET("/:id/downtime", func(c echo.Context) error {
		id, err := api.ID(c, "id")
		if err != nil {
			return api.Error(c, err)
		}
		items, err := svc.Downtime(api.Ctx(c), api.Org(c), id)
		return api.Respond(c, http.StatusOK, echo.Map{"items": items}, err)
	})
}
