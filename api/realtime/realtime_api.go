package realtime

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"cmms.GO/api"
	"cmms.GO/app"
	"cmms.GO/core/signal"
	invEntity "cmms.GO/model/entity/inventory"
	pmEntity "cmms.GO/model/entity/pm"
	woEntity "cmms.GO/model/entity/workorder"
	woRepo "cmms.GO/model/repository/workorder"
	"cmms.GO/service/scheduler"
)

func init() {
	api.RegisterModule(RegisterRealtimeRoutes)
}

// Overview is the maintenance board: what is open, due and short.
type Overview struct {
	OpenWorkOrders int64                  `json:"open_work_orders"`
	InProgress     int64                  `json:"in_progress"`
	DuePMs         []pmEntity.Definition  `json:"due_pms"`
	LowStock       []invEntity.StockLevel `json:"low_stock"`
	Schedulers     []scheduler.OrgStatus  `json:"schedulers"`
	Signals        []signal.Signal        `json:"signals"`
}

var openStatuses = []woEntity.Status{
	woEntity.StatusDraft, woEntity.StatusWaitingApproval, woEntity.StatusApproved,
	woEntity.StatusScheduled, woEntity.StatusInProgress, woEntity.StatusOnHold,
}

// RegisterRealtimeRoutes serves the overview, fetching its parts in parallel.
func RegisterRealtimeRoutes(apiGroup *echo.Group, a *app.App) {
	g := apiGroup.Group("/realtime")

	// GET /api/realtime/overview?days_ahead=7
	g.GET("/overview", func(c echo.Context) error {
		start := time.Now()
		days, err := api.QueryInt(c, "days_ahead", 7)
		if err != nil {
			return api.Error(c, err)
		}
		ctx, org := api.Ctx(c), api.Org(c)

		var out Overview
		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			var err error
			_, out.OpenWorkOrders, err = a.WorkOrders.List(ctx, org, woRepo.ListFilter{Status: openStatuses, Limit: 1})
			return err
		})
		eg.Go(func() error {
			var err error
			_, out.InProgress, err = a.WorkOrders.List(ctx, org, woRepo.ListFilter{Status: []woEntity.Status{woEntity.StatusInProgress}, Limit: 1})
			return err
		})
		eg.Go(func() error {
			var err error
			out.DuePMs, err = a.PM.ListDue(ctx, org, days)
			return err
		})
		eg.Go(func() error {
			var err error
			out.LowStock, err = a.Inventory.LowStock(ctx, org, nil)
			return err
		})
		eg.Go(func() error {
			var err error
			out.Schedulers, err = a.Control.Status(ctx, org)
			return err
		})
		if err := eg.Wait(); err != nil {
			return api.Error(c, err)
		}

		out.Signals = []signal.Signal{}
		for _, s := range a.Recent.Signals() {
			if s.OrganizationID == org {
				out.Signals = append(out.Signals, s)
			}
		}

		duration := time.Since(start).Milliseconds()
		c.Response().Header().Set("X-Request-Duration-ms", strconv.FormatInt(duration, 10))
		return c.JSON(http.StatusOK, out)
	})
}
