// Package resolvers implements the Query fields. Every field is scoped to
// the organization carried by the request context.
package resolvers

import (
	"context"
	"encoding/json"
	"strings"

	gql "github.com/graph-gophers/graphql-go"

	"cmms.GO/app"
	"cmms.GO/graphql"
	"cmms.GO/graphql/models"
	"cmms.GO/graphql/registry"
	woEntity "cmms.GO/model/entity/workorder"
	woRepo "cmms.GO/model/repository/workorder"
)

const maxPageSize = 200

type Resolver struct {
	app *app.App
}

func New(a *app.App) *Resolver {
	return &Resolver{app: a}
}

type IDArgs struct {
	ID gql.ID
}

func (r *Resolver) WorkOrder(ctx context.Context, args IDArgs) (*models.WorkOrder, error) {
	org, err := graphql.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	id, err := graphql.ParseID("id", args.ID)
	if err != nil {
		return nil, err
	}
	d, err := r.app.WorkOrders.Detail(ctx, org, id)
	if err != nil {
		return nil, err
	}
	return models.NewWorkOrder(d.WorkOrder), nil
}

type WorkOrdersArgs struct {
	Status  *[]string
	AssetID *gql.ID
	Limit   int32
}

func (r *Resolver) WorkOrders(ctx context.Context, args WorkOrdersArgs) ([]*models.WorkOrder, error) {
	org, err := graphql.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	f := woRepo.ListFilter{Limit: pageSize(args.Limit)}
	if args.Status != nil {
		for _, s := range *args.Status {
			f.Status = append(f.Status, woEntity.Status(strings.ToUpper(s)))
		}
	}
	if args.AssetID != nil {
		id, err := graphql.ParseID("assetId", *args.AssetID)
		if err != nil {
			return nil, err
		}
		f.AssetID = &id
	}
	items, _, err := r.app.WorkOrders.List(ctx, org, f)
	if err != nil {
		return nil, err
	}
	out := make([]*models.WorkOrder, len(items))
	for i := range items {
		out[i] = models.NewWorkOrder(&items[i])
	}
	return out, nil
}

type DuePMsArgs struct {
	DaysAhead int32
}

func (r *Resolver) DuePMs(ctx context.Context, args DuePMsArgs) ([]*models.PM, error) {
	org, err := graphql.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	items, err := r.app.PM.ListDue(ctx, org, int(args.DaysAhead))
	if err != nil {
		return nil, err
	}
	out := make([]*models.PM, len(items))
	for i := range items {
		out[i] = models.NewPM(&items[i])
	}
	return out, nil
}

type LowStockArgs struct {
	StoreroomID *gql.ID
}

func (r *Resolver) LowStock(ctx context.Context, args LowStockArgs) ([]*models.StockLevel, error) {
	org, err := graphql.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	var storeroom *uint
	if args.StoreroomID != nil {
		id, err := graphql.ParseID("storeroomId", *args.StoreroomID)
		if err != nil {
			return nil, err
		}
		storeroom = &id
	}
	items, err := r.app.Inventory.LowStock(ctx, org, storeroom)
	if err != nil {
		return nil, err
	}
	out := make([]*models.StockLevel, len(items))
	for i := range items {
		out[i] = models.NewStockLevel(&items[i])
	}
	return out, nil
}

func (r *Resolver) CycleCount(ctx context.Context, args IDArgs) (*models.CycleCount, error) {
	org, err := graphql.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	id, err := graphql.ParseID("id", args.ID)
	if err != nil {
		return nil, err
	}
	d, err := r.app.CycleCounts.Get(ctx, org, id)
	if err != nil {
		return nil, err
	}
	return models.NewCycleCount(d.Session, d.Lines), nil
}

func (r *Resolver) Schedulers(ctx context.Context) ([]*models.SchedulerStatus, error) {
	org, err := graphql.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	st, err := r.app.Control.Status(ctx, org)
	if err != nil {
		return nil, err
	}
	out := make([]*models.SchedulerStatus, len(st))
	for i := range st {
		out[i] = models.NewSchedulerStatus(st[i])
	}
	return out, nil
}

// ExtensionArgs for _extension(name, args).
type ExtensionArgs struct {
	Name string
	Args *string
}

// Extension dispatches to resolvers registered in graphql/registry. Args
// and result travel as JSON strings.
func (r *Resolver) Extension(ctx context.Context, args ExtensionArgs) (*string, error) {
	var m map[string]interface{}
	if args.Args != nil && *args.Args != "" {
		if err := json.Unmarshal([]byte(*args.Args), &m); err != nil {
			return nil, err
		}
	}
	if m == nil {
		m = make(map[string]interface{})
	}
	out, err := registry.Resolve(ctx, r.app, args.Name, m)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func pageSize(n int32) int {
	if n <= 0 {
		return 20
	}
	if n > maxPageSize {
		return maxPageSize
	}
	return int(n)
}
