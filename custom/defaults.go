// Package custom holds site extensions: cycle count default plans seeded by
// cron or CLI, and a stock balance lookup over GraphQL. It registers through
// the same hooks a third-party package would.
package custom

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cmms.GO/app"
	"cmms.GO/cmd"
	"cmms.GO/core/apperr"
	"cmms.GO/cron"
	"cmms.GO/graphql"
	gqlregistry "cmms.GO/graphql/registry"
	invEntity "cmms.GO/model/entity/inventory"
)

const JobDefaultPlans = "cycle_count_defaults"

func init() {
	gqlregistry.Register("stockBalance", stockBalance)

	cron.Register(JobDefaultPlans, "@daily", func(ctx context.Context, a *app.App, _ ...string) error {
		_, err := SeedDefaultPlans(ctx, a)
		return err
	})

	cmd.Register(&cobra.Command{
		Use:   "cyclecount:defaults",
		Short: "Create the weekly and monthly cycle count plans for every organization with a default storeroom",
		RunE: cmd.WithApp(func(c *cobra.Command, a *app.App, _ []string) error {
			n, err := SeedDefaultPlans(c.Context(), a)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "created %d plan(s)\n", n)
			return nil
		}),
	})
}

// SeedDefaultPlans runs EnsureDefaultPlans for each organization that has a
// default storeroom and returns how many plans were created. One failing
// organization does not stop the others.
func SeedDefaultPlans(ctx context.Context, a *app.App) (int, error) {
	var orgs []uint
	err := a.DB.WithContext(ctx).Model(&invEntity.Storeroom{}).
		Where("is_default = ?", true).
		Distinct().Pluck("organization_id", &orgs).Error
	if err != nil {
		return 0, err
	}
	created := 0
	var firstErr error
	for _, org := range orgs {
		plans, err := a.CycleCounts.EnsureDefaultPlans(ctx, org)
		if err != nil {
			a.Log.Error("default cycle count plans failed", zap.Uint("organization_id", org), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created += len(plans)
	}
	return created, firstErr
}

// stockBalance answers _extension(name:"stockBalance", args:"{\"part_id\":1,\"storeroom_id\":2}").
func stockBalance(ctx context.Context, a *app.App, args map[string]interface{}) (interface{}, error) {
	org, err := graphql.OrganizationID(ctx)
	if err != nil {
		return nil, err
	}
	part, room := toUint(args["part_id"]), toUint(args["storeroom_id"])
	if part == 0 || room == 0 {
		return nil, apperr.Validation("args", "part_id and storeroom_id are required")
	}
	sl, err := a.Inventory.StockLevel(ctx, org, part, room)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"current_balance":    sl.CurrentBalance,
		"reserved_quantity":  sl.ReservedQuantity,
		"available_quantity": sl.AvailableQuantity,
		"below_reorder":      sl.ReorderPoint > 0 && sl.CurrentBalance <= sl.ReorderPoint,
	}, nil
}

func toUint(v interface{}) uint {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return uint(n)
		}
	case string:
		if id, err := strconv.ParseUint(n, 10, 64); err == nil {
			return uint(id)
		}
	}
	return 0
}
