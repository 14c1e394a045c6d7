package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cmms.GO/app"
	"cmms.GO/core/actor"
	"cmms.GO/service/scheduler"
)

var (
	schedulerName string
	schedulerOrg  uint
)

func runScheduler(name string) *cobra.Command {
	return &cobra.Command{
		Use:   name + ":run",
		Short: "Run one " + name + " scheduler scan now and print the result",
		RunE: WithApp(func(c *cobra.Command, a *app.App, _ []string) error {
			loopName := scheduler.NamePM
			if name == "cyclecount" {
				loopName = scheduler.NameCycleCount
			}
			l, _ := a.Schedulers.Get(loopName)
			res, err := l.Tick(actor.System(c.Context()))
			if err != nil {
				return err
			}
			return printJSON(c, res)
		}),
	}
}

func pauseCmd(paused bool) *cobra.Command {
	use, verb := "scheduler:pause", "Pause"
	if !paused {
		use, verb = "scheduler:resume", "Resume"
	}
	c := &cobra.Command{
		Use:   use,
		Short: verb + " a scheduler for one organization (--org) or, without --org, in this process",
		RunE: WithApp(func(c *cobra.Command, a *app.App, _ []string) error {
			if schedulerOrg == 0 {
				fmt.Fprintln(c.ErrOrStderr(), "no --org given: the loop flag only lasts for this process")
			}
			if err := a.Control.SetPaused(c.Context(), schedulerName, schedulerOrg, paused); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "%s paused=%v\n", schedulerName, paused)
			return nil
		}),
	}
	c.Flags().StringVarP(&schedulerName, "scheduler", "s", scheduler.NamePM, "pm or cycle_count")
	c.Flags().UintVar(&schedulerOrg, "org", 0, "organization id")
	return c
}

var schedulerStatusCmd = &cobra.Command{
	Use:   "scheduler:status",
	Short: "Print scheduler status for an organization",
	RunE: WithApp(func(c *cobra.Command, a *app.App, _ []string) error {
		st, err := a.Control.Status(c.Context(), schedulerOrg)
		if err != nil {
			return err
		}
		return printJSON(c, st)
	}),
}

func printJSON(c *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(c.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	schedulerStatusCmd.Flags().UintVar(&schedulerOrg, "org", 0, "organization id")
	rootCmd.AddCommand(
		runScheduler("pm"),
		runScheduler("cyclecount"),
		pauseCmd(true),
		pauseCmd(false),
		schedulerStatusCmd,
	)
}
