package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"cmms.GO/app"
	"cmms.GO/cron"
)

var jobName string

var cronStartCmd = &cobra.Command{
	Use:   "cron:start",
	Short: "Start the cron scheduler or run a single job by name",
	RunE: WithApp(func(c *cobra.Command, a *app.App, args []string) error {
		if jobName != "" {
			name := strings.ToLower(jobName)
			fmt.Fprintf(c.OutOrStdout(), "Running cron job: %s\n", name)
			return cron.RunJob(c.Context(), a, name, args...)
		}
		runner, err := cron.StartCron(a)
		if err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), "Cron scheduler started. Press Ctrl+C to exit.")
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		// waits for running jobs
		<-runner.Stop().Done()
		return nil
	}),
}

func init() {
	cronStartCmd.Flags().StringVarP(&jobName, "job", "j", "", "Run a single cron job by name and exit")
	rootCmd.AddCommand(cronStartCmd)
}
