package cmd

import (
	"github.com/spf13/cobra"

	"cmms.GO/app"
	"cmms.GO/cron"
	"cmms.GO/server"
)

var (
	servePort string
	serveCron bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and GraphQL server",
	RunE: WithApp(func(c *cobra.Command, a *app.App, _ []string) error {
		if serveCron {
			runner, err := cron.StartCron(a)
			if err != nil {
				return err
			}
			defer runner.Stop()
		}
		port := servePort
		if port == "" {
			port = a.Config.Port
		}
		return server.Run(a, port)
	}),
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "listen port (default PORT)")
	serveCmd.Flags().BoolVar(&serveCron, "cron", true, "also run the scheduler timers")
	rootCmd.AddCommand(serveCmd)
}
