package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cmms.GO/app"
)

var rootCmd = &cobra.Command{
	Use:           "cmms",
	Short:         "Maintenance scheduling and work order engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute applies registered commands and runs the CLI.
func Execute() {
	Apply()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// WithApp bootstraps the App for a command and tears it down afterwards.
func WithApp(fn func(c *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		a, cleanup, err := app.Bootstrap()
		if err != nil {
			return err
		}
		defer cleanup()
		return fn(c, a, args)
	}
}
