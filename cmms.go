//go:build !cli
// +build !cli

package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	_ "cmms.GO/custom"

	"cmms.GO/app"
	"cmms.GO/cron"
	"cmms.GO/server"
)

func main() {
	a, cleanup, err := app.Bootstrap()
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup:", err)
		os.Exit(1)
	}
	defer cleanup()

	// scheduler timers run in every instance; the lease keeps scans single
	runner, err := cron.StartCron(a)
	if err != nil {
		a.Log.Error("cron", zap.Error(err))
		return
	}
	defer runner.Stop()

	if err := server.Run(a, a.Config.Port); err != nil {
		a.Log.Error("server stopped", zap.Error(err))
	}
}
