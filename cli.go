//go:build cli
// +build cli

// CLI entry point: go build -tags cli -o cmms-cli .
package main

import (
	_ "cmms.GO/custom"

	"cmms.GO/cmd"
)

func main() {
	cmd.Execute()
}
