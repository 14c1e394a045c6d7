package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
)

func TestRegistry_Register_Apply(t *testing.T) {
	out := &bytes.Buffer{}
	testCmd := &cobra.Command{
		Use: "test:registry",
		Run: func(c *cobra.Command, args []string) {
			out.WriteString("ok")
		},
	}
	Register(testCmd)
	Apply()

	rootCmd.SetOut(out)
	rootCmd.SetArgs([]string{"test:registry"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.String() != "ok" {
		t.Errorf("output = %q, want ok", out.String())
	}
}

func TestBuiltinCommands(t *testing.T) {
	for _, name := range []string{
		"serve", "cron:start", "db:migrate", "inventory:import",
		"pm:run", "cyclecount:run", "scheduler:pause", "scheduler:resume", "scheduler:status",
		"auth:token:create", "auth:token:revoke",
	} {
		c, _, err := rootCmd.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("command %s not registered (%v)", name, err)
		}
	}
}

func TestSchedulerPause_Flags(t *testing.T) {
	c, _, err := rootCmd.Find([]string{"scheduler:pause"})
	if err != nil {
		t.Fatal(err)
	}
	if f := c.Flags().Lookup("scheduler"); f == nil || f.DefValue != "pm" {
		t.Errorf("scheduler flag = %+v", f)
	}
	if c.Flags().Lookup("org") == nil {
		t.Error("missing --org")
	}
}
