package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/starford/berkana/internal"
)

// configureArgs runs the command line with every action replaced by
// configure and returns its outcome.
func configureArgs(t *testing.T, args ...string) (*internal.Config, error) {
	t.Helper()
	var (
		cfg *internal.Config
		err error
	)
	capture := func(mode internal.Mode) cli.ActionFunc {
		return func(_ context.Context, cmd *cli.Command) error {
			cfg, err = configure(cmd, mode)
			return nil
		}
	}

	cmd := newCommand()
	cmd.Action = capture(internal.ModeBuild)
	for _, sub := range cmd.Commands {
		sub.Action = capture(internal.Mode(sub.Name))
	}

	argv := append([]string{"berkana", "--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...)
	if runErr := cmd.Run(context.Background(), argv); runErr != nil {
		t.Fatalf("run %v: %v", args, runErr)
	}
	return cfg, err
}

func TestConfigure_Defaults(t *testing.T) {
	cfg, err := configureArgs(t, "build")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
}

func TestConfigure_Overrides(t *testing.T) {
	root := t.TempDir()
	cfg, err := configureArgs(t, "--root", root, "serve", "--port", "9090")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Site.Root != root {
		t.Errorf("root = %q, want %q", cfg.Site.Root, root)
	}
	if cfg.App.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.App.HTTP.Port)
	}
}

func TestConfigure_InvalidOverrideRejected(t *testing.T) {
	if _, err := configureArgs(t, "serve", "--port", "70000"); err == nil {
		t.Error("expected out-of-range port to fail validation")
	}
}
