package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/berkana/internal"
	pkgconfig "github.com/starford/berkana/pkg/config"
)

var version = "dev"

// runMode returns the action of a subcommand.
func runMode(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := configure(cmd, mode)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithVersion(version),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}

		return nil
	}
}

// configure loads the config file, applies flag overrides and validates
// the result.
func configure(cmd *cli.Command, mode internal.Mode) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if root := cmd.String("root"); root != "" {
		cfg.Site.Root = root
	}
	if mode == internal.ModeServe && cmd.IsSet("port") {
		cfg.App.HTTP.Port = int(cmd.Int("port"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "berkana",
		Usage:   "Build the JSON manifest of a Markdown notes site, incrementally",
		Version: version,
		Action:  runMode(internal.ModeBuild),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (built-in defaults when missing)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Site repository root, overrides site.root",
				Sources: cli.EnvVars("BERKANA_ROOT"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build the manifest once (default)",
				Action: runMode(internal.ModeBuild),
			},
			{
				Name:   "watch",
				Usage:  "Build, then rebuild whenever content or the profile changes",
				Action: runMode(internal.ModeWatch),
			},
			{
				Name:   "serve",
				Usage:  "Watch and serve the site with a preview API and live reload events",
				Action: runMode(internal.ModeServe),
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "HTTP port, overrides app.http.port",
					},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve read-only MCP tools over stdio",
				Action: runMode(internal.ModeMCP),
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
