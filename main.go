// Package main provides the RoboMap navigation server.
//
// The binary exposes one navigation stack over several surfaces: a REST API
// with websocket telemetry and an /mcp endpoint (serve), an MCP stdio server
// (mcp), and offline tools for floor plans (plan, validate). The serve
// command can optionally publish the API through an ngrok tunnel.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "RoboMap Navigation Server"
)

const defaultConfigDir = "configs"

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		// Only log if it's not a "file not found" error
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "robomap",
		Usage:   "grid navigation engine for indoor robots",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "include file and line in log output",
				Sources: cli.EnvVars("ROBOMAP_DEBUG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			planCommand(),
			validateCommand(),
		},
	}
}

func planFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config-dir",
			Value:   defaultConfigDir,
			Usage:   "directory holding floor plan files",
			Sources: cli.EnvVars("CONFIG_DIR"),
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "floor plan name in the config dir, or a path to a plan file",
			Sources: cli.EnvVars("ROBOMAP_CONFIG"),
		},
	}
}

func stackFlags(simulate bool) []cli.Flag {
	return append(planFlags(),
		&cli.BoolFlag{
			Name:    "simulate",
			Value:   simulate,
			Usage:   "drive a simulated cart instead of the serial device",
			Sources: cli.EnvVars("ROBOMAP_SIMULATE"),
		},
		&cli.BoolFlag{
			Name:    "local-dispatch",
			Usage:   "serve targets from the built-in dispatch board",
			Sources: cli.EnvVars("ROBOMAP_LOCAL_DISPATCH"),
		},
		&cli.StringFlag{
			Name:    "port",
			Usage:   "serial port of the sensor and actuator (overrides the plan)",
			Sources: cli.EnvVars("ROBOMAP_SERIAL_PORT"),
		},
		&cli.StringFlag{
			Name:    "db",
			Usage:   "SQLite journal file (empty keeps the journal in memory)",
			Sources: cli.EnvVars("ROBOMAP_DB"),
		},
	)
}

func runtimeOptionsFrom(cmd *cli.Command) runtimeOptions {
	return runtimeOptions{
		Simulate:      cmd.Bool("simulate"),
		LocalDispatch: cmd.Bool("local-dispatch"),
		Port:          cmd.String("port"),
		DBPath:        cmd.String("db"),
	}
}

func serveCommand() *cli.Command {
	flags := append(stackFlags(false),
		&cli.StringFlag{
			Name:    "addr",
			Value:   "localhost:8080",
			Usage:   "HTTP listen address",
			Sources: cli.EnvVars("ROBOMAP_ADDR"),
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "publish the API through an ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "custom ngrok domain",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "run the navigation loop behind the REST, websocket and MCP endpoints",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			plan, err := loadPlan(cmd.String("config-dir"), cmd.String("config"))
			if err != nil {
				return err
			}

			rt, err := buildRuntime(plan, runtimeOptionsFrom(cmd))
			if err != nil {
				return err
			}
			defer func() {
				if err := rt.Close(); err != nil {
					log.Printf("Failed to close runtime: %v", err)
				}
			}()

			log.Printf("Starting %s v%s (plan: %s, %dx%d cells)", AppName, Version, plan.Name, rt.grid.Rows(), rt.grid.Cols())
			return runHTTPServer(ctx, rt, httpOptions{
				Addr:        cmd.String("addr"),
				Ngrok:       cmd.Bool("ngrok"),
				NgrokAuth:   cmd.String("ngrok-auth"),
				NgrokDomain: cmd.String("ngrok-domain"),
			})
		},
	}
}

func mcpCommand() *cli.Command {
	flags := append(stackFlags(true),
		&cli.StringFlag{
			Name:    "api-url",
			Value:   "http://localhost:8080",
			Usage:   "running API server to reuse before starting an internal one",
			Sources: cli.EnvVars("ROBOMAP_API_URL"),
		},
	)

	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP server over stdio",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStdioMCP(ctx, cmd.String("api-url"), func() (*navRuntime, error) {
				plan, err := loadPlan(cmd.String("config-dir"), cmd.String("config"))
				if err != nil {
					return nil, err
				}
				return buildRuntime(plan, runtimeOptionsFrom(cmd))
			})
		},
	}
}

func planCommand() *cli.Command {
	flags := append(planFlags(),
		&cli.StringFlag{
			Name:  "from",
			Usage: "start cell as row,col or a POI id (defaults to the plan start)",
		},
		&cli.StringFlag{
			Name:     "to",
			Usage:    "goal cell as row,col or a POI id",
			Required: true,
		},
		&cli.BoolFlag{
			Name:  "render",
			Usage: "print the grid with the route drawn in",
		},
	)

	return &cli.Command{
		Name:  "plan",
		Usage: "compute a route on a floor plan without moving anything",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			plan, err := loadPlan(cmd.String("config-dir"), cmd.String("config"))
			if err != nil {
				return err
			}

			report, err := planRoute(plan, cmd.String("from"), cmd.String("to"))
			if err != nil {
				return err
			}
			report.print(os.Stdout, cmd.Bool("render"))
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check every floor plan in a directory",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   defaultConfigDir,
				Usage:   "directory holding floor plan files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.String("config-dir")
			if cmd.Args().Present() {
				dir = cmd.Args().First()
			}

			results, err := validatePlans(dir)
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Printf("FAIL %s: %v\n", r.File, r.Err)
					continue
				}
				fmt.Printf("OK   %s (%s, %dx%d, %d pois)\n", r.File, r.Name, r.Rows, r.Cols, r.POIs)
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d plans invalid", failed, len(results)), 1)
			}
			return nil
		},
	}
}
