// Command repd runs the rep token market: the HTTP API, the event stream and
// the journal replay tools.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"rep-protocol/internal/config"
)

func main() {
	app := &cli.App{
		Name:  "repd",
		Usage: "bonding-curve reserve token market",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode (console logs)"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level (debug, info, warn, error)"},
			&cli.StringFlag{Name: "postgres-dsn", Usage: "PostgreSQL connection string (empty uses memory)"},
			&cli.StringFlag{Name: "clickhouse-dsn", Usage: "ClickHouse connection string for the trade series"},
			&cli.StringFlag{Name: "owner", Usage: "System owner address (base58)"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			replayCommand(),
			reportCommand(),
			paramsCommand(),
			addressCommand(),
			quoteCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads .env and the environment, then applies flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadWith(func(cfg *config.Config) {
		if c.IsSet("development") {
			cfg.Development = c.Bool("development")
		}
		if c.IsSet("log-level") {
			cfg.LogLevel = c.String("log-level")
		}
		if c.IsSet("postgres-dsn") {
			cfg.PostgresDSN = c.String("postgres-dsn")
		}
		if c.IsSet("clickhouse-dsn") {
			cfg.ClickhouseDSN = c.String("clickhouse-dsn")
		}
		if c.IsSet("owner") {
			cfg.Owner = c.String("owner")
		}
		if c.IsSet("api-addr") {
			cfg.APIAddr = c.String("api-addr")
		}
		if c.IsSet("metrics-addr") {
			cfg.MetricsAddr = c.String("metrics-addr")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
