package main

import (
	"fmt"
	"os"

	"github.com/cnosuke/mcp-crawl/config"
	"github.com/cnosuke/mcp-crawl/logger"
	"github.com/cnosuke/mcp-crawl/server"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	// Version and Revision are replaced when building.
	Version  = "0.0.1"
	Revision = "xxx"

	Name  = "mcp-crawl"
	Usage = "MCP server that crawls pages, sitemaps and documents and extracts structured data"
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s (%s)", Version, Revision)
	app.Name = Name
	app.Usage = Usage

	app.Commands = []*cli.Command{
		{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "Start the MCP server on stdio",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "config",
					Aliases: []string{"c"},
					Value:   "config.yml",
					Usage:   "path to the configuration file",
				},
			},
			Action: func(c *cli.Context) error {
				configPath := c.String("config")
				if _, err := os.Stat(configPath); err != nil {
					// Defaults and environment variables are enough to run.
					configPath = ""
				}

				cfg, err := config.LoadConfig(configPath)
				if err != nil {
					return errors.Wrap(err, "failed to load configuration file")
				}

				if err := logger.InitLogger(cfg.Log.Debug, cfg.Log.Path); err != nil {
					return errors.Wrap(err, "failed to initialize logger")
				}
				defer logger.Sync()

				zap.S().Infow("configuration loaded",
					"config", configPath,
					"proxy", cfg.Crawl.ProxyURL != "",
					"max_urls", cfg.Crawl.MaxURLs)

				return server.Run(cfg, Name, Version, Revision)
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
