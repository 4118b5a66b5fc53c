package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "replydesk"
	app.Usage = "Reply tracking service for X accounts"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to the toml configuration file",
		},
	}
	app.Commands = []*cli.Command{
		{
			Action:      server.startApi,
			Name:        "api",
			Usage:       "Start the HTTP API",
			Category:    "Api",
			Description: `Serves the OAuth handshake, account, poll and reply endpoints.`,
		},
		{
			Action:      server.startPoller,
			Name:        "poller",
			Usage:       "Start the background reply poller",
			Category:    "Worker",
			Description: `Polls every connected account on a fixed cadence, backing off on rate limits.`,
		},
		{
			Action:      server.startMigrate,
			Name:        "migrate",
			Usage:       "Create or update the database schema",
			Category:    "Database",
		},
	}

	s.app = app
}
