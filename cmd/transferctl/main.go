// Command transferctl searches transfers, keeps a local cart and checks it out.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/example/transfer-booking/internal/config"
)

func main() {
	_ = godotenv.Load()
	if err := newApp(config.LoadClientConfig()).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp(cfg config.ClientConfig) *cli.App {
	return &cli.App{
		Name:  "transferctl",
		Usage: "search and book airport and city transfers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: cfg.APIBase, Usage: "API base URL"},
			&cli.StringFlag{Name: "token", Value: cfg.Token, Usage: "session token from `transferctl login`"},
			&cli.StringFlag{Name: "cart", Value: cfg.CartPath, Usage: "cart file"},
		},
		Commands: []*cli.Command{
			searchCommand(),
			cartCommand(),
			checkoutCommand(),
			lookupCommand(),
			loginCommand(),
		},
	}
}
