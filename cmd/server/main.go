package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/buildinfo"
	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()

	migrateOnly := parseMigrateOnly(os.Args[1:])

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if migrateOnly {
		if err := app.Migrate(ctx); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

func parseMigrateOnly(args []string) bool {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	migrateOnly := fs.Bool("migrate-only", false, "apply migrations and exit")
	_ = fs.Parse(flagx.FilterArgs(args, []string{"-migrate-only"}))
	return *migrateOnly
}
