package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/buildinfo"
	"github.com/dmitrijs2005/gophauth/internal/client/cli"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

func main() {
	args := os.Args[1:]
	command := flagx.Positional(args, []string{"-a", "-t", "-c", "-config", "--config"})

	if len(command) == 0 {
		buildinfo.PrintBuildData(os.Stdout)
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewApp(cfg).Run(ctx, command); err != nil {
		stop()
		os.Exit(1)
	}
}
