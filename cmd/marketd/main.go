package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openmarket-os/marketd/internal/config"
	"github.com/openmarket-os/marketd/internal/interface/web"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Version = Version
	app.Name = "marketd"
	app.Usage = "asset marketplace settlement daemon"
	app.Flags = config.Flags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Println(fmt.Errorf("error: %v", err))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.LoadConfig(c)
	if err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}

	log.Debugf("config: %s", cfg)

	appSvc, err := cfg.AppService()
	if err != nil {
		log.Fatalf("failed to create app service: %s", err)
	}

	log.Info("starting service...")
	if err := appSvc.Start(); err != nil {
		log.Fatalf("failed to start app service: %s", err)
	}

	webSvc := web.NewService(cfg.Port, appSvc)
	if err := webSvc.Start(); err != nil {
		log.Fatalf("failed to start http server: %s", err)
	}

	log.RegisterExitHandler(func() {
		webSvc.Stop()
		appSvc.Stop()
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(
		sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGHUP, os.Interrupt,
	)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}
