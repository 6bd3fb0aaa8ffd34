package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/koding/multiconfig"
	"github.com/nergy-se/antipendel/pkg/app"
	"github.com/nergy-se/antipendel/pkg/config"
	"github.com/nergy-se/antipendel/pkg/version"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()
	err := Run(ctx)
	if err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func loader() *multiconfig.DefaultLoader {
	return multiconfig.New()
}

func Run(ctx context.Context) error {
	config := &config.CliConfig{}
	err := loader().Load(config)
	if err != nil {
		return err
	}
	lvl, err := logrus.ParseLevel(config.LogLevel)
	if err != nil {
		return fmt.Errorf("error setting logrus loglevel: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.WithField("version", version.Version).Info("starting antipendel")

	app := app.New(config)

	err = app.Start(ctx)
	if err != nil {
		return err
	}

	go reloadOnHangup(ctx, app)

	app.Wait()
	return nil
}

// reloadOnHangup reloads the tunables from the configuration on SIGHUP.
func reloadOnHangup(ctx context.Context, a *app.App) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-hup:
			cfg := &config.CliConfig{}
			if err := loader().Load(cfg); err != nil {
				logrus.WithError(err).Error("error reloading config")
				continue
			}
			if err := a.Reload(cfg.Tunables); err != nil {
				logrus.WithError(err).Error("error reloading tunables")
			}
		case <-ctx.Done():
			return
		}
	}
}
