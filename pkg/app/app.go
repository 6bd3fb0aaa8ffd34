package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nergy-se/antipendel/pkg/config"
	"github.com/nergy-se/antipendel/pkg/controller"
	"github.com/nergy-se/antipendel/pkg/gpio"
	"github.com/nergy-se/antipendel/pkg/heatpump"
	"github.com/nergy-se/antipendel/pkg/history"
	"github.com/nergy-se/antipendel/pkg/modbusclient"
	"github.com/nergy-se/antipendel/pkg/mqtt"
	"github.com/nergy-se/antipendel/pkg/simulator"
	"github.com/nergy-se/antipendel/pkg/state"
	"github.com/sirupsen/logrus"
)

// Installation is everything the controller reads and writes.
type Installation interface {
	controller.Sensors
	controller.Actuators
	controller.TargetWriter
}

type statusPublisher interface {
	PublishStatus(s state.State)
}

type App struct {
	wg     *sync.WaitGroup
	config *config.CliConfig
	reload chan config.Tunables

	controller *controller.Controller
	status     statusPublisher
	closers    []io.Closer
}

func New(cfg *config.CliConfig) *App {
	return &App{
		wg:     &sync.WaitGroup{},
		config: cfg,
		reload: make(chan config.Tunables, 1),
	}
}

func (a *App) Start(ctx context.Context) error {
	if err := a.config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	inst, err := a.installation()
	if err != nil {
		return err
	}

	publishers, err := a.publishers(ctx)
	if err != nil {
		a.close()
		return err
	}

	a.controller = controller.New(a.config.Tunables, uint64(a.config.TickSeconds), inst, inst, inst, publishers)

	a.wg.Add(1)
	go a.controllerLoop(ctx)
	return nil
}

func (a *App) Wait() {
	a.wg.Wait()
}

// Reload replaces the tunables before the next tick.
func (a *App) Reload(t config.Tunables) error {
	if err := t.Validate(); err != nil {
		return err
	}
	select {
	case a.reload <- t:
	default:
		// replace the pending reload
		select {
		case <-a.reload:
		default:
		}
		a.reload <- t
	}
	return nil
}

func (a *App) installation() (Installation, error) {
	switch a.config.Backend {
	case config.BackendSimulator:
		logrus.Info("using simulated heat pump")
		return simulator.New(a.config.TickSeconds), nil
	}

	board, err := gpio.NewBoard(a.config.GPIO)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, board)

	client := modbusclient.NewTCP(a.config.ModbusAddress, a.config.ModbusSlaveID)
	a.closers = append(a.closers, client)
	return heatpump.NewInstallation(heatpump.New(client, a.config.Registers), board), nil
}

func (a *App) publishers(ctx context.Context) (controller.Publishers, error) {
	var publishers controller.Publishers

	if a.config.MQTTBroker != "" {
		p, err := mqtt.NewRemote(a.config.MQTTBroker, a.config.MQTTPrefix)
		if err != nil {
			return nil, fmt.Errorf("error connecting to mqtt broker: %w", err)
		}
		a.closers = append(a.closers, closerFunc(p.Close))
		publishers = append(publishers, p)
		a.status = p
	} else {
		server, err := mqtt.StartBroker(ctx, a.wg, a.config.MQTTListen)
		if err != nil {
			return nil, err
		}
		p := mqtt.NewEmbedded(server, a.config.MQTTPrefix)
		publishers = append(publishers, p)
		a.status = p
	}

	if a.config.HistoryFile != "" {
		store, err := history.Open(a.config.HistoryFile)
		if err != nil {
			return nil, fmt.Errorf("error opening history: %w", err)
		}
		a.closers = append(a.closers, store)
		publishers = append(publishers, store)
	}
	return publishers, nil
}

func (a *App) controllerLoop(ctx context.Context) {
	defer a.wg.Done()
	defer a.close()

	interval := a.config.Interval()
	delay := nextDelay(time.Now(), interval)
	logrus.Debugf("scheduling first tick in %s", delay)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			timer.Reset(nextDelay(time.Now(), interval))
			a.tick()
		case t := <-a.reload:
			logrus.Info("tunables reloaded")
			a.controller.SetTunables(t)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) tick() {
	start := time.Now()
	a.controller.Tick()
	if a.status != nil {
		a.status.PublishStatus(a.controller.Status())
	}
	logrus.WithFields(logrus.Fields{
		"state":    a.controller.State().String(),
		"duration": time.Since(start),
	}).Trace("tick done")
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logrus.WithError(err).Error("error closing")
		}
	}
	a.closers = nil
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
