// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/osc_bridge/internal/bridge"
	"github.com/relabs-tech/osc_bridge/internal/config"
	"github.com/relabs-tech/osc_bridge/internal/gps"
	"github.com/relabs-tech/osc_bridge/internal/source"
)

// Services is everything one bridge process runs: the send loop, the
// sample source and the optional web API, GPS reader, config watcher and
// MQTT angle mirror.
type Services struct {
	Config     *config.Config
	ConfigPath string
	Bridge     *bridge.Bridge
	Source     source.Source

	angles *anglePublisher
}

// NewServices wires a bridge from cfg. Nothing runs until Run.
func NewServices(cfg *config.Config, configPath string) *Services {
	s := &Services{Config: cfg, ConfigPath: configPath}

	opts := bridge.Options{
		Reference:   cfg.Reference,
		Wrap:        cfg.AngleWrap,
		TrueNorth:   cfg.TrueNorth,
		Gate:        bridge.ChangeGate{Epsilon: cfg.ChangeEpsilon},
		MinInterval: cfg.MinSendInterval,
		Binder:      bridge.UDPBinder(cfg.SendTimeout),
	}
	if cfg.TopicAngles != "" {
		s.angles = newAnglePublisher(cfg.MQTTBroker, cfg.MQTTClientIDBridge+"-angles", cfg.TopicAngles)
		opts.OnSent = s.angles.offer
	}

	s.Bridge = bridge.New(bridge.Settings{
		Axes:           cfg.Axes,
		ResolveTimeout: cfg.ResolveTimeout,
		Transmit:       opts,
	})

	switch cfg.SampleSource {
	case config.SourceMQTT:
		s.Source = source.NewMQTT(source.MQTTOptions{
			Broker:         cfg.MQTTBroker,
			ClientID:       cfg.MQTTClientIDBridge,
			RotationTopic:  cfg.TopicRotation,
			SuspendedTopic: cfg.TopicSuspended,
		})
	default:
		s.Source = source.NewSimulated(cfg.MockSampleInterval)
	}

	if _, err := s.Bridge.ApplyEdit(cfg.OSCHost, strconv.Itoa(cfg.OSCPort)); err != nil {
		log.Printf("bridge: initial destination rejected, output stays off until it is fixed: %v", err)
	}
	return s
}

// Run starts every configured service and blocks until ctx is cancelled
// or one of them fails.
func (s *Services) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	cfg := s.Config

	g.Go(func() error { return s.Bridge.Run(ctx) })
	g.Go(func() error { return s.Source.Run(ctx, s.Bridge) })

	if cfg.WebServerPort != 0 {
		web := NewWebServer(s.Bridge, s.Source, cfg.StatusInterval)
		addr := fmt.Sprintf(":%d", cfg.WebServerPort)
		g.Go(func() error { return web.Run(ctx, addr) })
	}

	if cfg.GPSSerialPort != "" {
		reader := gps.NewReader(s.Bridge.Declination())
		g.Go(func() error {
			// A missing receiver only costs true-north correction.
			if err := reader.Run(ctx, cfg.GPSSerialPort, cfg.GPSBaudRate); err != nil {
				log.Printf("gps: %v", err)
			}
			return nil
		})
	}

	if cfg.WatchConfig && s.ConfigPath != "" {
		g.Go(func() error { return config.Watch(ctx, s.ConfigPath, s.applyReload) })
	}

	if s.angles != nil {
		g.Go(func() error { return s.angles.run(ctx) })
	}

	return g.Wait()
}

// applyReload pushes the live-editable parts of a reloaded config into
// the running bridge.
func (s *Services) applyReload(cfg *config.Config) {
	if _, err := s.Bridge.ApplyEdit(cfg.OSCHost, strconv.Itoa(cfg.OSCPort)); err != nil {
		log.Printf("config: destination not applied: %v", err)
	}
	s.Bridge.SetAxes(cfg.Axes)

	old := s.Config
	if cfg.SampleSource != old.SampleSource || cfg.WebServerPort != old.WebServerPort ||
		cfg.MinSendInterval != old.MinSendInterval || cfg.AngleWrap != old.AngleWrap ||
		cfg.Reference != old.Reference || cfg.GPSSerialPort != old.GPSSerialPort {
		log.Println("config: some changed settings only take effect after a restart")
	}
	s.Config = cfg
}

// RunBridge loads the config and runs the bridge headless until SIGINT or
// SIGTERM.
func RunBridge(configPath string) error {
	if err := config.InitGlobal(configPath); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := NewServices(config.Get(), configPath)
	log.Printf("bridge: starting with %s source", config.Get().SampleSource)
	err := s.Run(ctx)
	log.Println("bridge: shut down")
	return err
}
