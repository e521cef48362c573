// Copyright 2025 The pbpctrl Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package controller wires the ambient stack (logging, config, metrics,
// debug server) around one rpc.Dispatcher and exposes the resulting
// maestro.Device to a command. It owns exactly one transport and one
// channel, per spec Non-goals.
package controller

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/pbpctrl/maestro/calllog"
	"github.com/pbpctrl/maestro/client"
	"github.com/pbpctrl/maestro/common"
	"github.com/pbpctrl/maestro/confengine"
	"github.com/pbpctrl/maestro/hdlc"
	"github.com/pbpctrl/maestro/logger"
	"github.com/pbpctrl/maestro/maestro"
	"github.com/pbpctrl/maestro/rpc"
	"github.com/pbpctrl/maestro/server"
)

func setupLogger(conf *confengine.Config) error {
	var opts logger.Options
	if err := conf.UnpackChild("logger", &opts); err != nil {
		return err
	}

	if opts.Filename == "" {
		opts.Filename = "pbpctrl.log"
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 10
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 7
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 100
	}

	logger.SetOptions(opts)
	return nil
}

// openTransport opens the configured device as the dispatcher's byte
// transport. It never attempts to pair, bind or otherwise acquire an RFCOMM
// channel itself (spec Non-goals): Device must already be a connected
// byte-oriented file the caller (or rfcomm(8)) set up in advance.
func openTransport(cfg TransportConfig) (io.ReadWriteCloser, error) {
	if cfg.Device == "" {
		return nil, errors.New("controller: transport.device is required")
	}
	f, err := os.OpenFile(cfg.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "opening transport device %q", cfg.Device)
	}
	return f, nil
}

// Controller owns the transport, dispatcher, device surface and debug
// server for one run of the program.
type Controller struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       Config
	buildInfo common.BuildInfo

	transport io.ReadWriteCloser
	disp      *rpc.Dispatcher
	device    *maestro.Device
	sink      *calllog.Sinker
	svr       *server.Server
}

// New assembles a Controller from conf. It opens the transport but starts
// neither the dispatcher nor the debug server; call Start for that.
func New(conf *confengine.Config, buildInfo common.BuildInfo) (*Controller, error) {
	if err := setupLogger(conf); err != nil {
		return nil, err
	}

	var cfg Config
	if err := conf.UnpackChild("controller", &cfg); err != nil {
		return nil, err
	}
	cfg.Dispatcher.applyDefaults()

	transport, err := openTransport(cfg.Transport)
	if err != nil {
		return nil, err
	}

	var sink *calllog.Sinker
	var onComplete func(rpc.Record)
	if cfg.CallLog.Enabled {
		sink = calllog.New(cfg.CallLog)
		onComplete = sink.Record
	}

	disp := rpc.New(transport, rpc.Config{
		ChannelID: cfg.Dispatcher.ChannelID,
		Frame: hdlc.Config{
			Address:      hdlc.DefaultAddress,
			Control:      hdlc.DefaultControl,
			MaxFrameSize: cfg.Dispatcher.MaxFrameSize,
		},
		StreamQueueSize: cfg.Dispatcher.StreamQueueSize,
		MaxInFlight:     cfg.Dispatcher.MaxInFlight,
		OnComplete:      onComplete,
	})

	cl := client.New(disp, cfg.Dispatcher.DefaultTimeout)
	device := maestro.NewDevice(cl)

	svr, err := server.New(conf)
	if err != nil {
		transport.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		buildInfo: buildInfo,
		transport: transport,
		disp:      disp,
		device:    device,
		sink:      sink,
		svr:       svr,
	}, nil
}

// Device returns the typed Maestro surface a command issues calls through.
func (c *Controller) Device() *maestro.Device {
	return c.device
}

// Start launches the dispatcher's reader goroutine and, if configured, the
// debug/metrics HTTP server.
func (c *Controller) Start() error {
	c.setupServer()
	c.disp.Start()

	if c.svr != nil {
		go func() {
			err := c.svr.ListenAndServe()
			if err != nil && !errors.Is(err, io.EOF) {
				logger.Errorf("failed to start server: %v", err)
			}
		}()
	}

	go c.recordUptimeLoop()
	return nil
}

func (c *Controller) recordUptimeLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.recordMetrics()
		case <-c.ctx.Done():
			return
		}
	}
}

var processStarted = time.Now()

func (c *Controller) recordMetrics() {
	uptime.Set(time.Since(processStarted).Seconds())
	buildInfoMetric.WithLabelValues(c.buildInfo.Version, c.buildInfo.GitHash, c.buildInfo.Time).Set(1)
	oldestCallAge.Set(float64(c.disp.OldestCallAge()))
}

// Reload re-applies the logger section of conf. The dispatcher itself
// carries no reloadable state: there is no reconnect/resume across
// transport loss, only a single transport opened once at startup.
func (c *Controller) Reload(conf *confengine.Config) error {
	return setupLogger(conf)
}

// Stop tears down the dispatcher (which fans TransportClosed out to every
// in-flight call), closes the call-log sink, and stops background work.
func (c *Controller) Stop() {
	if err := c.disp.Close(); err != nil {
		logger.Errorf("error closing dispatcher: %v", err)
	}
	if c.sink != nil {
		if err := c.sink.Close(); err != nil {
			logger.Errorf("error closing call log: %v", err)
		}
	}
	c.cancel()
}
