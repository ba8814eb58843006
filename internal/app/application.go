package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"aistrackd/internal/broadcast"
	"aistrackd/internal/ingest"
	"aistrackd/internal/logging"
	"aistrackd/internal/pipeline"
	"aistrackd/internal/source"
	"aistrackd/internal/store"
	"aistrackd/internal/track"
)

// Application wires sources, the tracker, storage and the websocket hub
// together and owns their lifecycle.
type Application struct {
	config   Config
	logger   *logrus.Logger
	store    store.Store
	registry *source.Registry
	hub      *broadcast.Hub
	tracker  *track.Tracker
	capture  *logging.Capture
	server   *http.Server
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type boundAdapter struct {
	sourceID string
	name     string
	adapter  ingest.Adapter
}

// NewApplication creates a new application instance
func NewApplication(config Config) *Application {
	ctx, cancel := context.WithCancel(context.Background())

	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the application and blocks until a shutdown signal arrives or
// every source completes.
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting AIS vessel tracker")

	adapters, err := app.initializeComponents()
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	defer app.store.Close()
	if app.capture != nil {
		defer app.capture.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fatal := make(chan error, len(adapters))
	app.run(adapters, fatal)

	select {
	case <-sigChan:
		app.logger.Info("Received shutdown signal")
	case err := <-fatal:
		app.logger.WithError(err).Error("Source failed fatally")
		app.shutdown()
		return err
	}

	app.shutdown()
	return nil
}

// initializeComponents builds storage, the hub, the tracker, the HTTP server
// and one registered source plus pipeline per configured feed.
func (app *Application) initializeComponents() ([]boundAdapter, error) {
	var err error

	app.store, err = store.OpenSQLite(app.config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	app.registry = source.NewRegistry()
	app.hub = broadcast.NewHub(app.logger, broadcast.DefaultQueueSize)
	app.tracker = track.NewTracker(app.logger, app.store, app.registry, app.hub)

	if app.config.CaptureDir != "" {
		app.capture, err = logging.NewCapture(app.config.CaptureDir, app.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize raw capture: %w", err)
		}
	}

	var adapters []boundAdapter
	bind := func(transport, name string, build func(p *pipeline.Pipeline, src *source.Source) ingest.Adapter) {
		src := app.registry.Create(transport, name)
		if app.config.SpoofLimitKM > 0 {
			app.registry.SetSpoofLimit(src.ID, app.config.SpoofLimitKM)
		}
		// A nil *Capture must stay a nil interface for the pipeline's check.
		var capture io.Writer
		if app.capture != nil {
			capture = app.capture
		}
		pipe := pipeline.New(app.logger, app.registry, app.tracker, src.ID, capture)
		adapters = append(adapters, boundAdapter{
			sourceID: src.ID,
			name:     name,
			adapter:  build(pipe, src),
		})
	}

	for _, addr := range app.config.TCPAddrs {
		addr := addr
		bind(source.TypeTCP, "tcp:"+addr, func(p *pipeline.Pipeline, _ *source.Source) ingest.Adapter {
			return ingest.NewTCPAdapter(app.logger, p, addr)
		})
	}
	for _, addr := range app.config.UDPAddrs {
		addr := addr
		bind(source.TypeUDP, "udp:"+addr, func(p *pipeline.Pipeline, _ *source.Source) ingest.Adapter {
			return ingest.NewUDPAdapter(app.logger, p, addr)
		})
	}
	for _, dev := range app.config.SerialDevices {
		dev := dev
		bind(source.TypeSerial, "serial:"+dev, func(p *pipeline.Pipeline, _ *source.Source) ingest.Adapter {
			return ingest.NewSerialAdapter(app.logger, p, dev, app.config.BaudRate)
		})
	}
	for _, path := range app.config.ReplayFiles {
		path := path
		bind(source.TypeFile, "file:"+path, func(p *pipeline.Pipeline, src *source.Source) ingest.Adapter {
			return ingest.NewFileAdapter(app.logger, p, app.registry, src.ID, path)
		})
	}

	if len(adapters) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", broadcast.NewWSServer(app.hub, app.logger))
	mux.HandleFunc("/vessels", app.handleVessels)
	mux.HandleFunc("/sources", app.handleSources)
	app.server = &http.Server{Addr: app.config.ListenAddr, Handler: mux}

	return adapters, nil
}

// run launches the adapters, the HTTP server and the statistics loop.
func (app *Application) run(adapters []boundAdapter, fatal chan<- error) {
	for _, b := range adapters {
		b := b
		app.wg.Add(1)
		go func() {
			defer app.wg.Done()
			err := b.adapter.Run(app.ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				fatal <- fmt.Errorf("source %s: %w", b.name, err)
				return
			}
			app.logger.WithField("source", b.name).Info("Source finished")
		}()
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.logger.WithField("addr", app.config.ListenAddr).Info("HTTP server listening")
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.WithError(err).Error("HTTP server failed")
		}
	}()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.reportStatistics()
	}()

	app.logger.Info("All components started successfully")
}

// reportStatistics reports per-source counters periodically
func (app *Application) reportStatistics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			for _, src := range app.registry.List() {
				app.logger.WithFields(logrus.Fields{
					"source":        src.Name,
					"status":        src.Status,
					"messages":      src.MessageCount,
					"framing_drops": src.FramingDrops,
					"incomplete":    src.IncompleteCount,
					"decode_errors": src.DecodeErrors,
				}).Info("Source statistics")
			}
			app.logger.WithFields(logrus.Fields{
				"events":      app.hub.Published(),
				"subscribers": app.hub.Subscribers(),
			}).Info("Broadcast statistics")
		}
	}
}

// shutdown gracefully shuts down the application
func (app *Application) shutdown() {
	app.logger.Info("Shutting down application")
	app.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if app.server != nil {
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			app.logger.WithError(err).Warn("HTTP server shutdown failed")
		}
	}

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("All goroutines finished")
	case <-time.After(5 * time.Second):
		app.logger.Warn("Shutdown timeout, forcing exit")
	}

	app.logger.Info("Shutdown completed")
}
