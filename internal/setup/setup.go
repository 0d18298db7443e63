package setup

import (
	"context"
	"log"

	"github.com/robalyx/apachemgr/internal/fetcher"
	"github.com/robalyx/apachemgr/internal/manager"
	"github.com/robalyx/apachemgr/internal/process"
	"github.com/robalyx/apachemgr/internal/setup/config"
	"github.com/robalyx/apachemgr/internal/setup/telemetry"
	"go.uber.org/zap"
)

// Options select the configuration of the application.
type Options struct {
	ConfigPath string                         // Config file, searched for when empty
	Verbosity  int                            // Shift of the configured log level
	Configure  func(cfg *config.Config) error // Applies command line overrides
}

// App bundles all core dependencies and services needed by the application.
type App struct {
	Config     *config.Config     // Application configuration
	Logger     *zap.Logger        // Main application logger
	LogManager *telemetry.Manager // Log management system
	Manager    *manager.Manager   // Web server manager
	pprofSrv   *pprofServer       // Debug HTTP server for pprof
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, opts Options) (*App, error) {
	cfg, configPath, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if opts.Configure != nil {
		if err := opts.Configure(cfg); err != nil {
			return nil, err
		}
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(&cfg.Debug, opts.Verbosity)

	logger, err := logManager.GetLogger()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		logger.Debug("Loaded configuration", zap.String("path", configPath))
	} else {
		logger.Debug("No configuration file found, using defaults")
	}

	mgr := manager.New(
		manager.Options{
			StatusURL:        cfg.Server.StatusURL,
			PortsConfig:      cfg.Server.PortsConfig,
			HangingThreshold: cfg.Thresholds.HangingWorker,
		},
		manager.Deps{
			Fetcher:    fetcher.New(cfg.Server.RequestTimeout, logger),
			Scanner:    process.NewScanner(cfg.Server.PIDFile, cfg.Server.ProcessNames, logger),
			Resolver:   process.NewProvider(logger),
			Terminator: process.NewTerminator(logger),
		},
		logger,
	)

	// Start pprof server if enabled
	var pprofSrv *pprofServer

	if cfg.Debug.EnablePprof {
		srv, err := startPprofServer(ctx, cfg.Debug.PprofPort, logger)
		if err != nil {
			logger.Error("Failed to start pprof server", zap.Error(err))
		} else {
			pprofSrv = srv

			logger.Warn("pprof debugging endpoint enabled - this should not be used in production!")
		}
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		LogManager: logManager,
		Manager:    mgr,
		pprofSrv:   pprofSrv,
	}, nil
}

// Cleanup shuts down all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	if s.pprofSrv != nil {
		if err := s.pprofSrv.shutdown(ctx); err != nil {
			s.Logger.Error("Failed to shutdown pprof server", zap.Error(err))
		}
	}

	// Sync buffered logs before shutdown
	_ = s.Logger.Sync()

	if err := s.LogManager.Close(); err != nil {
		log.Printf("Failed to close log files: %v", err)
	}
}
