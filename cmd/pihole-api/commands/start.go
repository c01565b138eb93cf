package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/pihole/pihole-api/internal/ftl/snapshot"
	"github.com/pihole/pihole-api/internal/ftl/socket"
	"github.com/pihole/pihole-api/internal/logger"
	"github.com/pihole/pihole-api/internal/telemetry"
	"github.com/pihole/pihole-api/pkg/api"
	"github.com/pihole/pihole-api/pkg/api/handlers"
	"github.com/pihole/pihole-api/pkg/config"
	"github.com/pihole/pihole-api/pkg/lists"
	"github.com/pihole/pihole-api/pkg/metrics"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the pihole-api server",
	Long: `Start the pihole-api server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/pihole-api/config.toml.

Examples:
  # Start in background (default)
  pihole-api start

  # Start in foreground
  pihole-api start --foreground

  # Start with custom config file
  pihole-api start --config /etc/pihole-api/config.toml

  # Start with environment variable overrides
  PIHOLE_API_LOGGING_LEVEL=DEBUG pihole-api start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/pihole-api/pihole-api.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/pihole-api/pihole-api.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "pihole-api",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "pihole-api",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("pihole-api - HTTP companion API for Pi-hole FTL")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("Telemetry disabled")
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("Profiling disabled")
	}

	m := metrics.New(cfg.Metrics.Enabled)

	facade, err := snapshot.Open(snapshot.Config{
		ShmDir:          cfg.Shm.Dir,
		Prefix:          cfg.Shm.Prefix,
		LockSidecarPath: snapshot.SidecarPath(GetDefaultStateDir(), cfg.Shm.Prefix),
		LayoutVersion:   int32(cfg.Shm.ExpectedVersion),
		Metrics:         m,
	})
	if err != nil {
		return fmt.Errorf("failed to open telemetry snapshot: %w", err)
	}
	logger.Info("Shared-memory snapshot opened", "dir", cfg.Shm.Dir, "prefix", cfg.Shm.Prefix)

	dialer := socket.NewDialer(socket.DialConfig{
		SocketPath:   cfg.Socket.Path,
		ReadTimeout:  cfg.Socket.ReadTimeout,
		DialAttempts: cfg.Socket.MaxAttempts,
	}).WithMetrics(m)

	listsRepo := lists.NewRepository(cfg.Paths.ListsDir)

	exclusions, err := handlers.NewExclusionsSource(cfg.Paths.SetupVars)
	if err != nil {
		return fmt.Errorf("failed to read setupVars exclusion lists: %w", err)
	}

	authKey, err := resolveAuthKey(cfg)
	if err != nil {
		return fmt.Errorf("failed to resolve auth key: %w", err)
	}

	apiServer := api.NewServer(cfg.Server, api.Deps{
		Facade:        facade,
		Dialer:        dialer,
		Lists:         listsRepo,
		Exclusions:    exclusions,
		DnsmasqConfig: cfg.Paths.DnsmasqConfig,
		AuthKey:       authKey,
		Metrics:       m,
	})
	logger.Info("API server configured", "addr", cfg.Server.Address)

	watcher, err := watchSetupVars(cfg.Paths.SetupVars, exclusions)
	if err != nil {
		logger.Warn("setupVars watch disabled", "error", err)
	} else {
		defer func() { _ = watcher.Close() }()
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled && cfg.Metrics.Address != "" {
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: m.Handler()}
		go func() {
			logger.Info("Metrics server listening", "addr", cfg.Metrics.Address)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

// resolveAuthKey returns the bearer token mutating /api/lists routes
// require, read directly from config or, if Key is empty, from KeyFile.
func resolveAuthKey(cfg *config.Config) (string, error) {
	if cfg.Auth.Key != "" {
		return cfg.Auth.Key, nil
	}
	if cfg.Auth.KeyFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(cfg.Auth.KeyFile)
	if err != nil {
		return "", fmt.Errorf("reading auth.key_file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// watchSetupVars watches setupVarsPath for writes and reloads src, so
// exclusion-list edits (pihole -w, the web UI) take effect without a
// restart (§4.L).
func watchSetupVars(setupVarsPath string, src *handlers.ExclusionsSource) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(setupVarsPath)); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(setupVarsPath) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := src.Reload(); err != nil {
					logger.Warn("failed to reload setupVars exclusions", "error", err)
				} else {
					logger.Info("setupVars exclusions reloaded")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("setupVars watch error", "error", err)
			}
		}
	}()

	return watcher, nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// startDaemon starts the server as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = filepath.Join(stateDir, "pihole-api.pid")
	}

	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("pihole-api is already running (PID %d)", pid)
					}
				}
			}
		}
		// Stale PID file, remove it.
		_ = os.Remove(pidPath)
	}

	logPath := logFile
	if logPath == "" {
		logPath = filepath.Join(stateDir, "pihole-api.log")
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	_ = logFileHandle.Close()

	fmt.Printf("pihole-api started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'pihole-api status' to check server status")

	return nil
}
