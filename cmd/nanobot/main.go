package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/anirudhshenoy/nanobot/internal/api"
	"github.com/anirudhshenoy/nanobot/internal/config"
	"github.com/anirudhshenoy/nanobot/internal/providers"
	"github.com/anirudhshenoy/nanobot/internal/routing"
	"github.com/anirudhshenoy/nanobot/internal/security"
)

var (
	version   = "0.2.0"
	buildTime = "dev"
)

// App holds all the runtime components
type App struct {
	Config     *config.Config
	ConfigPath string
	Logger     *slog.Logger
	Health     *providers.HealthRegistry
	Cache      *providers.Cache
	Dispatcher *providers.Dispatcher
	APIServer  *api.Server
	Cron       *cron.Cron
	Watcher    *config.Watcher
	apiContext context.Context
	apiCancel  context.CancelFunc
}

func main() {
	os.Exit(run())
}

func run() int {
	configPath := "nanobot.json"
	var subCmd string
	var subCmdIdx int

	// First pass: find config flag
	skipNext := false
	for i := 1; i < len(os.Args); i++ {
		if skipNext {
			skipNext = false
			continue
		}
		arg := os.Args[i]
		if arg == "--config" || arg == "-config" {
			if i+1 < len(os.Args) {
				configPath = os.Args[i+1]
				skipNext = true
			}
		}
	}

	// Second pass: find subcommand (first non-flag arg)
	skipNext = false
	for i := 1; i < len(os.Args); i++ {
		if skipNext {
			skipNext = false
			continue
		}
		arg := os.Args[i]

		if arg == "--config" || arg == "-config" || arg == "--version" || arg == "-version" {
			if arg == "--config" || arg == "-config" {
				skipNext = true
			}
			continue
		}

		if len(arg) > 0 && arg[0] != '-' {
			subCmd = arg
			subCmdIdx = i
			break
		}
	}

	if subCmd != "" {
		switch subCmd {
		case "route":
			return routeCommand(os.Args[subCmdIdx+1:], configPath)
		case "token":
			return tokenCommand(os.Args[subCmdIdx+1:], configPath)
		case "start":
			// Explicit start subcommand - falls through to normal server start below
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", subCmd)
			fmt.Fprintln(os.Stderr, "Available commands: start, route, token")
			return 1
		}
	}

	// No subcommand - parse as normal server start
	fs := flag.NewFlagSet("nanobot", flag.ExitOnError)
	configPathFlag := fs.String("config", "nanobot.json", "Path to config file")
	showVersion := fs.Bool("version", false, "Show version")
	if err := fs.Parse(argsWithoutSubcommand(os.Args[1:], subCmd)); err != nil {
		fmt.Printf("Error parsing arguments: %v\n", err)
		return 1
	}

	if *showVersion {
		fmt.Printf("nanobot v%s (built %s)\n", version, buildTime)
		fmt.Println("Heuristic LLM request router")
		return 0
	}

	if *configPathFlag != "nanobot.json" {
		configPath = *configPathFlag
	}

	app, err := setup(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		return 1
	}

	if err := startServices(app); err != nil {
		app.Logger.Error("failed to start services", "error", err)
		return 1
	}

	printBanner(app)

	if err := waitForShutdown(app); err != nil {
		app.Logger.Error("shutdown error", "error", err)
		return 1
	}

	return 0
}

// argsWithoutSubcommand strips the bare subcommand word so the flag set only
// sees flags.
func argsWithoutSubcommand(args []string, subCmd string) []string {
	if subCmd == "" {
		return args
	}
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == subCmd {
			continue
		}
		out = append(out, a)
	}
	return out
}

// setup initializes all application components
func setup(configPath string) (*App, error) {
	app := &App{ConfigPath: configPath}

	// Setup logger (initially at Info level)
	app.Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	app.Logger.Info("starting nanobot",
		"version", version,
		"config", configPath,
	)

	cfg, err := loadConfig(configPath, app.Logger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	app.Config = cfg

	// Recreate logger with config's log level
	app.Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))

	app.Dispatcher, app.Cache, app.Health = buildDispatcher(cfg, app.Logger)
	app.APIServer = api.NewServer(cfg, app.Dispatcher, app.Health, version, app.Logger)

	return app, nil
}

// buildDispatcher wires the routing engine, client cache and health registry.
func buildDispatcher(cfg *config.Config, logger *slog.Logger) (*providers.Dispatcher, *providers.Cache, *providers.HealthRegistry) {
	engine := routing.NewEngine(
		cfg.BuildTable(),
		routing.NewClassifier(cfg.Routing.Scoring),
		logger,
	)
	defaultProvider := cfg.DefaultTarget().Provider
	cache := providers.NewCache(cfg, defaultProvider, logger)
	health := providers.NewHealthRegistry(providers.DefaultHealthConfig(cfg.Server.DataDir), logger)
	dispatcher := providers.NewDispatcher(engine, cache, health, cfg, defaultProvider, cfg.Routing.Enabled, logger)
	return dispatcher, cache, health
}

func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("no config found, creating default")
			cfg = config.DefaultConfig()
			cfg.Defaults.Model = "claude-opus-4"
			if err := cfg.Save(path); err != nil {
				return nil, fmt.Errorf("save default config: %w", err)
			}
			logger.Info("default config created", "path", path)
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func startServices(app *App) error {
	// Periodic health persistence
	app.Cron = cron.New()
	if _, err := app.Cron.AddFunc("@every 5m", func() {
		if err := app.Health.Persist(); err != nil {
			app.Logger.Error("persist health state", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule health persistence: %w", err)
	}
	app.Cron.Start()

	// Watch the config file so operators learn a restart is needed
	app.Watcher = config.NewWatcher(app.ConfigPath, 30*time.Second, app.Logger, func() {
		report, err := app.Config.Diff(app.ConfigPath)
		if err != nil {
			app.Logger.Warn("config changed but could not be re-read", "error", err)
			return
		}
		report.LogReport(app.Logger)
	})
	app.Watcher.Start()

	// Start API server in background
	app.apiContext, app.apiCancel = context.WithCancel(context.Background())
	go func() {
		if err := app.APIServer.Start(app.apiContext); err != nil {
			app.Logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// printBanner displays the startup banner
func printBanner(app *App) {
	fmt.Println()
	fmt.Printf("  nanobot v%s\n", version)
	fmt.Printf("  API: http://%s:%d\n", app.Config.Server.Host, app.Config.Server.Port)
	if app.Config.Routing.Enabled {
		fmt.Printf("  Routing: heuristic (default %s)\n", app.Config.DefaultTarget())
	} else {
		fmt.Printf("  Routing: disabled (all requests to %s)\n", app.Config.DefaultTarget())
	}
	fmt.Printf("  Providers: %d configured\n", len(app.Config.Providers))
	fmt.Println()
}

// waitForShutdown waits for termination signal and performs graceful shutdown
func waitForShutdown(app *App) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, getShutdownSignals()...)

	for {
		sig := <-sigCh

		// Handle platform-specific signals (SIGHUP on Unix)
		if handlePlatformSignal(sig, app) {
			continue
		}

		// SIGINT or SIGTERM - proceed to shutdown
		app.Logger.Info("shutdown signal received", "signal", sig)
		break
	}

	if app.apiCancel != nil {
		app.apiCancel()
	}
	if app.Watcher != nil {
		app.Watcher.Stop()
	}
	if app.Cron != nil {
		app.Cron.Stop()
	}

	app.Logger.Info("saving state...")
	if err := app.Health.Persist(); err != nil {
		app.Logger.Error("failed to save health state", "error", err)
	}

	app.Logger.Info("shutdown complete")
	return nil
}

// routeCommand prints the routing trace for a query without dispatching.
func routeCommand(args []string, configPath string) int {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "Usage: nanobot route <query>")
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	dispatcher, _, _ := buildDispatcher(cfg, logger)
	fmt.Print(dispatcher.DescribeRouting(query))
	return 0
}

// tokenCommand mints an API token using the configured auth secret.
func tokenCommand(args []string, configPath string) int {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	role := fs.String("role", "client", "Role claim for the token")
	expiry := fs.Duration("expiry", 24*time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: nanobot token [--role ROLE] [--expiry DUR] <client-id>")
		return 1
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	secret := security.ResolveSecret(cfg.Server.AuthSecret)
	if secret == nil {
		fmt.Fprintln(os.Stderr, "Error: no auth secret configured (set server.authSecret or NANOBOT_AUTH_SECRET)")
		return 1
	}

	token, err := security.GenerateToken(fs.Arg(0), *role, secret, *expiry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Println(token)
	return 0
}
