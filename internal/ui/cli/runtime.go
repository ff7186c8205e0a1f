package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "vcdscan/internal/core/app"
	"vcdscan/internal/core/config"
	"vcdscan/internal/shared/observability"
	"vcdscan/internal/shared/util"
	"vcdscan/internal/ui/browser"
	"vcdscan/internal/ui/report"
)

// Run is the command-line entry point. It returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "vcdscan v%s\n", versionString)
		return 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "failed to detect working directory: %v\n", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	config.ApplyEnvOverrides(cfg)
	applyFlagOverrides(opts, cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 2
	}
	if cfg.Input.Path == "" {
		fmt.Fprintln(stderr, "usage: vcdscan [flags] <dump.vcd>")
		return 2
	}

	cleanupLogs := configureLogging(opts.ui, cfg.Logging, stderr)
	defer cleanupLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.Enabled && cfg.Observability.EnableTracing {
		shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
		if err != nil {
			slog.Error("tracing setup failed", "error", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	app, err := coreapp.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer app.Close(context.Background())

	if cfg.Observability.Enabled {
		server := observability.NewServer(cfg.Observability.Address, coreapp.NewHealthService(app))
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer server.Stop(context.Background())
	}

	_, loadErr := app.Load(ctx, cfg.Input.Path)
	if loadErr != nil && !cfg.Watch.Enabled {
		fmt.Fprintln(stderr, loadErr.Error())
		return 1
	}

	if cfg.Watch.Enabled {
		if err := app.StartWatcher(ctx, []string{cfg.Input.Path}); err != nil {
			slog.Error("failed to start watcher", "error", err)
			return 1
		}
		if cfgPath != "" {
			cw := config.NewWatcher(cfgPath, func(next *config.Config) {
				applyFlagOverrides(opts, next)
				next.Input.Path = cfg.Input.Path
				if err := app.SetConfig(next); err != nil {
					slog.Error("ignoring reloaded config", "error", err)
					return
				}
				app.HandleChanges(ctx, []string{next.Input.Path})
			})
			if err := cw.Start(ctx); err != nil {
				slog.Warn("config watcher unavailable", "path", cfgPath, "error", err)
			} else {
				defer cw.Stop()
			}
		}
	}

	if opts.ui {
		if err := browser.Run(ctx, app, cfg.Query.MergeEdges); err != nil {
			slog.Error("ui failed", "error", err)
			return 1
		}
		return 0
	}

	if loadErr == nil {
		if err := emitReport(app, cfg, stdout); err != nil {
			slog.Error("failed to write report", "error", err)
			return 1
		}
	}
	if !cfg.Watch.Enabled {
		return 0
	}

	// Rewrites of the report are spaced at least one debounce window apart.
	rewrites := util.NewIntervalLimiter(cfg.Watch.Debounce)
	rewrites.Allow(1)
	app.SetUpdateHandler(func(update coreapp.Update) {
		if update.Err != nil {
			return
		}
		if err := rewrites.Wait(ctx, 1); err != nil {
			return
		}
		if err := emitReport(app, app.CurrentConfig(), stdout); err != nil {
			slog.Error("failed to write report", "error", err)
		}
	})
	slog.Info("watching for changes", "path", cfg.Input.Path)
	<-ctx.Done()
	return 0
}

func emitReport(app *coreapp.App, cfg *config.Config, stdout io.Writer) error {
	session := app.Session()
	if session == nil {
		return fmt.Errorf("no dump loaded")
	}
	data := report.Build(session.Path, session.Result, session.Query, cfg.Query.MergeEdges)
	if cfg.Output.Path != "" {
		return report.WriteFile(cfg.Output.Path, cfg.Output.Format, data)
	}
	return report.Write(stdout, cfg.Output.Format, data)
}

// loadConfig reads path when given, else ./vcdscan.toml when it exists, else
// the defaults. The returned path is empty when no file was read.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(path) != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	candidate := filepath.Join(cwd, config.DefaultFile)
	cfg, err := config.Load(candidate)
	if err == nil {
		return cfg, candidate, nil
	}
	if os.IsNotExist(err) {
		return config.Default(), "", nil
	}
	return nil, "", err
}

func applyFlagOverrides(opts cliOptions, cfg *config.Config) {
	if len(opts.args) > 0 {
		cfg.Input.Path = opts.args[0]
	}
	if opts.set["clock"] {
		cfg.Clock.Signal = strings.TrimSpace(opts.clock)
	}
	if opts.set["merge-edges"] {
		cfg.Query.MergeEdges = opts.mergeEdges
	}
	if opts.set["lenient"] {
		cfg.Parse.Lenient = opts.lenient
	}
	if opts.set["strict-ids"] {
		cfg.Parse.StrictIDs = opts.strictIDs
	}
	if opts.set["max-cycles"] {
		cfg.Parse.MaxCycles = opts.maxCycles
	}
	if opts.set["sample"] {
		cfg.Parse.SampleMode = strings.ToLower(strings.TrimSpace(opts.sample))
	}
	if opts.set["format"] {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(opts.format))
	}
	if opts.set["hex"] {
		if opts.hex {
			cfg.Query.Format = "hex"
		} else {
			cfg.Query.Format = "binary"
		}
	}
	if opts.set["include"] {
		cfg.Query.Include = splitList(opts.include)
	}
	if opts.set["exclude"] {
		cfg.Query.Exclude = splitList(opts.exclude)
	}
	if opts.set["out"] {
		cfg.Output.Path = strings.TrimSpace(opts.outPath)
	}
	if opts.set["watch"] {
		cfg.Watch.Enabled = opts.watch
	}
	if opts.verbose {
		cfg.Logging.Level = "debug"
	}
}

func configureLogging(uiMode bool, logging config.Logging, stderr io.Writer) func() {
	level := slog.LevelInfo
	switch logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	output := stderr
	var closeFn func() = func() {}
	if uiMode {
		// Keep logs off the terminal the UI draws on.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(output, handlerOpts)
	if logging.Format == "json" {
		handler = slog.NewJSONHandler(output, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "vcdscan", "vcdscan.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "vcdscan", "vcdscan.log")
	}

	return "vcdscan.log"
}
