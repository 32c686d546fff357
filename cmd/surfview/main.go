package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/surfview/pkg/api"
	"github.com/Sriram-PR/surfview/pkg/config"
	"github.com/Sriram-PR/surfview/pkg/cookies"
	"github.com/Sriram-PR/surfview/pkg/metrics"
	"github.com/Sriram-PR/surfview/pkg/models"
	"github.com/Sriram-PR/surfview/pkg/orchestrate"
	"github.com/Sriram-PR/surfview/pkg/policy"
	"github.com/Sriram-PR/surfview/pkg/session"
)

const version = "0.4.0"

const defaultConfigFile = "surfview.yaml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "render":
		runRender(os.Args[2:])
	case "open":
		runOpen(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "mcp-server":
		runMcpServer(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("surfview %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `surfview - Script-free page previews in a throwaway browser

Usage:
  surfview <command> [options]

Commands:
  render      Render a URL and print the result as JSON
  open        Hand a URL to the system's default handler
  serve       Start the HTTP API used by the UI shell
  mcp-server  Start MCP server for AI tool integration
  validate    Validate configuration file
  version     Show version info

Run 'surfview <command> -h' for command-specific help.`)
}

// loadConfig loads the config file; the default path may be absent
func loadConfig(path string) (*config.AppConfig, error) {
	cfg, err := config.Load(path, path == defaultConfigFile)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setupLogger creates a configured logrus.Logger; the flag wins over the config file
func setupLogger(flagLevel, cfgLevel string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	levelStr := flagLevel
	if levelStr == "" {
		levelStr = cfgLevel
	}
	if levelStr == "" {
		return log
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", levelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// loadAndValidateConfig loads the config file, validates it, and logs warnings.
// Returns a nil config after printing the problem to stderr.
func loadAndValidateConfig(configFile string, stderr io.Writer) *config.AppConfig {
	appCfg, err := loadConfig(configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return nil
	}
	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stderr, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Config error: %v\n", err)
		return nil
	}
	return appCfg
}

// buildOrchestrator wires the engine, the session launcher and the pipeline from config
func buildOrchestrator(appCfg *config.AppConfig, m *metrics.Metrics, log *logrus.Logger) (*orchestrate.Orchestrator, error) {
	execPath, err := session.ResolveExecPath(appCfg.ChromePath)
	if err != nil {
		return nil, err
	}
	scope, err := cookies.ParseScope(appCfg.CookieScope)
	if err != nil {
		return nil, err
	}
	log.Infof("Using rendering engine at %s", execPath)

	launcher := session.NewLauncher(session.Options{
		ExecPath: execPath,
		Viewport: session.Viewport{
			Width:  appCfg.Viewport.Width,
			Height: appCfg.Viewport.Height,
			Scale:  appCfg.Viewport.Scale,
		},
		HarvestTimeout:  appCfg.HarvestTimeout,
		CaptureTimeout:  appCfg.CaptureTimeout,
		IdleWindow:      appCfg.IdleWindow,
		IdleMaxInflight: appCfg.EffectiveIdleMaxInflight(),
		CookieScope:     scope,
		OnBlocked: func(c policy.Category) {
			m.ObserveBlocked(string(c))
		},
	}, log.WithField("component", "session"))

	return orchestrate.NewOrchestrator(
		orchestrate.NewChromeLauncher(launcher),
		orchestrate.Options{
			MaxConcurrentSessions: appCfg.MaxConcurrentSessions,
			LaunchesPerSecond:     appCfg.LaunchesPerSecond,
			LaunchBurst:           appCfg.LaunchBurst,
			MaxRendersPerSite:     appCfg.MaxRendersPerSite,
			RequestTimeout:        appCfg.RequestTimeout,
		},
		m,
		log.WithField("component", "orchestrator"),
	), nil
}

// runRender handles the render subcommand
func runRender(args []string) {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigFile, "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error); overrides log_level")
	outFile := fs.String("out", "", "Also write the screenshot to this PNG file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: surfview render [options] <url>\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  surfview render example.com\n")
		fmt.Fprintf(os.Stderr, "  surfview render -out page.png https://example.com/docs\n")
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	appCfg := loadAndValidateConfig(*configFile, os.Stderr)
	if appCfg == nil {
		os.Exit(1)
	}
	log := setupLogger(*logLevel, appCfg.LogLevel, os.Stderr)

	orch, err := buildOrchestrator(appCfg, nil, log)
	if err != nil {
		log.Fatalf("Cannot render: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(doRender(ctx, orch, fs.Arg(0), *outFile, os.Stdout, os.Stderr))
}

// urlRenderer is the part of the pipeline the render subcommand needs
type urlRenderer interface {
	RenderURL(ctx context.Context, raw string) models.RenderResult
}

// doRender renders raw and writes the JSON result to stdout.
// Returns exit code (0 = rendered, 1 = failure result or output error).
func doRender(ctx context.Context, r urlRenderer, raw, outFile string, stdout, stderr io.Writer) int {
	result := r.RenderURL(ctx, raw)

	if result.OK && outFile != "" {
		if err := os.WriteFile(outFile, result.Image, 0644); err != nil {
			fmt.Fprintf(stderr, "Error writing screenshot: %v\n", err)
			return 1
		}
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(stderr, "Error encoding result: %v\n", err)
		return 1
	}
	if !result.OK {
		return 1
	}
	return 0
}

// runOpen handles the open subcommand
func runOpen(args []string) {
	fs := flag.NewFlagSet("open", flag.ExitOnError)
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: surfview open [options] <url>\n\nUnsafe input is silently ignored.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(*logLevel, "", os.Stderr)
	// Opening needs no engine
	orch := orchestrate.NewOrchestrator(nil, orchestrate.Options{}, nil, log.WithField("component", "orchestrator"))
	orch.OpenExternal(fs.Arg(0))
}

// runServe handles the serve subcommand
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigFile, "Path to config file")
	logLevel := fs.String("loglevel", "", "Log level (debug, info, warn, error); overrides log_level")
	listen := fs.String("listen", "", "Listen address; overrides server.listen")
	pprofAddr := fs.String("pprof", "", "pprof address, e.g. localhost:6060 (disabled by default)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: surfview serve [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	appCfg := loadAndValidateConfig(*configFile, os.Stderr)
	if appCfg == nil {
		os.Exit(1)
	}
	if *listen != "" {
		appCfg.Server.Listen = *listen
	}
	log := setupLogger(*logLevel, appCfg.LogLevel, os.Stderr)
	logAppConfig(appCfg, log)
	startPprof(*pprofAddr, log)

	m := metrics.New(prometheus.NewRegistry())
	orch, err := buildOrchestrator(appCfg, m, log)
	if err != nil {
		log.Fatalf("Cannot start: %v", err)
	}

	handlers := api.NewHandlers(orch, version, log.WithField("component", "api"))
	srv := api.NewServer(appCfg.Server.Listen, api.NewRouter(handlers, m, log.WithField("component", "http")), log.WithField("component", "http"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
		return
	case <-ctx.Done():
		log.Warn("Received signal. Initiating graceful shutdown...")
	}
	stop() // A second signal now terminates immediately

	// Aborting renders first lets their sessions tear down before the server stops waiting
	orch.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appCfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Graceful shutdown incomplete: %v", err)
		os.Exit(1)
	}
	log.Info("Server stopped.")
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", defaultConfigFile, "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: surfview validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	exitCode := doValidate(*configFile, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	if execPath, err := session.ResolveExecPath(appCfg.ChromePath); err != nil {
		fmt.Fprintf(stdout, "WARN: %v\n", err)
	} else {
		fmt.Fprintf(stdout, "OK: rendering engine %s\n", execPath)
	}

	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}

// startPprof starts the pprof HTTP server if addr is non-empty.
func startPprof(addr string, log *logrus.Logger) {
	if addr != "" {
		go func() {
			log.Infof("Starting pprof server at http://%s/debug/pprof/", addr)
			if err := http.ListenAndServe(addr, nil); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("pprof server error: %v", err)
			}
		}()
	}
}

// logAppConfig logs the effective configuration
func logAppConfig(appCfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config Timeouts: Harvest:%v, Capture:%v, Request:%v, IdleWindow:%v, IdleMaxInflight:%d",
		appCfg.HarvestTimeout, appCfg.CaptureTimeout, appCfg.RequestTimeout, appCfg.IdleWindow, appCfg.EffectiveIdleMaxInflight())
	log.Infof("Config Sessions: MaxConcurrent:%d, PerSite:%d, LaunchesPerSecond:%.2f, Burst:%d, CookieScope:%s",
		appCfg.MaxConcurrentSessions, appCfg.MaxRendersPerSite, appCfg.LaunchesPerSecond, appCfg.LaunchBurst, appCfg.CookieScope)
	log.Infof("Config Viewport: %dx%d @%.1fx, Listen:%s, ShutdownTimeout:%v",
		appCfg.Viewport.Width, appCfg.Viewport.Height, appCfg.Viewport.Scale, appCfg.Server.Listen, appCfg.Server.ShutdownTimeout)
}
