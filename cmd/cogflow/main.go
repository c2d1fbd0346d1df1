// Command cogflow runs a demo cog graph: an echo cog extended with a
// markdown-rendering transition, flowed into an uppercasing cog, and
// fanned out to an MQTT bridge and a WebSocket broadcast tap, with every
// error envelope persisted to SQLite.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/nugget/cogflow/cog"
	"github.com/nugget/cogflow/internal/auditlog"
	"github.com/nugget/cogflow/internal/bridge"
	"github.com/nugget/cogflow/internal/buildinfo"
	"github.com/nugget/cogflow/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := newLogger(slog.LevelInfo)

	if flag.NArg() == 0 {
		printUsage()
		return
	}

	switch flag.Arg(0) {
	case "run":
		runGraph(logger, *configPath)
	case "version":
		printVersion(*configPath)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("cogflow - a channel-oriented concurrent runtime for cogs")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run      Run the demo graph")
	fmt.Println("  version  Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func printVersion(configPath string) {
	fmt.Println(buildinfo.String())
	for k, v := range buildinfo.BuildInfo() {
		fmt.Printf("  %-12s %s\n", k+":", v)
	}
	fmt.Printf("  %-12s %s\n", "uptime:", buildinfo.HumanUptime())

	cfg := config.Default()
	if cfgPath, err := config.FindConfig(configPath); err == nil {
		if loaded, err := config.Load(cfgPath); err == nil {
			cfg = loaded
		}
	}
	if info, err := os.Stat(cfg.AuditLog.Path); err == nil {
		fmt.Printf("  %-12s %s (%s)\n", "audit_log:", cfg.AuditLog.Path, humanize.Bytes(uint64(info.Size())))
	}
}

// newLogger builds a logger at the given level: a human-readable text
// handler when stdout is a real terminal, a JSON handler otherwise. Level
// names are not colorized.
func newLogger(level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func runGraph(logger *slog.Logger, configPath string) {
	cfgPath, err := config.FindConfig(configPath)
	var cfg *config.Config
	if err != nil {
		logger.Warn("no config file found, using defaults", "error", err)
		cfg = config.Default()
	} else {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			logger.Error("failed to load config", "path", cfgPath, "error", err)
			os.Exit(1)
		}
		logger.Info("config loaded", "path", cfgPath)
	}

	if level, err := config.ParseLogLevel(cfg.LogLevel); err == nil {
		logger = newLogger(level)
	}

	logger.Info("starting cogflow", "version", buildinfo.Version, "commit", buildinfo.GitCommit)

	store, err := auditlog.Open(cfg.AuditLog.Path)
	if err != nil {
		logger.Error("failed to open audit log", "path", cfg.AuditLog.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("audit log opened", "path", cfg.AuditLog.Path)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	graph, tail := buildGraph(logger)
	go store.Watch(ctx, "demo-graph", tail.Broadcast())

	var wsServer *http.Server
	if cfg.WebSocket.Enabled {
		tap := bridge.NewWebSocketTap(tail.Broadcast(), logger)
		wsServer = &http.Server{Addr: cfg.WebSocket.Address, Handler: tap}
		go func() {
			logger.Info("websocket tap listening", "address", cfg.WebSocket.Address)
			if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("websocket tap failed", "error", err)
			}
		}()
	}

	if cfg.MQTT.Enabled() {
		// graph's output side is a Flow endpoint, not a broadcast: its
		// Receive delivers each value to exactly one caller. logOutput
		// below already claims it, so the MQTT bridge gets its own tap on
		// tail's broadcast instead of competing with logOutput for the
		// same values. Inbound messages still forward straight into
		// graph's shared input, since Send has no such one-reader limit.
		mqttOut := cog.NewChannel(cog.Synchronous())
		tail.Subscribe(mqttOut, true)
		mqttPort := cog.NewIoEndpoint(graph.In(), mqttOut)
		mqttBridge := bridge.NewMQTT(cfg.MQTT, mqttPort, logger)
		go func() {
			if err := mqttBridge.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("mqtt bridge failed", "error", err)
			}
		}()
		logger.Info("mqtt bridge starting", "broker", cfg.MQTT.Broker)
	}

	logger.Info("demo graph running, send input on stdin (one line per message)")
	go readStdin(ctx, graph)

	go logOutput(ctx, logger, graph)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	graph.Close()
	if wsServer != nil {
		_ = wsServer.Shutdown(context.Background())
	}
	logger.Info("cogflow stopped")
}

// buildGraph wires the demo pipeline: an echo cog, extended with a
// markdown-render transition on a splice adapter, flowed into an
// uppercasing cog. It returns the flow's endpoint (for feeding input and
// reading final output) and the uppercasing cog itself (so callers can
// tap its broadcast directly for audit logging and the websocket bridge,
// since a Flow's IoEndpoint has no broadcast of its own).
func buildGraph(logger *slog.Logger) (graph *cog.IoEndpoint, tail *cog.Cog) {
	echo := cog.Construct(0, func(ctx, msg any) (any, any, error) {
		return ctx, msg, nil
	}, cog.WithLogger(logger), cog.WithID("echo"))

	renderAdapter := cog.NewIoEndpoint(cog.NewChannel(cog.Synchronous()), cog.NewChannel(cog.Synchronous()))
	renderer := cog.Extend(echo, renderAdapter, bridge.RenderMarkdown)

	upper := cog.Construct("", func(ctx, msg any) (any, any, error) {
		s, ok := msg.(string)
		if !ok {
			return ctx, nil, fmt.Errorf("upper: expected string, got %T", msg)
		}
		out := ""
		for _, r := range s {
			if r >= 'a' && r <= 'z' {
				r -= 'a' - 'A'
			}
			out += string(r)
		}
		return ctx, out, nil
	}, cog.WithLogger(logger), cog.WithID("upper"))

	return cog.Flow(renderer, upper), upper
}

func readStdin(ctx context.Context, port cog.Port) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if !scanner.Scan() {
			return
		}
		port.Send(scanner.Text())
	}
}

func logOutput(ctx context.Context, logger *slog.Logger, port cog.Port) {
	for {
		v, ok := port.Receive()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		if env, isEnvelope := v.(cog.ErrorEnvelope); isEnvelope {
			logger.Warn("graph emitted error envelope", "cause", env.Cause, "input", env.Input)
			continue
		}
		logger.Info("graph output", "value", v)
	}
}
