package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/nstehr/vimy/vimy-micro/agent"
	"github.com/nstehr/vimy/vimy-micro/config"
	"github.com/nstehr/vimy/vimy-micro/ipc"
	"github.com/nstehr/vimy/vimy-micro/rules"
)

const banner = `
██╗   ██╗██╗███╗   ███╗██╗   ██╗
██║   ██║██║████╗ ████║╚██╗ ██╔╝
██║   ██║██║██╔████╔██║ ╚████╔╝
╚██╗ ██╔╝██║██║╚██╔╝██║  ╚██╔╝
 ╚████╔╝ ██║██║ ╚═╝ ██║   ██║
  ╚═══╝  ╚═╝╚═╝     ╚═╝   ╚═╝

Unit Micro Sidecar`

func main() {
	socketPath := flag.String("socket", "/tmp/vimy-micro.sock", "unix socket to listen on")
	configPath := flag.String("config", "", "tuning file, watched for changes (embedded defaults if empty)")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -log-level %q: %v\n", *logLevel, err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	fmt.Println(banner)

	slog.Info("starting vimy-micro")

	tuning, err := loadTuning(*configPath)
	if err != nil {
		slog.Error("failed to load tuning", "path", *configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("tuning loaded", "units", len(tuning.Units), "doctrine", tuning.Doctrine.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tuner *agent.Tuner
	if *configPath != "" {
		tuner, err = agent.NewTuner(*configPath, tuning)
		if err != nil {
			slog.Error("failed to watch tuning file", "path", *configPath, "error", err)
			os.Exit(1)
		}
		go tuner.Start(ctx)
	}

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(*socketPath); err != nil {
		slog.Error("failed to clean up socket", "path", *socketPath, "error", err)
		os.Exit(1)
	}

	listener, err := net.Listen("unix", *socketPath)
	if err != nil {
		slog.Error("failed to listen on socket", "path", *socketPath, "error", err)
		os.Exit(1)
	}
	defer listener.Close()
	defer os.Remove(*socketPath)

	slog.Info("listening on domain socket", "path", *socketPath)

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
					slog.Error("failed to accept connection", "error", err)
					continue
				}
			}
			slog.Info("new connection accepted")
			go handleConn(conn, tuning, tuner)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}

func loadTuning(path string) (*config.Tuning, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// handleConn gives each connection its own agent and rule engine, seeded
// from the latest tuning.
func handleConn(conn net.Conn, tuning *config.Tuning, tuner *agent.Tuner) {
	if tuner != nil {
		tuning, _ = tuner.Latest()
	}
	engine, err := rules.NewEngine(rules.CompileDoctrine(tuning.Doctrine))
	if err != nil {
		slog.Error("failed to compile doctrine", "error", err)
		conn.Close()
		return
	}

	c := ipc.NewConnection(conn, nil)
	a := agent.New(c, engine, tuning, tuner)
	c.RegisterHandler(ipc.TypeHello, a.HandleHello)
	c.RegisterHandler(ipc.TypeObstacle, a.HandleObstacle)
	c.RegisterHandler(ipc.TypeGameState, a.HandleGameState)
	c.ReadLoop()
}
