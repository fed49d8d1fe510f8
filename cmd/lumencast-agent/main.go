package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lumencast/agent/internal/capture"
	"github.com/lumencast/agent/internal/config"
	"github.com/lumencast/agent/internal/gfx"
	"github.com/lumencast/agent/internal/logging"
	"github.com/lumencast/agent/internal/stream"
)

var (
	version = "0.1.0"
	cfgFile string
	monitor int
	listen  string
)

var rootCmd = &cobra.Command{
	Use:   "lumencast-agent",
	Short: "Lumencast Agent",
	Long:  `Lumencast Agent - local monitor capture and preview streaming for Windows, macOS, and Linux`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the agent",
	Run: func(cmd *cobra.Command, args []string) {
		runAgent()
	},
}

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List attached monitors",
	Run: func(cmd *cobra.Command, args []string) {
		listMonitors()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Lumencast Agent v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/lumencast/agent.yaml)")
	runCmd.Flags().IntVar(&monitor, "monitor", -1, "monitor index to capture (overrides config)")
	runCmd.Flags().StringVar(&listen, "listen", "", "preview listen address (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAgent() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if monitor >= 0 {
		cfg.Monitor = monitor
	}
	if listen != "" {
		cfg.ListenAddr = listen
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	log := logging.L("main")
	log.Info("starting agent", "version", version, "monitor", cfg.Monitor, "listen", cfg.ListenAddr)

	sess := capture.NewSession(gfx.NewSystem(), &capture.Guard{}, gfx.NewCursorOverlay(), capture.Options{
		Monitor:       cfg.Monitor,
		CaptureCursor: cfg.CaptureCursor,
	})
	defer sess.Close()

	srv := stream.NewServer(stream.Config{
		Addr:        cfg.ListenAddr,
		FPS:         cfg.FPS,
		JPEGQuality: cfg.JPEGQuality,
	}, sess, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error("preview server failed", "error", err)
		os.Exit(1)
	}
	log.Info("agent stopped")
}

func listMonitors() {
	if err := printMonitors(os.Stdout, gfx.NewSystem()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enumerate monitors: %v\n", err)
		os.Exit(1)
	}
}

// printMonitors writes one line per attached output. MonitorInfo dimensions
// are desktop-facing (already post-rotation), so they print as reported.
func printMonitors(w io.Writer, sys capture.System) error {
	monitors, err := sys.Monitors()
	if err != nil {
		return err
	}

	for _, m := range monitors {
		primary := ""
		if m.Primary {
			primary = " (primary)"
		}
		fmt.Fprintf(w, "%d: %s %dx%d at (%d,%d) rotation %d°%s\n",
			m.Index, m.Name, m.Width, m.Height, m.X, m.Y, m.Rotation, primary)
	}
	return nil
}
