// mini-lop - a coverage-guided grey-box fuzzer for instrumented binary
// targets speaking the forkserver protocol.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mini-lop/minilop/internal/config"
	"github.com/mini-lop/minilop/internal/engine"
	"github.com/mini-lop/minilop/internal/errs"
	"github.com/mini-lop/minilop/internal/health"
	"github.com/mini-lop/minilop/internal/report"
	"github.com/mini-lop/minilop/internal/ui"
	"github.com/mini-lop/minilop/internal/web"
	"github.com/mini-lop/minilop/pkg/types"
)

var (
	version = "0.1.0-dev"

	// spec.md §6 flags
	targetBinary  string
	targetArgs    []string
	seedsFolder   string
	queueFolder   string
	crashesFolder string
	currentInput  string
	timeoutMs     int
	dictionary    []string

	// ambient flags
	configFile string
	webPort    int
	enableTUI  bool
	statsFile  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "minilop",
		Short:   "mini-lop - a coverage-guided grey-box fuzzer",
		Version: version,
		RunE:    runFuzzer,
	}

	rootCmd.Flags().StringVar(&targetBinary, "target_binary", "", "Path to the instrumented target binary (required)")
	rootCmd.Flags().StringSliceVar(&targetArgs, "target_args", nil, "Arguments passed to the target binary")
	rootCmd.Flags().StringVar(&seedsFolder, "seeds_folder", "seeds", "Initial seed corpus folder")
	rootCmd.Flags().StringVar(&queueFolder, "queue_folder", "queue", "Admitted-seed queue folder")
	rootCmd.Flags().StringVar(&crashesFolder, "crashes_folder", "crashes", "Crashing-input output folder")
	rootCmd.Flags().StringVar(&currentInput, "current_input", "current_input", "Path used to stage each mutated input")
	rootCmd.Flags().IntVar(&timeoutMs, "timeout_ms", 1000, "Per-execution timeout in milliseconds")
	rootCmd.Flags().StringSliceVar(&dictionary, "dictionary", nil, "Token dictionary for mutation (each --dictionary entry is used as a literal token; file paths are not read)")

	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file; flags override its values")
	rootCmd.Flags().IntVar(&webPort, "web-port", 0, "Port for the monitoring web server (0 disables it)")
	rootCmd.Flags().BoolVar(&enableTUI, "tui", false, "Run the interactive terminal dashboard")
	rootCmd.Flags().StringVar(&statsFile, "stats-file", "", "Path to write the final run summary as JSON")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mini-lop version %s\n", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps spec.md §7's error taxonomy onto process exit codes:
// InitError and FatalError both terminate the process, but InitError
// means the run never got off the ground (exit 1) while FatalError
// means it was running and then couldn't continue (exit 2).
func exitCodeFor(err error) int {
	var initErr *errs.InitError
	if errors.As(err, &initErr) {
		return 1
	}
	var fatalErr *errs.FatalError
	if errors.As(err, &fatalErr) {
		return 2
	}
	return 1
}

func runFuzzer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return errs.NewInit("load config", err)
	}
	applyFlagOverrides(cfg, cmd)

	if cfg.Target.Binary == "" {
		return errs.NewInit("target_binary is required", nil)
	}

	e, err := engine.New(cfg)
	if err != nil {
		return err
	}
	defer e.Close()

	monitor := health.NewMonitor(30*time.Second, health.DefaultThreshold())
	monitor.Start()
	defer monitor.Stop()
	go func() {
		for alert := range monitor.Alerts() {
			fmt.Fprintf(os.Stderr, "[!] health: %s (value=%d threshold=%d)\n",
				alert.Message, alert.Value, alert.Threshold)
		}
	}()

	fmt.Printf("[*] mini-lop %s\n", version)
	fmt.Printf("[*] target: %s\n", cfg.Target.Binary)
	fmt.Println("[*] running dry run over initial seeds...")

	if err := e.DryRun(); err != nil {
		return err
	}
	fmt.Printf("[*] dry run admitted %d seeds\n", e.Stats.Seeds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\n[*] shutting down...")
		cancel()
	}()

	if cfg.Output.WebPort > 0 || webPort > 0 {
		port := cfg.Output.WebPort
		if webPort > 0 {
			port = webPort
		}
		server := web.NewServer(func() types.RunStats { return e.Stats })
		go func() {
			if err := server.Start(fmt.Sprintf(":%d", port)); err != nil {
				fmt.Fprintf(os.Stderr, "[!] web server error: %v\n", err)
			}
		}()
		defer server.Stop()
	}

	var runErr error
	if cfg.Output.EnableTUI || enableTUI {
		dash := ui.NewDashboard(func() types.RunStats { return e.Stats })
		dash.SetTarget(cfg.Target.Binary)

		done := make(chan struct{})
		go func() {
			runErr = e.Run(ctx)
			cancel()
			close(done)
		}()
		tuiErr := ui.Run(dash)
		cancel()
		<-done
		if tuiErr != nil {
			return errs.NewFatal("tui", tuiErr)
		}
	} else {
		runErr = e.Run(ctx)
	}

	if statsPath := cfg.Output.StatsFile; statsFile != "" || statsPath != "" {
		path := statsPath
		if statsFile != "" {
			path = statsFile
		}
		if err := report.Write(path, e.Stats); err != nil {
			fmt.Fprintf(os.Stderr, "[!] failed to write stats file: %v\n", err)
		}
	}

	fmt.Printf("[*] executions=%d seeds=%d edges=%d crashes=%d timeouts=%d\n",
		e.Stats.Executions, e.Stats.Seeds, e.Stats.EdgesCovered, e.Stats.Crashes, e.Stats.Timeouts)

	return runErr
}

// applyFlagOverrides layers explicitly-set CLI flags onto the loaded
// config, so a config file's values only get overridden for flags the
// user actually passed.
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("target_binary") {
		cfg.Target.Binary = targetBinary
	}
	if flags.Changed("target_args") {
		cfg.Target.Args = targetArgs
	}
	if flags.Changed("seeds_folder") {
		cfg.Target.SeedsFolder = seedsFolder
	}
	if flags.Changed("queue_folder") {
		cfg.Target.QueueFolder = queueFolder
	}
	if flags.Changed("crashes_folder") {
		cfg.Target.CrashesFolder = crashesFolder
	}
	if flags.Changed("current_input") {
		cfg.Target.CurrentInput = currentInput
	}
	if flags.Changed("timeout_ms") {
		cfg.Engine.TimeoutMs = timeoutMs
	}
	if flags.Changed("dictionary") {
		cfg.Target.Dictionary = dictionary
	}
	if flags.Changed("tui") {
		cfg.Output.EnableTUI = enableTUI
	}
	if flags.Changed("web-port") {
		cfg.Output.WebPort = webPort
	}
	if flags.Changed("stats-file") {
		cfg.Output.StatsFile = statsFile
	}
}
