package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/safeira/iglootrack/internal/config"
	"github.com/safeira/iglootrack/internal/daemon"
)

var (
	flagRunProxyAddr    string
	flagRunAPIAddr      string
	flagRunUpstream     string
	flagRunDetach       bool
	flagRunPIDFile      string
	flagRunLogFile      string
	flagRunEventsBuffer int
	flagRunChild        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the tracking daemon (proxy, scheduler, control API)",
	Long: "Start the long-lived tracker: an intercepting proxy that records igloo\n" +
		"purchases, the NST reset scheduler with the one-hour reminder, and a\n" +
		"local HTTP API serving ledger state and a live SSE stream.",
	RunE: runRun,
}

var runStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runRunStatus,
}

var runStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runRunStop,
}

func init() {
	defaultPID := filepath.Join(config.DataDir(), "iglootrackd.pid")
	defaultLog := filepath.Join(config.DataDir(), "iglootrackd.log")

	runCmd.PersistentFlags().StringVar(&flagRunProxyAddr, "proxy-addr", "", "Proxy listen address (default from config)")
	runCmd.PersistentFlags().StringVar(&flagRunAPIAddr, "api-addr", "", "Control API listen address (default from config)")
	runCmd.PersistentFlags().StringVar(&flagRunUpstream, "upstream", "", "Upstream origin (default from config)")
	runCmd.PersistentFlags().StringVar(&flagRunPIDFile, "pid-file", defaultPID, "PID file path")
	runCmd.PersistentFlags().StringVar(&flagRunLogFile, "log-file", defaultLog, "Log file path for detached mode")
	runCmd.PersistentFlags().IntVar(&flagRunEventsBuffer, "events-buffer", 200, "Max in-memory events retained")

	runCmd.Flags().BoolVar(&flagRunDetach, "detach", false, "Run the daemon as a background process")
	runCmd.Flags().BoolVar(&flagRunChild, "child", false, "Internal: mark detached child process")
	_ = runCmd.Flags().MarkHidden("child")

	runCmd.AddCommand(runStatusCmd)
	runCmd.AddCommand(runStopCmd)
	rootCmd.AddCommand(runCmd)
}

func runRun(_ *cobra.Command, _ []string) error {
	if flagRunDetach && flagRunChild {
		return errors.New("invalid daemon launch mode")
	}
	if flagRunDetach {
		return startDetached()
	}
	return runForeground()
}

func startDetached() error {
	if err := ensureNotRunning(flagRunPIDFile); err != nil {
		return err
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagRunPIDFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}

	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagRunLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Stdin = nil
	child.Env = os.Environ()

	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Printf("  Started daemon (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagRunPIDFile)
	fmt.Printf("  Log: %s\n", flagRunLogFile)
	return nil
}

func runForeground() error {
	if err := ensureNotRunning(flagRunPIDFile); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(flagRunPIDFile), 0o750); err != nil {
		return fmt.Errorf("create daemon directory: %w", err)
	}
	if err := writePID(flagRunPIDFile, os.Getpid()); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagRunPIDFile) }()

	cfg, err := config.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("config unreadable, using defaults")
		cfg = config.DefaultConfig()
	}

	dcfg := daemon.Config{
		ProxyAddr:    firstNonEmpty(flagRunProxyAddr, cfg.Proxy.Listen),
		APIAddr:      firstNonEmpty(flagRunAPIAddr, cfg.Proxy.API),
		Upstream:     firstNonEmpty(flagRunUpstream, cfg.Proxy.Upstream),
		EventsBuffer: flagRunEventsBuffer,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	kv, err := openKV(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	svc, err := daemon.New(ctx, dcfg, kv, logger)
	if err != nil {
		return err
	}

	fmt.Printf("  iglootrack daemon\n")
	fmt.Printf("  Proxy: http://%s (point your browser's proxy here)\n", dcfg.ProxyAddr)
	fmt.Printf("  API:   http://%s/v1/status\n", dcfg.APIAddr)
	fmt.Printf("  Stop with: iglootrack run stop --pid-file %s\n", flagRunPIDFile)

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runRunStatus(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagRunPIDFile)
	if err != nil {
		fmt.Printf("  Daemon: not running (pid file not found)\n")
		return nil
	}

	if !processAlive(pid) {
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	cfg, _ := config.Load()
	addr := firstNonEmpty(flagRunAPIAddr, cfg.Proxy.API)

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  API: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	fmt.Printf("  Today (%s): %d/%d\n", st.TodayKey, st.TodayTotal, st.DailyLimit)
	fmt.Printf("  Lifetime: %d\n", st.LifetimeTotal)
	fmt.Printf("  Resets in: %s\n", st.ResetsIn)
	fmt.Printf("  Reminder: %s\n", boolWord(st.NotifyEnabled))
	return nil
}

func runRunStop(_ *cobra.Command, _ []string) error {
	pid, err := readPID(flagRunPIDFile)
	if err != nil {
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			_ = os.Remove(flagRunPIDFile)
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}

	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func ensureNotRunning(pidFile string) error {
	pid, err := readPID(pidFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if processAlive(pid) {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	_ = os.Remove(pidFile)
	return nil
}

func writePID(path string, pid int) error {
	return os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

func readPID(path string) (int, error) {
	//nolint:gosec // daemon pid path is configured by the local user
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s", path)
	}
	return pid, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
