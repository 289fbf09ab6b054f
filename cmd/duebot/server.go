package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/duebot/duebot/internal/api"
	"github.com/duebot/duebot/internal/calendar"
	"github.com/duebot/duebot/internal/config"
	"github.com/duebot/duebot/internal/ingest"
	"github.com/duebot/duebot/internal/notify"
	"github.com/duebot/duebot/internal/notion"
	"github.com/duebot/duebot/internal/query"
	"github.com/duebot/duebot/internal/storage"
	"github.com/duebot/duebot/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the duebot server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running duebot server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show duebot system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "duebot.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func logLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "duebot version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	})))

	apiToken, err := config.APIToken(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}

	// Refuse to start twice: probe the health endpoint before claiming
	// the PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("duebot is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("duebot is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open local storage. Even with the Notion backend it holds the
	// delivery job queue.
	db, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	var assignments store.Store = db
	if cfg.Store.Backend == config.BackendNotion {
		assignments = notion.New(cfg.Store.NotionBaseURL, cfg.Store.NotionToken, cfg.Store.NotionDatabaseID)
		slog.Info("using Notion assignment store", "database_id", cfg.Store.NotionDatabaseID)
	} else {
		slog.Info("using local sqlite assignment store", "data_dir", cfg.Storage.DataDir)
	}

	// Delivery collaborators. Each is optional; missing config just
	// disables the feature.
	queue := notify.NewQueue(db)
	var sender notify.Sender
	var uploadNotifier ingest.Notifier
	if cfg.Notify.DiscordWebhookURL != "" {
		sender = notify.NewDiscord(cfg.Notify.DiscordWebhookURL)
		uploadNotifier = queue
		slog.Info("Discord upload notifications enabled")
	}
	var syncer notify.EventSyncer
	var calendarQueue api.CalendarQueue
	if cfg.Calendar.BaseURL != "" {
		syncer = calendar.NewSyncer(assignments, calendar.New(cfg.Calendar.BaseURL, cfg.Calendar.Token), cfg.Calendar.Timezone)
		calendarQueue = queue
		slog.Info("calendar sync enabled", "base_url", cfg.Calendar.BaseURL)
	}

	engine := query.New()
	pipeline := ingest.New(assignments, uploadNotifier)

	appHandler := api.NewAppHandler(api.AppDeps{
		Store:    assignments,
		Queries:  engine,
		Ingestor: pipeline,
		Calendar: calendarQueue,
		Token:    apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: appHandler,
	}

	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:    assignments,
		Queries:  engine,
		Ingestor: pipeline,
		Calendar: calendarQueue,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)

	worker := notify.NewWorker(db, sender, syncer, 500*time.Millisecond)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "duebot listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := stdioSrv.Listen(gCtx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		worker.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	slog.Info("MCP server started (stdio transport)")

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("duebot is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop duebot (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to duebot (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Store", "%s", cfg.Store.Backend)
	if cfg.Notify.DiscordWebhookURL != "" {
		printStatus("Notifications", "Discord webhook configured")
	} else {
		printStatus("Notifications", "disabled")
	}
	if cfg.Calendar.BaseURL != "" {
		printStatus("Calendar", "%s (%s)", cfg.Calendar.BaseURL, cfg.Calendar.Timezone)
	} else {
		printStatus("Calendar", "disabled")
	}

	if running {
		if apiToken, tokenErr := config.APIToken(cfg.Storage.DataDir); tokenErr == nil {
			if c, countErr := fetchAssignmentCount(client, serverURL, apiToken); countErr == nil {
				printStatus("Assignments", "%d tracked", c)
			}
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func fetchAssignmentCount(client *http.Client, serverURL, token string) (int, error) {
	req, err := http.NewRequest(http.MethodGet, serverURL+"/assignments", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}

	var list []struct{}
	if err := decodeJSON(resp, &list); err != nil {
		return 0, err
	}
	return len(list), nil
}
