package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"outfitter/agent"
	"outfitter/config"
	"outfitter/mcp"
	"outfitter/notify"
	"outfitter/provider"
	"outfitter/storage"
	"outfitter/ui"
)

const Version = "v0.01.00"

func main() {
	consoleMode := flag.Bool("console", false, "open the operator console instead of running the worker")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("outfitter " + Version)
		return
	}

	// Validate environment variables first
	if config.HasAnyEnvVar() && !config.HasAllEnvVars() {
		fmt.Fprintf(os.Stderr, "Missing environment variable: %s\n\n"+
			"When using environment variables, all 3 must be set:\n"+
			"  • OUTFITTER_OLLAMA_HOST\n"+
			"  • OUTFITTER_OLLAMA_MODEL\n"+
			"  • OUTFITTER_DATA_DIR\n\n"+
			"Set the missing variable(s) before launching outfitter.\n",
			config.GetMissingEnvVar())
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())

	logger := log.New(os.Stdout, "", log.LstdFlags)
	if cfg.CredentialWarning != "" {
		logger.Printf("warning: %s", cfg.CredentialWarning)
	}

	store, err := storage.NewMessageStore(cfg.DataDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open message store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *consoleMode {
		if err := runConsole(cfg, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error running console: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runWorker(cfg, store, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Worker stopped: %v\n", err)
		os.Exit(1)
	}
}

// runConsole opens the operator TUI. The console gets its own plugin manager
// so an operator can start a declaration and see its tools without touching
// the worker process; enable/disable changes persist to plugins.toml and the
// worker reads them on its next restart.
func runConsole(cfg *config.Config, store *storage.MessageStore) error {
	index := storage.NewSearchIndex(store)

	var plugins *mcp.Manager
	if cfg.PluginsEnabled {
		plugins = mcp.NewManager(cfg)
	}

	p := tea.NewProgram(
		ui.NewConsole(cfg, store, index, plugins, Version),
		tea.WithAltScreen(),
	)
	_, err := p.Run()

	if plugins != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		plugins.Shutdown(shutCtx)
		cancel()
	}
	return err
}

func runWorker(cfg *config.Config, store *storage.MessageStore, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers := provider.InitializeProviders(cfg)
	active, ok := providers[cfg.Worker.ActiveProvider]
	if !ok {
		names := make([]string, 0, len(providers))
		for name := range providers {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("active provider %q is not available (have: %v)", cfg.Worker.ActiveProvider, names)
	}
	logger.Printf("provider: %s", cfg.Worker.ActiveProvider)

	notifier := notify.NewHTTPNotifier(cfg.Notify.Endpoint, cfg.Notify.Token)

	registry := mcp.NewLocalRegistry()
	var links *mcp.LinkSigner
	if cfg.Web.BaseURL != "" {
		links = mcp.NewLinkSigner(cfg.Web.BaseURL, []byte(cfg.Web.SigningSecret))
	}
	mcp.RegisterLocalTools(registry, mcp.LocalToolConfig{
		Notifier:  notifier,
		HelpStore: store,
		Links:     links,
	})

	var session *mcp.Session
	if cfg.Directory.URL != "" {
		session = mcp.NewSession(mcp.SessionConfig{
			ServerURL:     cfg.Directory.URL,
			Headers:       cfg.Directory.Headers,
			ClientName:    "outfitter",
			ClientVersion: Version,
		})
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		err := session.Connect(connectCtx)
		cancel()
		if err != nil {
			// The directory may come up later; invocations reconnect.
			logger.Printf("directory connect failed, continuing without it: %v", err)
		}
		defer session.Close()
	}

	cache := mcp.NewResultCache(0, 0)
	defer cache.Close()

	var dirSession mcp.DirectorySession
	if session != nil {
		dirSession = session
	}
	directory := mcp.NewDirectory(dirSession, registry, cache)

	plugins := mcp.NewManager(cfg)
	directory.AttachPlugins(plugins)
	if plugins.IsEnabled() {
		if err := plugins.StartAllEnabledPlugins(ctx); err != nil {
			logger.Printf("plugin startup: %v", err)
		}
		for id, err := range plugins.GetFailedPlugins() {
			logger.Printf("plugin %s failed: %v", id, err)
		}
	}

	orch := agent.NewOrchestrator(store, active, directory, notifier, logger)
	worker := agent.NewWorker(store, orch, notifier, logger)
	if cfg.Worker.PollSeconds > 0 {
		worker.PollInterval = time.Duration(cfg.Worker.PollSeconds) * time.Second
	}

	if cfg.Worker.MorningUpdateAt != "" && len(cfg.Worker.MorningUpdateRecipients) > 0 {
		sched := agent.NewScheduler(store, cfg.Worker.MorningUpdateRecipients, cfg.Worker.MorningUpdateAt, logger)
		go func() {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Printf("scheduler stopped: %v", err)
			}
		}()
		logger.Printf("morning update scheduled at %s for %d recipients", cfg.Worker.MorningUpdateAt, len(cfg.Worker.MorningUpdateRecipients))
	}

	logger.Printf("worker started, polling every %s", worker.PollInterval)
	runErr := worker.Run(ctx)
	if runErr != nil && ctx.Err() != nil {
		runErr = nil
	}

	logger.Printf("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if unresponsive, err := plugins.ShutdownWithTracking(shutCtx); err != nil {
		if len(unresponsive) > 0 {
			logger.Printf("plugins did not shut down cleanly: %v", unresponsive)
		} else {
			logger.Printf("plugin shutdown: %v", err)
		}
	}

	return runErr
}
