package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dgnsrekt/navshell/internal/api"
	"github.com/dgnsrekt/navshell/internal/browser"
	"github.com/dgnsrekt/navshell/internal/cdp"
	"github.com/dgnsrekt/navshell/internal/config"
	"github.com/dgnsrekt/navshell/internal/controller"
	"github.com/dgnsrekt/navshell/internal/events"
	"github.com/dgnsrekt/navshell/internal/host"
	"github.com/dgnsrekt/navshell/internal/imagecache"
	"github.com/dgnsrekt/navshell/internal/journal"
	"github.com/dgnsrekt/navshell/internal/navigation"
	"github.com/dgnsrekt/navshell/internal/netutil"
	"github.com/dgnsrekt/navshell/internal/notify"
	"github.com/dgnsrekt/navshell/internal/pool"
	"github.com/dgnsrekt/navshell/internal/popup"
	"github.com/dgnsrekt/navshell/internal/shell"
	"github.com/dgnsrekt/navshell/internal/uiloop"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("navshell config loaded",
		"cdp_url", cfg.CDPURL(),
		"bind_addr", cfg.BindAddr,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"launch_browser", cfg.LaunchBrowser,
		"shell_config", cfg.ShellConfigPath,
		"image_workers", cfg.ImageWorkers,
		"journal_dir", cfg.JournalDir,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	shellCfg, err := config.LoadShell(cfg.ShellConfigPath)
	if err != nil {
		slog.Error("failed to load shell config", "path", cfg.ShellConfigPath, "error", err)
		os.Exit(1)
	}
	slog.Info("shell config loaded",
		"vendors", len(shellCfg.Vendors),
		"apps", len(shellCfg.Apps),
		"tabs", len(shellCfg.Tabs),
	)

	var launcher *browser.Launcher
	stopBrowser := func() {
		if launcher != nil && launcher.Running() {
			launcher.Stop()
		}
	}
	if cfg.LaunchBrowser {
		launcher = browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			ProfileDir: cfg.ProfileDir,
			LogFileDir: cfg.BrowserLogDir,
			WindowSize: cfg.WindowSize,
			UserAgent:  cfg.UserAgent,
		})
		if err := launcher.Launch(context.Background()); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
	}

	loop := uiloop.New(cfg.LoopQueueSize)
	engine := cdp.NewEngine(cfg.CDPURL(), loop, cdp.NewRegistry())
	if err := engine.Connect(context.Background()); err != nil {
		slog.Error("failed to connect CDP engine", "cdp_url", cfg.CDPURL(), "error", err)
		stopBrowser()
		os.Exit(1)
	}

	broker := events.NewBroker()
	ui := events.NewHost(broker)

	journalCtx, stopJournal := context.WithCancel(context.Background())
	var journalWriter *journal.Writer
	if cfg.JournalDir != "" {
		journalWriter = journal.NewWriter(cfg.JournalDir, 512, 50)
		go journal.Record(journalCtx, broker, journalWriter,
			events.TopicDecision, events.TopicPopupShown, events.TopicPopupClosed, events.TopicPush, events.TopicLifecycle)
	}

	classifier := navigation.NewClassifier(navigation.NewRuleTable(shellCfg.VendorRules()...))
	apps := host.NewApps(shellCfg.Apps)
	opener := host.NewSystemBrowser()
	handler := navigation.NewHandler(apps, apps, opener, ui)

	dispatcher := shell.NewDispatcher(classifier, handler, opener, ui)
	popups := popup.NewController(classifier, dispatcher, ui)
	dispatcher.UsePopups(popups)
	p := pool.New(engine, dispatcher, shellCfg.Canonical)
	dispatcher.UsePool(p)

	images, err := imagecache.NewStore(cfg.ImageCacheDir)
	if err != nil {
		slog.Error("failed to create image cache", "dir", cfg.ImageCacheDir, "error", err)
		stopBrowser()
		os.Exit(1)
	}
	if removed, err := images.Prune(cfg.ImageCacheKeep); err != nil {
		slog.Warn("image cache prune failed", "error", err)
	} else if removed > 0 {
		slog.Info("image cache pruned", "removed", removed, "keep", cfg.ImageCacheKeep)
	}

	sinks := []notify.Sink{ui}
	if cfg.NTFYEndpoint != "" {
		sinks = append(sinks, &notify.NTFYSink{Client: &http.Client{Timeout: 10 * time.Second}, Endpoint: cfg.NTFYEndpoint})
	}
	fetcher := notify.NewFetcher(notify.FetcherConfig{
		Workers:        cfg.ImageWorkers,
		ConnectTimeout: cfg.ImageConnectTimeout(),
		ReadTimeout:    cfg.ImageReadTimeout(),
		RetryMax:       notify.DefaultFetcherConfig().RetryMax,
	})
	pushes := notify.NewDeliverer(fetcher, images, loop, sinks...)

	svc := controller.NewService(controller.Deps{
		Loop:       loop,
		Pool:       p,
		Popups:     popups,
		Classifier: classifier,
		Dispatcher: dispatcher,
		Host:       ui,
		Pushes:     pushes,
		Images:     images,
		Apps:       apps,
	})

	for _, tab := range shellCfg.Tabs {
		if _, err := svc.OpenInstance(context.Background(), tab.Tag, tab.URL); err != nil {
			slog.Warn("failed to open startup tab", "tag", tab.Tag, "url", tab.URL, "error", err)
			continue
		}
		slog.Info("opened startup tab", "tag", tab.Tag, "url", tab.URL)
	}

	ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		svc.Teardown(context.Background())
		stopBrowser()
		os.Exit(1)
	}
	bindAddr := ln.Addr().String()
	if !netutil.IsLoopback(bindAddr) {
		slog.Warn("control api bound to a non-loopback address", "addr", bindAddr)
	}

	srv := &http.Server{Addr: bindAddr, Handler: api.NewServer(svc, broker)}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("navshell listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("control api server failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("control api shutdown failed", "error", err)
	}
	svc.Teardown(ctx)
	loop.Close()
	stopJournal()
	if journalWriter != nil {
		if err := journalWriter.Close(); err != nil {
			slog.Debug("journal close failed", "error", err)
		}
	}
	if err := engine.Close(); err != nil {
		slog.Debug("CDP engine close failed", "error", err)
	}
	stopBrowser()
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
