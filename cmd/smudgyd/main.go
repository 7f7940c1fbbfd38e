package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/smudgy/smudgy/internal/config"
	"github.com/smudgy/smudgy/internal/logger"
	"github.com/smudgy/smudgy/internal/mapcache"
	"github.com/smudgy/smudgy/internal/mapstore"
	"github.com/smudgy/smudgy/internal/pattern"
	"github.com/smudgy/smudgy/internal/session"
	"github.com/smudgy/smudgy/internal/transport"
	"github.com/smudgy/smudgy/internal/uifeed"
)

func main() {
	root := &cobra.Command{
		Use:   "smudgyd",
		Short: "smudgy daemon",
		RunE:  run,
	}
	root.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.Flags().String("log-file", "", "additional log file path")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logFile, _ := cmd.Flags().GetString("log-file")
	if err := logger.Init(logLevel, logFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	userConfigDir, err := config.GetUserConfigDir()
	if err != nil {
		return fmt.Errorf("get user config dir: %w", err)
	}
	projectDir, err := config.GetProjectDir()
	if err != nil {
		return fmt.Errorf("get project dir: %w", err)
	}

	cfgManager := config.NewManager()
	if err := cfgManager.Load(userConfigDir, projectDir); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := cfgManager.Get()

	mapStore, err := mapstore.Open(cfg.MapStoreDSN)
	if err != nil {
		return fmt.Errorf("open map store: %w", err)
	}
	defer mapStore.Close()

	mapCache := mapcache.New(logger.Log, 256)

	defaults := session.Profile{
		ScrollbackSize: cfg.ScrollbackCapacity,
		PromptIdleMs:   cfg.PromptIdleMs,
		ScriptBudgetMs: cfg.ScriptBudgetMs,
		PatternBackend: pattern.ParseBackend(cfg.PatternBackend),
		StartupScripts: cfg.StartupScripts,
	}

	sessions := session.NewManager()
	hub := uifeed.NewHub()
	feedSecret := make([]byte, 32)
	if _, err := rand.Read(feedSecret); err != nil {
		return fmt.Errorf("generate feed secret: %w", err)
	}
	tokens := uifeed.NewTokenMinter(feedSecret)
	feedSrv := uifeed.NewServer(hub, tokens)

	ctrlSrv := transport.NewServer(sessions, mapCache, cfg.ControlSocketPath, defaults, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watcher, err := config.NewScriptWatcher(cfg.StartupScripts, 200*time.Millisecond)
	if err != nil {
		log.Printf("script watcher disabled: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	errCh := make(chan error, 3)

	go func() {
		log.Printf("control transport listening on %s", cfg.ControlSocketPath)
		errCh <- ctrlSrv.ListenAndServe(ctx)
	}()

	go func() {
		log.Printf("ui feed listening on %s", cfg.UIFeedBindAddr)
		errCh <- serveUIFeed(ctx, cfg.UIFeedBindAddr, feedSrv)
	}()

	go func() {
		errCh <- mapCache.RunWriteBack(ctx, mapStore, 4, rate.NewLimiter(rate.Limit(50), 50))
	}()

	if watcher != nil {
		go func() {
			defer watcher.Close()
			for {
				select {
				case <-ctx.Done():
					return
				case <-watcher.Reload():
					for _, id := range sessions.IDs() {
						if sess, ok := sessions.Get(id); ok {
							sess.Reload()
						}
					}
					log.Println("startup scripts changed, sessions reloaded")
				}
			}
		}()
	}

	log.Println("smudgyd started")

	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down...", sig)
		cancel()
		time.Sleep(time.Second)
	case err := <-errCh:
		if err != nil && err != context.Canceled {
			cancel()
			return fmt.Errorf("daemon error: %w", err)
		}
	}

	return nil
}

func serveUIFeed(ctx context.Context, addr string, feedSrv *uifeed.Server) error {
	httpSrv := &http.Server{Addr: addr, Handler: feedSrv.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
