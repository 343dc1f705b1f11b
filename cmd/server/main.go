package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	playgroundui "github.com/MegaGrindStone/playground-web-ui"
	"github.com/MegaGrindStone/playground-web-ui/internal/channel"
	"github.com/MegaGrindStone/playground-web-ui/internal/handlers"
	"github.com/MegaGrindStone/playground-web-ui/internal/services"
	"github.com/MegaGrindStone/playground-web-ui/internal/session"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const errLoggerKey = "err"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "playground-web-ui",
		Short:        "Web interface for the generative AI playground",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := setup(cfgPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "",
		"config file (default <user config dir>/"+configDirName+"/config.yaml)")

	root.AddCommand(
		newModelsCmd(&cfgPath),
		newTagsCmd(&cfgPath),
		newPartsCmd(&cfgPath),
	)
	return root
}

// setup loads .env, the config file and the environment overrides, and installs the configured logger as
// the default one.
func setup(cfgPath string) (config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config{}, fmt.Errorf("error loading .env: %w", err)
	}

	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return config{}, fmt.Errorf("error getting user config dir: %w", err)
	}
	cfgDir = filepath.Join(cfgDir, configDirName)
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return config{}, fmt.Errorf("error creating config directory: %w", err)
	}
	if cfgPath == "" {
		cfgPath = filepath.Join(cfgDir, "config.yaml")
	}

	cfg, err := loadConfig(cfgPath, defaultConfig(cfgDir))
	if err != nil {
		return config{}, err
	}
	cfg.applyEnv(os.Getenv)

	slog.SetDefault(cfg.Log.logger())
	return cfg, nil
}

func serve(ctx context.Context, cfg config) error {
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	boltDB, err := services.NewBoltDB(cfg.StorePath)
	if err != nil {
		return err
	}
	defer boltDB.Close()

	backend := services.NewBackend(cfg.APIBaseURL, &http.Client{}, logger)

	wsURL, err := cfg.channelURL()
	if err != nil {
		return err
	}

	var sess *session.Session
	client := channel.New(wsURL,
		channel.WithLogger(logger),
		channel.WithReconnectInterval(cfg.ReconnectInterval),
		// The backend forgets subscriptions with the connection, so every open re-subscribes.
		channel.WithOnOpen(func() { sess.Resubscribe() }),
	)

	opts := []session.Option{
		session.WithStore(boltDB),
		session.WithLogger(logger),
		session.WithSettings(cfg.Settings),
	}
	if cfg.Generation == generationHTTP {
		opts = append(opts, session.WithGenerator(backend))
	}
	sess = session.New(client, opts...)
	if err := sess.Restore(ctx); err != nil {
		return err
	}

	m, err := handlers.NewMain(sess, backend, services.NewMarkdown(), logger)
	if err != nil {
		return err
	}

	// Serve static files
	staticFS, err := fs.Sub(playgroundui.StaticFS, "static")
	if err != nil {
		return err
	}
	fileServer := http.FileServer(http.FS(staticFS))

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/chats", m.HandleChats)
	mux.HandleFunc("/chats/clear", m.HandleClear)
	mux.HandleFunc("/settings", m.HandleSettings)
	mux.HandleFunc("/sse/messages", m.HandleSSE)
	mux.HandleFunc("/data", m.HandleData)
	mux.HandleFunc("/data/upload", m.HandleUploadFile)
	mux.HandleFunc("/data/repo", m.HandleUploadRepo)
	mux.HandleFunc("/data/delete", m.HandleDeletePart)
	mux.HandleFunc("/data/delete-all", m.HandleDeleteAllParts)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Run(gctx)
	})
	g.Go(func() error {
		return sess.Run(gctx, client.Events())
	})
	g.Go(func() error {
		logger.Info("Server starting",
			slog.String("addr", srv.Addr),
			slog.String("channel", wsURL),
			slog.String("generation", string(cfg.Generation)))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Start shutdown")

		// Create context with timeout for shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// SSE streams never end on their own, they have to be closed before the server can drain.
		if err := m.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shutdown sse server", slog.String(errLoggerKey, err.Error()))
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", slog.String(errLoggerKey, err.Error()))
			if err := srv.Close(); err != nil {
				logger.Error("Forcing server close", slog.String(errLoggerKey, err.Error()))
			}
		}
		return nil
	})

	return g.Wait()
}
