package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsbridge/compiler"
	"github.com/caffeineduck/tsbridge/config"
	"github.com/caffeineduck/tsbridge/dispatch"
	"github.com/caffeineduck/tsbridge/internal/demo"
	"github.com/caffeineduck/tsbridge/script"
	"github.com/caffeineduck/tsbridge/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for the demo application",
	Long: `Start an HTTP server that serves compiled client modules and dispatches
their commands to the demo application.

Modes:
  aot      type check and compile every module at startup; exit on failure
  reload   compile the requested module on every page load

Endpoints:
  POST   /command        Dispatch a command (form field "json")
  GET    /m/{module}     Page embedding the compiled module
  GET    /               Module index
  GET    /health         Health check`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config, :8080)")
	serveCmd.Flags().String("mode", "", "Compile mode: aot, reload")
	serveCmd.Flags().Float64("rate-limit", 0, "Command requests per second (0 = unlimited)")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		fatal(cmd, err)
	}
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Server.Addr = v
	}
	if v, _ := cmd.Flags().GetString("mode"); v != "" {
		cfg.Server.Mode = v
	}
	if cmd.Flags().Changed("rate-limit") {
		cfg.Server.RateLimit, _ = cmd.Flags().GetFloat64("rate-limit")
	}
	shutdownTimeout, _ := cmd.Flags().GetDuration("shutdown-timeout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, err := newHandler(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("tsbridge server listening", "addr", cfg.Server.Addr, "mode", cfg.Server.Mode)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			fatal(cmd, err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}
}

// newHandler assembles the demo dispatcher and the module strategy for
// cfg. In aot mode every module is built before it returns.
func newHandler(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, error) {
	d, err := demo.New(logger, dispatch.WithMaxPayload(cfg.Server.MaxPayload))
	if err != nil {
		return nil, err
	}

	strategy, err := newStrategy(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return server.New(server.Options{
		Dispatcher: d,
		Strategy:   strategy,
		Route:      cfg.Server.Route,
		HelperURL:  cfg.Server.HelperURL,
		Logger:     logger,
		RateLimit:  cfg.Server.RateLimit,
		RateBurst:  cfg.Server.RateBurst,
	}), nil
}

func newStrategy(ctx context.Context, cfg *config.Config, logger *slog.Logger) (script.Strategy, error) {
	switch cfg.Server.Mode {
	case config.ModeAOT:
		return buildModules(ctx, cfg, logger)
	case config.ModeReload:
		return script.NewReloader(cfg.Layout(), compiler.NewESBuild(), cfg.CompilerConfig(), logger), nil
	default:
		return nil, fmt.Errorf("unknown mode %q", cfg.Server.Mode)
	}
}

func buildModules(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*script.Prebuilt, error) {
	opts := script.BuildOptions{
		Layout:   cfg.Layout(),
		Modules:  cfg.Client.Modules,
		Compiler: compiler.NewESBuild(),
		Config:   cfg.CompilerConfig(),
		Logger:   logger,
	}
	// A nil *compiler.Checker must not become a non-nil interface.
	if chk := cfg.Checker(); chk != nil {
		opts.Checker = chk
	}
	return script.Build(ctx, opts)
}
