package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/spf13/cobra"

	"github.com/caffeineduck/tsbridge/config"
	"github.com/caffeineduck/tsbridge/script"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Type check and compile every module ahead of time",
	Long: `Type check and compile every client module, then write a Go source file
that embeds the JavaScript as a prebuilt strategy:

  var Modules = script.NewPrebuilt(map[string]string{...})

Any type-check or compile failure aborts the build with the module name.
With --watch the build reruns whenever a source file changes.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringP("out", "o", "", "Generated Go file (default from config, modules_gen.go)")
	buildCmd.Flags().String("package", "", "Package name for the generated file")
	buildCmd.Flags().StringSlice("module", nil, "Module to build (repeatable, default: all)")
	buildCmd.Flags().Bool("no-typecheck", false, "Skip the type-check pass")
	buildCmd.Flags().BoolP("watch", "w", false, "Rebuild on source changes")
	buildCmd.Flags().Duration("poll", 300*time.Millisecond, "Watch polling interval")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.Build.Out = v
	}
	if v, _ := cmd.Flags().GetString("package"); v != "" {
		cfg.Build.Package = v
	}
	if v, _ := cmd.Flags().GetStringSlice("module"); len(v) > 0 {
		cfg.Client.Modules = v
	}
	if v, _ := cmd.Flags().GetBool("no-typecheck"); v {
		cfg.Build.SkipTypeCheck = true
	}
	watch, _ := cmd.Flags().GetBool("watch")
	poll, _ := cmd.Flags().GetDuration("poll")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if !watch {
		return buildOnce(ctx, cfg, logger)
	}

	if err := buildOnce(ctx, cfg, logger); err != nil {
		logger.Error("build failed", "error", err)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchSources(ctx, cfg, logger, poll)
}

func buildOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	start := time.Now()
	pre, err := buildModules(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := script.GenerateGo(&buf, cfg.Build.Package, pre.Artifacts()); err != nil {
		return err
	}

	out := cfg.OutPath()
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("build complete", "out", out, "modules", len(pre.Modules()), "duration", time.Since(start))
	return nil
}

// watchSources rebuilds whenever a source under the client or shared root
// changes. Build failures are logged and the watch continues.
func watchSources(ctx context.Context, cfg *config.Config, logger *slog.Logger, poll time.Duration) error {
	layout := cfg.Layout()

	w := watcher.New()
	w.SetMaxEvents(1)
	w.FilterOps(watcher.Write, watcher.Create, watcher.Remove, watcher.Rename, watcher.Move)
	w.AddFilterHook(watcher.RegexFilterHook(regexp.MustCompile(regexp.QuoteMeta(extOf(layout))+"$"), false))

	for _, dir := range layout.SearchDirs() {
		if err := w.AddRecursive(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	if err := w.Ignore(layout.ShimPath()); err != nil {
		logger.Debug("ignore shim", "error", err)
	}

	go func() {
		for {
			select {
			case event := <-w.Event:
				if event.Path == layout.ShimPath() || event.IsDir() {
					continue
				}
				logger.Info("source changed", "path", event.Path, "op", event.Op.String())
				if err := buildOnce(ctx, cfg, logger); err != nil {
					logger.Error("build failed", "error", err)
				}
			case err := <-w.Error:
				logger.Error("watcher", "error", err)
			case <-w.Closed:
				return
			case <-ctx.Done():
				w.Close()
				return
			}
		}
	}()

	logger.Info("watching for changes", "dirs", layout.SearchDirs())
	return w.Start(poll)
}

func extOf(l script.Layout) string {
	if l.Ext == "" {
		return script.DefaultExt
	}
	return l.Ext
}
