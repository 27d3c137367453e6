package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caffeineduck/tsbridge/compiler"
)

// Stage names the build step a BuildError came from.
type Stage string

const (
	StageShim      Stage = "shim"
	StageResolve   Stage = "resolve"
	StageTypeCheck Stage = "typecheck"
	StageCompile   Stage = "compile"
)

// BuildError aborts a build. Module is empty for failures that precede
// any module.
type BuildError struct {
	Module string
	Stage  Stage
	Err    error
}

func (e *BuildError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("build: %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("build %s: %s: %v", e.Module, e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// TypeChecker validates a set of source files before they are compiled.
type TypeChecker interface {
	Check(ctx context.Context, files []string) error
}

type BuildOptions struct {
	Layout Layout
	// Modules to build. Empty means every module found under the client root.
	Modules  []string
	Compiler compiler.Compiler
	// Checker runs before each compile. Nil skips the type check.
	Checker TypeChecker
	Config  compiler.Config
	Logger  *slog.Logger
}

// Build compiles every module ahead of time. Each module is type checked
// together with the shared sources and compiled only if the check passes.
// The first failure aborts the whole build.
func Build(ctx context.Context, opts BuildOptions) (*Prebuilt, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Compiler == nil {
		return nil, &BuildError{Stage: StageCompile, Err: errors.New("no compiler configured")}
	}
	cfg := opts.Config
	if len(cfg.SearchDirs) == 0 {
		cfg.SearchDirs = opts.Layout.SearchDirs()
	}

	if _, err := WriteShim(opts.Layout); err != nil {
		return nil, &BuildError{Stage: StageShim, Err: err}
	}

	modules := opts.Modules
	if len(modules) == 0 {
		found, err := opts.Layout.Modules()
		if err != nil {
			return nil, &BuildError{Stage: StageResolve, Err: err}
		}
		modules = found
	}

	shared, err := opts.Layout.SharedSources()
	if err != nil {
		return nil, &BuildError{Stage: StageResolve, Err: err}
	}

	out := make(map[string]string, len(modules))
	for _, name := range modules {
		if _, dup := out[name]; dup {
			continue
		}

		path, err := opts.Layout.Resolve(name)
		if err != nil {
			return nil, &BuildError{Module: name, Stage: StageResolve, Err: err}
		}
		if !opts.Layout.isModule(path) {
			return nil, &BuildError{Module: name, Stage: StageResolve, Err: fmt.Errorf("%w: %s not found", ErrUnknownModule, path)}
		}

		if opts.Checker != nil {
			files := append([]string{path}, shared...)
			if err := opts.Checker.Check(ctx, files); err != nil {
				return nil, &BuildError{Module: name, Stage: StageTypeCheck, Err: err}
			}
		}

		start := time.Now()
		js, err := opts.Compiler.Compile(ctx, path, cfg)
		if err != nil {
			return nil, &BuildError{Module: name, Stage: StageCompile, Err: err}
		}
		out[name] = js
		logger.Info("built module", "module", name, "bytes", len(js), "duration", time.Since(start))
	}

	return NewPrebuilt(out), nil
}
