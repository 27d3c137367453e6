package script

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/caffeineduck/tsbridge/compiler"
)

// Mode records how an artifact's JavaScript was produced.
type Mode int

const (
	AheadOfTime Mode = iota + 1
	OnDemand
)

func (m Mode) String() string {
	switch m {
	case AheadOfTime:
		return "ahead-of-time"
	case OnDemand:
		return "on-demand"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Artifact is the compiled JavaScript for one module.
type Artifact struct {
	Module string
	JS     string
	Mode   Mode
}

// Strategy resolves a module name to its compiled artifact.
type Strategy interface {
	Artifact(ctx context.Context, name string) (Artifact, error)
}

// Prebuilt serves JavaScript captured ahead of time. It never compiles.
type Prebuilt struct {
	modules map[string]string
}

// NewPrebuilt wraps a module name to JavaScript mapping. The map is copied.
func NewPrebuilt(modules map[string]string) *Prebuilt {
	m := make(map[string]string, len(modules))
	for k, v := range modules {
		m[k] = v
	}
	return &Prebuilt{modules: m}
}

func (p *Prebuilt) Artifact(_ context.Context, name string) (Artifact, error) {
	js, ok := p.modules[name]
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}
	return Artifact{Module: name, JS: js, Mode: AheadOfTime}, nil
}

// Modules returns the prebuilt module names, sorted.
func (p *Prebuilt) Modules() []string {
	names := make([]string, 0, len(p.modules))
	for name := range p.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Artifacts returns every prebuilt artifact ordered by module name.
func (p *Prebuilt) Artifacts() []Artifact {
	names := p.Modules()
	out := make([]Artifact, 0, len(names))
	for _, name := range names {
		out = append(out, Artifact{Module: name, JS: p.modules[name], Mode: AheadOfTime})
	}
	return out
}

// Reloader compiles the requested module on every call. Nothing is cached
// and no type check runs, so concurrent calls for the same module each
// invoke the compiler.
type Reloader struct {
	layout   Layout
	compiler compiler.Compiler
	config   compiler.Config
	logger   *slog.Logger
}

func NewReloader(layout Layout, c compiler.Compiler, cfg compiler.Config, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.SearchDirs) == 0 {
		cfg.SearchDirs = layout.SearchDirs()
	}
	return &Reloader{layout: layout, compiler: c, config: cfg, logger: logger}
}

func (r *Reloader) Artifact(ctx context.Context, name string) (Artifact, error) {
	path, err := r.layout.Resolve(name)
	if err != nil {
		return Artifact{}, err
	}
	if !r.layout.isModule(path) {
		return Artifact{}, fmt.Errorf("%w: %s", ErrUnknownModule, name)
	}

	if _, err := WriteShim(r.layout); err != nil {
		return Artifact{}, &BuildError{Module: name, Stage: StageShim, Err: err}
	}

	start := time.Now()
	js, err := r.compiler.Compile(ctx, path, r.config)
	if err != nil {
		return Artifact{}, &BuildError{Module: name, Stage: StageCompile, Err: err}
	}
	r.logger.Debug("compiled module", "module", name, "bytes", len(js), "duration", time.Since(start))

	return Artifact{Module: name, JS: js, Mode: OnDemand}, nil
}

// Modules lists the modules currently present under the client root.
func (r *Reloader) Modules() []string {
	names, err := r.layout.Modules()
	if err != nil {
		r.logger.Warn("list modules", "error", err)
		return nil
	}
	return names
}
