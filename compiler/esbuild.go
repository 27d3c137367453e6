package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// ESBuild compiles TypeScript entry files into a single browser script.
type ESBuild struct {
	Target api.Target
	// Define substitutes global identifiers at compile time.
	Define map[string]string
}

// NewESBuild returns an ESBuild compiler targeting ES2017.
func NewESBuild() *ESBuild {
	return &ESBuild{Target: api.ES2017}
}

// Compile bundles entry and everything it imports into one IIFE.
func (e *ESBuild) Compile(ctx context.Context, entry string, cfg Config) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	abs, err := filepath.Abs(entry)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", entry, err)
	}

	searchDirs := make([]string, 0, len(cfg.SearchDirs))
	for _, dir := range cfg.SearchDirs {
		d, err := filepath.Abs(dir)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", dir, err)
		}
		searchDirs = append(searchDirs, d)
	}

	opts := api.BuildOptions{
		EntryPoints:       []string{abs},
		AbsWorkingDir:     filepath.Dir(abs),
		Outfile:           strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)) + ".js",
		Bundle:            true,
		Write:             false,
		Format:            api.FormatIIFE,
		Platform:          api.PlatformBrowser,
		Target:            e.Target,
		NodePaths:         searchDirs,
		Define:            e.Define,
		LogLevel:          api.LogLevelSilent,
		MinifyWhitespace:  cfg.Minify,
		MinifyIdentifiers: cfg.Minify,
		MinifySyntax:      cfg.Minify,
	}
	if cfg.SourceMap {
		opts.Sourcemap = api.SourceMapInline
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return "", &CompileError{Entry: entry, Messages: convertMessages(result.Errors)}
	}

	for _, out := range result.OutputFiles {
		if strings.HasSuffix(out.Path, ".js") {
			return string(out.Contents), nil
		}
	}
	return "", &CompileError{Entry: entry, Messages: []Message{{Text: "no javascript output"}}}
}

func convertMessages(msgs []api.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		msg := Message{Text: m.Text}
		if m.Location != nil {
			msg.File = m.Location.File
			msg.Line = m.Location.Line
			msg.Column = m.Location.Column
			msg.LineText = m.Location.LineText
		}
		out = append(out, msg)
	}
	return out
}
